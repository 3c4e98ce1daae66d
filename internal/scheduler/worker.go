package scheduler

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/annel0/blockmap/internal/tilestore"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world"
)

func (s *Scheduler) worker(id int) {
	defer s.workWg.Done()
	for region := range s.jobs {
		// Место в канале освободилось
		s.mu.Lock()
		s.signal()
		if s.state == Stopped {
			// Выдана, но не начата: отбрасываем
			delete(s.inflight, region)
			s.mu.Unlock()
			continue
		}
		s.mu.Unlock()

		res := s.run(region)
		s.finish(res)
		s.logger.Debug("Worker %d finished %s in %s (attempts %d)", id, region, res.Took, res.Attempts)
	}
}

// run рендерит тайл с повторами на ErrChunkUnavailable. Остановка планировщика
// не прерывает начатый рендер, только ожидание повтора.
func (s *Scheduler) run(region vec.RegionCoord) Result {
	ctx := context.Background()
	start := time.Now()
	res := Result{Region: region}

	var img *image.RGBA
	var err error
	for {
		res.Attempts++
		img, err = s.renderer.Render(ctx, region)
		if err == nil || !errors.Is(err, world.ErrChunkUnavailable) || res.Attempts > s.cfg.MaxRetries {
			break
		}
		s.mu.Lock()
		s.stats.Retries++
		s.mu.Unlock()
		if !s.sleep(s.cfg.RetryDelay) {
			res.Took = time.Since(start)
			res.Err = err
			return res
		}
	}

	if err != nil {
		res.Err = err
		res.Placeholder = true
		if errors.Is(err, world.ErrChunkUnavailable) {
			s.logger.Debug("Region %s unavailable after %d attempts, storing placeholder", region, res.Attempts)
		} else {
			s.logger.Warn("Render of region %s failed: %v", region, err)
		}
		img = tilestore.Blank(s.renderer.RegionSize())
	}

	if saveErr := s.store.Save(ctx, region, img); saveErr != nil {
		s.logger.Error("Failed to store tile %s: %v", region, saveErr)
		res.Placeholder = false
		if res.Err == nil {
			res.Err = saveErr
		}
	}
	res.Took = time.Since(start)
	return res
}

// sleep ждёт d или остановки. false - планировщик остановлен.
func (s *Scheduler) sleep(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-s.stopCh:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stopCh:
		return false
	}
}

func (s *Scheduler) finish(res Result) {
	s.mu.Lock()
	delete(s.inflight, res.Region)
	s.rendered[res.Region] = struct{}{}
	s.stats.Completed++
	if res.Placeholder {
		s.stats.Placeholders++
	}
	if res.Err != nil && !errors.Is(res.Err, world.ErrChunkUnavailable) {
		s.stats.Failed++
	}
	if _, ok := s.dirty[res.Region]; ok {
		delete(s.dirty, res.Region)
		if s.state != Stopped && s.urgent.push(res.Region) {
			s.signal()
		}
	}
	hook := s.onResult
	s.broadcastLocked()
	s.mu.Unlock()

	if hook != nil {
		hook(res)
	}
}
