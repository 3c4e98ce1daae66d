// Package scheduler решает, какой тайл рендерить следующим: инвалидированные регионы
// вне очереди, затем спираль от центра карты. Работу выполняет пул воркеров.
package scheduler

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/annel0/blockmap/internal/controls"
	"github.com/annel0/blockmap/internal/iterator"
	"github.com/annel0/blockmap/internal/logging"
	"github.com/annel0/blockmap/internal/tilestore"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world"
)

// Renderer рисует тайл региона
type Renderer interface {
	Render(ctx context.Context, region vec.RegionCoord) (*image.RGBA, error)
	RegionSize() int
}

// Config параметры планировщика
type Config struct {
	Center          vec.RegionCoord // центр спирали (обычно регион спавна)
	Radius          int             // радиус в регионах
	ChunksPerRegion int
	Workers         int
	QueueSize       int // ёмкость канала задач; полный канал блокирует выдачу
	MaxRetries      int // повторы при ErrChunkUnavailable
	RetryDelay      time.Duration
}

// DefaultConfig значения по умолчанию
func DefaultConfig() Config {
	return Config{
		Radius:          8,
		ChunksPerRegion: 32,
		Workers:         4,
		QueueSize:       8,
		MaxRetries:      2,
		RetryDelay:      500 * time.Millisecond,
	}
}

// Result итог одной задачи рендера
type Result struct {
	Region      vec.RegionCoord
	Took        time.Duration
	Attempts    int
	Placeholder bool
	Err         error
}

// Scheduler единственный производитель задач рендера. Спиралью владеет только
// горутина-производитель (под mu).
type Scheduler struct {
	cfg      Config
	renderer Renderer
	store    tilestore.Store
	controls controls.RenderController
	logger   *logging.Logger
	onResult func(Result)

	mu       sync.Mutex
	state    State
	spiral   *iterator.Spiral[vec.RegionCoord]
	urgent   *urgentQueue
	pending  bool // производитель держит выбранную, но не отправленную задачу
	inflight map[vec.RegionCoord]struct{}
	dirty    map[vec.RegionCoord]struct{}
	rendered map[vec.RegionCoord]struct{}
	progress chan struct{}
	stats    Stats

	jobs   chan vec.RegionCoord
	wake   chan struct{}
	stopCh chan struct{}
	prodWg sync.WaitGroup
	workWg sync.WaitGroup
}

// New создаёт планировщик в состоянии Idle. ctrl может быть nil.
func New(cfg Config, renderer Renderer, store tilestore.Store, ctrl controls.RenderController) *Scheduler {
	def := DefaultConfig()
	if cfg.ChunksPerRegion <= 0 {
		cfg.ChunksPerRegion = def.ChunksPerRegion
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Scheduler{
		cfg:      cfg,
		renderer: renderer,
		store:    store,
		controls: ctrl,
		logger:   logging.Default(),
		state:    Idle,
		spiral:   iterator.NewRegionSpiral(cfg.Center.X, cfg.Center.Z, cfg.Radius),
		urgent:   newUrgentQueue(),
		inflight: make(map[vec.RegionCoord]struct{}),
		dirty:    make(map[vec.RegionCoord]struct{}),
		rendered: make(map[vec.RegionCoord]struct{}),
		progress: make(chan struct{}),
		jobs:     make(chan vec.RegionCoord, cfg.QueueSize),
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// SetLogger заменяет логгер (до Start)
func (s *Scheduler) SetLogger(l *logging.Logger) {
	s.logger = l
}

// OnResult регистрирует обработчик результатов (метрики). Вызывается из воркеров.
func (s *Scheduler) OnResult(fn func(Result)) {
	s.mu.Lock()
	s.onResult = fn
	s.mu.Unlock()
}

// Config возвращает параметры
func (s *Scheduler) Config() Config {
	return s.cfg
}

// State текущее состояние
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start запускает воркеры и производитель
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		return ErrStopped
	}
	if s.state != Idle {
		return ErrNotIdle
	}
	s.state = Running

	for i := 0; i < s.cfg.Workers; i++ {
		s.workWg.Add(1)
		go s.worker(i)
	}
	s.prodWg.Add(1)
	go s.produce()

	s.logger.Info("Render scheduler started: center %s radius %d, %d workers", s.cfg.Center, s.cfg.Radius, s.cfg.Workers)
	return nil
}

// Pause прекращает выдачу новых задач. Начатые задачи завершаются, позиция спирали сохраняется.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Paused:
		return nil
	case Running:
		s.state = Paused
		s.signal()
		s.logger.Info("Render scheduler paused")
		return nil
	case Stopped:
		return ErrStopped
	default:
		return ErrNotRunning
	}
}

// Resume продолжает выдачу с того же места спирали
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Running:
		return nil
	case Paused:
		s.state = Running
		s.signal()
		s.logger.Info("Render scheduler resumed")
		return nil
	case Stopped:
		return ErrStopped
	default:
		return ErrNotPaused
	}
}

// Stop окончательно останавливает планировщик: невыданная работа отбрасывается,
// начатые рендеры дорисовываются, воркеры завершаются. Повторный вызов безопасен.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return
	}
	started := s.state != Idle
	s.state = Stopped
	close(s.stopCh)
	s.urgent.clear()
	s.broadcastLocked()
	s.mu.Unlock()

	if started {
		s.prodWg.Wait()
		close(s.jobs)
		s.workWg.Wait()
	}
	s.logger.Info("Render scheduler stopped")
}

// FullRender начинает обход спирали заново (явная команда оператора)
func (s *Scheduler) FullRender() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		return ErrStopped
	}
	s.spiral = iterator.NewRegionSpiral(s.cfg.Center.X, s.cfg.Center.Z, s.cfg.Radius)
	s.rendered = make(map[vec.RegionCoord]struct{})
	for r := range s.inflight {
		// Начатые до команды рендеры повторяются
		s.dirty[r] = struct{}{}
	}
	s.stats.FullRenders++
	s.signal()
	s.logger.Info("Full render requested: %d regions", s.spiral.Len())
	return nil
}

// Invalidate помечает тайл, покрывающий чанк, устаревшим. Тайл рендерится раньше
// любого ещё не начатого тайла спирали.
func (s *Scheduler) Invalidate(chunk vec.ChunkCoord) {
	s.InvalidateRegion(chunk.Region(s.cfg.ChunksPerRegion))
}

// InvalidateRegion то же для региона
func (s *Scheduler) InvalidateRegion(region vec.RegionCoord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		return
	}
	s.stats.Invalidations++
	if _, busy := s.inflight[region]; busy {
		// Перерисуется после завершения текущего рендера
		s.dirty[region] = struct{}{}
		return
	}
	if !s.urgent.push(region) {
		s.stats.Coalesced++
		return
	}
	s.signal()
}

// Watch подписывает планировщик на изменения чанков. Возвращает функцию отписки.
func (s *Scheduler) Watch(feed world.ChangeFeed) func() {
	return feed.OnModified(s.Invalidate)
}

// WaitIdle ждёт, пока не останется работы: спираль пройдена, очередь пуста, рендеров нет.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.idleLocked() {
			s.mu.Unlock()
			return nil
		}
		if s.state == Stopped {
			s.mu.Unlock()
			return ErrStopped
		}
		ch := s.progress
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) idleLocked() bool {
	return !s.pending && s.spiral.Remaining() == 0 && s.urgent.len() == 0 && len(s.inflight) == 0
}

// signal будит производителя; вызывается под mu
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// broadcastLocked будит всех ожидающих WaitIdle
func (s *Scheduler) broadcastLocked() {
	close(s.progress)
	s.progress = make(chan struct{})
}

func (s *Scheduler) controlChanged() <-chan struct{} {
	if s.controls == nil {
		return nil
	}
	return s.controls.Changed()
}

// dispatchableLocked можно ли выдавать работу прямо сейчас
func (s *Scheduler) dispatchableLocked() bool {
	if s.state != Running {
		return false
	}
	return s.controls == nil || !s.controls.RendersPaused()
}

// pickLocked выбирает следующий регион: сначала инвалидированные, затем спираль.
func (s *Scheduler) pickLocked() (vec.RegionCoord, bool) {
	for {
		r, ok := s.urgent.pop()
		if !ok {
			break
		}
		if _, busy := s.inflight[r]; busy {
			s.dirty[r] = struct{}{}
			continue
		}
		return r, true
	}
	for s.spiral.Next() {
		r := s.spiral.Value()
		if _, busy := s.inflight[r]; busy {
			continue
		}
		if _, done := s.rendered[r]; done {
			// Уже перерисован вне очереди после последнего изменения
			continue
		}
		return r, true
	}
	return vec.RegionCoord{}, false
}

// next ждёт возможности выдать работу и выбирает регион. false - планировщик остановлен.
func (s *Scheduler) next() (vec.RegionCoord, bool) {
	for {
		s.mu.Lock()
		if s.state == Stopped {
			s.mu.Unlock()
			return vec.RegionCoord{}, false
		}
		// Канал берём до проверки паузы, иначе снятие паузы между ними теряется
		ctrl := s.controlChanged()
		if s.dispatchableLocked() {
			if r, ok := s.pickLocked(); ok {
				s.pending = true
				s.mu.Unlock()
				return r, true
			}
			// Работы нет: ожидающие WaitIdle могут проверить состояние
			s.broadcastLocked()
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-ctrl:
		case <-s.stopCh:
			return vec.RegionCoord{}, false
		}
	}
}

// produce цикл производителя. Полный канал задач - backpressure: выбранный регион
// удерживается до освобождения места, пауза в это время откладывает и его.
func (s *Scheduler) produce() {
	defer s.prodWg.Done()
	for {
		region, ok := s.next()
		if !ok {
			return
		}
		if !s.send(region) {
			s.mu.Lock()
			s.pending = false
			s.mu.Unlock()
			return
		}
	}
}

// send отправляет задачу только под mu и только в состоянии Running, поэтому
// после возврата Pause новых задач не появляется.
func (s *Scheduler) send(region vec.RegionCoord) bool {
	for {
		s.mu.Lock()
		if s.state == Stopped {
			s.mu.Unlock()
			return false
		}
		ctrl := s.controlChanged()
		if s.dispatchableLocked() {
			select {
			case s.jobs <- region:
				s.pending = false
				s.inflight[region] = struct{}{}
				s.stats.Dispatched++
				s.mu.Unlock()
				return true
			default:
			}
		}
		s.mu.Unlock()

		// Воркер будит производителя, забрав задачу из канала
		select {
		case <-s.wake:
		case <-ctrl:
		case <-s.stopCh:
			return false
		}
	}
}
