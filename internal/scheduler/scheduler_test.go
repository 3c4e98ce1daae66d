package scheduler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/annel0/blockmap/internal/color"
	"github.com/annel0/blockmap/internal/controls"
	"github.com/annel0/blockmap/internal/iterator"
	"github.com/annel0/blockmap/internal/render"
	"github.com/annel0/blockmap/internal/tilestore"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world"
	"github.com/annel0/blockmap/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tileSize = 16

// fakeRenderer записывает порядок вызовов. gate (если задан) держит каждый
// рендер до получения значения или закрытия канала.
type fakeRenderer struct {
	mu      sync.Mutex
	calls   []vec.RegionCoord
	fails   map[vec.RegionCoord]int
	errs    map[vec.RegionCoord]error
	gate    chan struct{}
	started chan vec.RegionCoord
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		fails:   make(map[vec.RegionCoord]int),
		errs:    make(map[vec.RegionCoord]error),
		started: make(chan vec.RegionCoord, 1024),
	}
}

func (f *fakeRenderer) Render(ctx context.Context, region vec.RegionCoord) (*image.RGBA, error) {
	f.mu.Lock()
	f.calls = append(f.calls, region)
	gate := f.gate
	var err error
	if e, ok := f.errs[region]; ok {
		err = e
	} else if f.fails[region] > 0 {
		f.fails[region]--
		err = fmt.Errorf("region %s: %w", region, world.ErrChunkUnavailable)
	}
	f.mu.Unlock()

	f.started <- region
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return image.NewRGBA(image.Rect(0, 0, tileSize, tileSize)), nil
}

func (f *fakeRenderer) RegionSize() int { return tileSize }

func (f *fakeRenderer) Calls() []vec.RegionCoord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]vec.RegionCoord(nil), f.calls...)
}

func (f *fakeRenderer) waitStarted(t *testing.T) vec.RegionCoord {
	t.Helper()
	select {
	case r := <-f.started:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("рендер не начался")
		return vec.RegionCoord{}
	}
}

func testConfig(radius int) Config {
	cfg := DefaultConfig()
	cfg.Radius = radius
	cfg.Workers = 1
	cfg.QueueSize = 1
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.WaitIdle(ctx))
}

func indexOf(calls []vec.RegionCoord, r vec.RegionCoord, nth int) int {
	for i, c := range calls {
		if c == r {
			if nth == 0 {
				return i
			}
			nth--
		}
	}
	return -1
}

func count(calls []vec.RegionCoord, r vec.RegionCoord) int {
	n := 0
	for _, c := range calls {
		if c == r {
			n++
		}
	}
	return n
}

func TestRendersInSpiralOrder(t *testing.T) {
	fr := newFakeRenderer()
	store := tilestore.NewMemoryStore()
	s := New(testConfig(2), fr, store, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	waitIdle(t, s)

	want := iterator.Collect(iterator.NewRegionSpiral(0, 0, 2))
	assert.Equal(t, want, fr.Calls())
	for _, r := range want {
		assert.Equal(t, 1, store.Saves(r), "tile %s", r)
	}

	st := s.Stats()
	assert.Equal(t, uint64(25), st.Dispatched)
	assert.Equal(t, uint64(25), st.Completed)
	assert.Equal(t, 0, st.SpiralRemaining)
	assert.Equal(t, 25, st.SpiralTotal)
	assert.Equal(t, Running, st.State)
}

func TestSpiralAroundCenter(t *testing.T) {
	fr := newFakeRenderer()
	cfg := testConfig(1)
	cfg.Center = vec.RegionCoord{X: -3, Z: 5}
	cfg.Workers = 3
	s := New(cfg, fr, tilestore.NewMemoryStore(), nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	waitIdle(t, s)
	assert.ElementsMatch(t, iterator.Collect(iterator.NewRegionSpiral(-3, 5, 1)), fr.Calls())
}

func TestPauseResume(t *testing.T) {
	fr := newFakeRenderer()
	fr.gate = make(chan struct{})
	s := New(testConfig(2), fr, tilestore.NewMemoryStore(), nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	fr.waitStarted(t)
	require.NoError(t, s.Pause())
	assert.Equal(t, Paused, s.State())

	close(fr.gate)
	time.Sleep(100 * time.Millisecond)
	paused := len(fr.Calls())
	// Начатый рендер и одна задача из буфера канала
	assert.LessOrEqual(t, paused, 2)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, paused, len(fr.Calls()), "во время паузы новых рендеров нет")

	require.NoError(t, s.Resume())
	waitIdle(t, s)

	// Обход продолжился с того же места: ни пропусков, ни повторов
	assert.Equal(t, iterator.Collect(iterator.NewRegionSpiral(0, 0, 2)), fr.Calls())
}

func TestInvalidationJumpsQueue(t *testing.T) {
	fr := newFakeRenderer()
	fr.gate = make(chan struct{})
	s := New(testConfig(2), fr, tilestore.NewMemoryStore(), nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	first := fr.waitStarted(t)
	require.Equal(t, vec.RegionCoord{}, first)

	// (0,0) сейчас рендерится: будет перерисован после завершения
	s.Invalidate(vec.ChunkCoord{X: 3, Z: 7})
	// (2,2) последний в спирали
	last := vec.RegionCoord{X: 2, Z: 2}
	s.InvalidateRegion(last)

	close(fr.gate)
	waitIdle(t, s)

	calls := fr.Calls()
	assert.Len(t, calls, 26)
	assert.Equal(t, 1, count(calls, last), "спираль не рендерит уже перерисованный регион")
	assert.LessOrEqual(t, indexOf(calls, last, 0), 3)
	assert.Equal(t, 2, count(calls, vec.RegionCoord{}))
	assert.LessOrEqual(t, indexOf(calls, vec.RegionCoord{}, 1), 4)
	assert.Equal(t, uint64(2), s.Stats().Invalidations)
}

func TestInvalidateCoalesces(t *testing.T) {
	s := New(testConfig(1), newFakeRenderer(), tilestore.NewMemoryStore(), nil)
	r := vec.RegionCoord{X: 4, Z: -1}

	s.InvalidateRegion(r)
	s.InvalidateRegion(r)
	s.Invalidate(vec.ChunkCoord{X: 4*32 + 5, Z: -1})

	st := s.Stats()
	assert.Equal(t, 1, st.Queued)
	assert.Equal(t, uint64(3), st.Invalidations)
	assert.Equal(t, uint64(2), st.Coalesced)

	s.Stop()
	s.InvalidateRegion(vec.RegionCoord{X: 9, Z: 9})
	assert.Equal(t, 0, s.Stats().Queued, "после остановки инвалидации игнорируются")
}

func TestWatchFeed(t *testing.T) {
	src := world.NewMemorySource(32)
	s := New(testConfig(1), newFakeRenderer(), tilestore.NewMemoryStore(), nil)

	cancel := s.Watch(src)
	src.Put(world.NewChunk(vec.ChunkCoord{X: 40, Z: 0}, 32))
	assert.Equal(t, 1, s.Stats().Queued)

	cancel()
	src.Put(world.NewChunk(vec.ChunkCoord{X: -40, Z: 0}, 32))
	assert.Equal(t, 1, s.Stats().Queued)
}

func TestRetryThenSuccess(t *testing.T) {
	fr := newFakeRenderer()
	fr.fails[vec.RegionCoord{}] = 2
	store := tilestore.NewMemoryStore()
	cfg := testConfig(0)
	cfg.MaxRetries = 2
	s := New(cfg, fr, store, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	waitIdle(t, s)
	assert.Len(t, fr.Calls(), 3)

	st := s.Stats()
	assert.Equal(t, uint64(2), st.Retries)
	assert.Equal(t, uint64(0), st.Placeholders)
	assert.Equal(t, uint64(0), st.Failed)
	assert.Equal(t, 1, store.Saves(vec.RegionCoord{}))
}

func TestPlaceholderAfterRetries(t *testing.T) {
	fr := newFakeRenderer()
	fr.fails[vec.RegionCoord{}] = 100
	store := tilestore.NewMemoryStore()
	cfg := testConfig(0)
	cfg.MaxRetries = 1
	s := New(cfg, fr, store, nil)

	var results []Result
	var mu sync.Mutex
	s.OnResult(func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})
	require.NoError(t, s.Start())
	defer s.Stop()

	waitIdle(t, s)
	assert.Len(t, fr.Calls(), 2)
	assert.Equal(t, uint64(1), s.Stats().Placeholders)

	data, err := store.Load(context.Background(), vec.RegionCoord{})
	require.NoError(t, err)
	img, err := tilestore.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, tileSize, img.Bounds().Dx())
	_, _, _, a := img.At(5, 5).RGBA()
	assert.Zero(t, a)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	assert.True(t, results[0].Placeholder)
	assert.Equal(t, 2, results[0].Attempts)
	assert.ErrorIs(t, results[0].Err, world.ErrChunkUnavailable)
}

func TestRenderErrorNotRetried(t *testing.T) {
	fr := newFakeRenderer()
	fr.errs[vec.RegionCoord{}] = errors.New("boom")
	store := tilestore.NewMemoryStore()
	s := New(testConfig(0), fr, store, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	waitIdle(t, s)
	assert.Len(t, fr.Calls(), 1)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Failed)
	assert.Equal(t, uint64(1), st.Placeholders)
	assert.Equal(t, uint64(0), st.Retries)
	assert.Equal(t, 1, store.Saves(vec.RegionCoord{}))
}

func TestStopWaitsForInflight(t *testing.T) {
	fr := newFakeRenderer()
	fr.gate = make(chan struct{})
	store := tilestore.NewMemoryStore()
	s := New(testConfig(1), fr, store, nil)
	require.NoError(t, s.Start())

	fr.waitStarted(t)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Stop вернулся до завершения начатого рендера")
	case <-time.After(50 * time.Millisecond):
	}

	close(fr.gate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop не завершился")
	}

	// Задача из буфера отброшена
	assert.Len(t, fr.Calls(), 1)
	assert.Equal(t, 1, store.Saves(vec.RegionCoord{}))
	assert.Equal(t, Stopped, s.State())
	assert.ErrorIs(t, s.Start(), ErrStopped)
	assert.ErrorIs(t, s.WaitIdle(context.Background()), ErrStopped)

	s.Stop()
}

func TestControlsPauseBlocksDispatch(t *testing.T) {
	fr := newFakeRenderer()
	w := controls.NewWorld("overworld")
	w.PauseRenders(true)

	s := New(testConfig(1), fr, tilestore.NewMemoryStore(), w)
	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, fr.Calls())

	w.PauseRenders(false)
	waitIdle(t, s)
	assert.Len(t, fr.Calls(), 9)
}

// resumeOnCheck снимает паузу внутри первой проверки, но отвечает старым значением
type resumeOnCheck struct {
	*controls.World
	once sync.Once
}

func (r *resumeOnCheck) RendersPaused() bool {
	paused := r.World.RendersPaused()
	r.once.Do(func() { r.World.PauseRenders(false) })
	return paused
}

func TestResumeBetweenCheckAndWait(t *testing.T) {
	fr := newFakeRenderer()
	w := controls.NewWorld("overworld")
	w.PauseRenders(true)
	ctrl := &resumeOnCheck{World: w}

	s := New(testConfig(0), fr, tilestore.NewMemoryStore(), ctrl)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return len(fr.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, w.RendersPaused())
}

func TestFullRender(t *testing.T) {
	fr := newFakeRenderer()
	s := New(testConfig(1), fr, tilestore.NewMemoryStore(), nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	waitIdle(t, s)
	require.NoError(t, s.FullRender())
	waitIdle(t, s)

	want := iterator.Collect(iterator.NewRegionSpiral(0, 0, 1))
	assert.Equal(t, append(want, want...), fr.Calls())
	assert.Equal(t, uint64(1), s.Stats().FullRenders)
}

func TestStateTransitions(t *testing.T) {
	s := New(testConfig(0), newFakeRenderer(), tilestore.NewMemoryStore(), nil)
	assert.Equal(t, Idle, s.State())
	assert.ErrorIs(t, s.Pause(), ErrNotRunning)
	assert.ErrorIs(t, s.Resume(), ErrNotPaused)

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrNotIdle)
	assert.NoError(t, s.Resume())
	assert.NoError(t, s.Pause())
	assert.NoError(t, s.Pause())

	s.Stop()
	assert.ErrorIs(t, s.Pause(), ErrStopped)
	assert.ErrorIs(t, s.FullRender(), ErrStopped)
	assert.Equal(t, "stopped", s.State().String())
}

func TestStopWithoutStart(t *testing.T) {
	s := New(testConfig(0), newFakeRenderer(), tilestore.NewMemoryStore(), nil)
	s.Stop()
	assert.Equal(t, Stopped, s.State())
}

func TestWithRenderer(t *testing.T) {
	src := world.NewMemorySource(32)
	for _, coord := range []vec.ChunkCoord{{X: 0, Z: 0}, {X: 1, Z: 0}, {X: 2, Z: 3}} {
		c := world.NewChunk(coord, 32)
		for z := 0; z < vec.ChunkSize; z++ {
			for x := 0; x < vec.ChunkSize; x++ {
				c.SetID(x, 4, z, block.Grass)
			}
		}
		src.Put(c)
	}

	rcfg := render.DefaultConfig()
	rcfg.ChunksPerRegion = 2
	r := render.NewRenderer(src, color.NewDefaultResolver(nil), rcfg)

	cfg := testConfig(1)
	cfg.ChunksPerRegion = 2
	cfg.MaxRetries = 0
	store := tilestore.NewMemoryStore()
	s := New(cfg, r, store, nil)
	require.NoError(t, s.Start())
	defer s.Stop()
	waitIdle(t, s)

	// Регионы без чанков сохраняются заглушками
	st := s.Stats()
	assert.Equal(t, uint64(9), st.Completed)
	assert.Equal(t, uint64(7), st.Placeholders)

	data, err := store.Load(context.Background(), vec.RegionCoord{})
	require.NoError(t, err)
	img, err := tilestore.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	_, _, _, a := img.At(20, 3).RGBA()
	assert.Equal(t, uint32(0xffff), a)

	// Изменение чанка перерисовывает его регион
	cancel := s.Watch(src)
	defer cancel()
	require.NoError(t, src.SetBlock(vec.BlockPos{X: 40, Y: 4, Z: 50}, world.Voxel{ID: block.Stone}))
	waitIdle(t, s)
	assert.Equal(t, 2, store.Saves(vec.RegionCoord{X: 1, Z: 1}))
}
