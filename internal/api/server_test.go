package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/annel0/blockmap/internal/controls"
	"github.com/annel0/blockmap/internal/logging"
	"github.com/annel0/blockmap/internal/middleware"
	"github.com/annel0/blockmap/internal/overlay"
	"github.com/annel0/blockmap/internal/scheduler"
	"github.com/annel0/blockmap/internal/storage"
	"github.com/annel0/blockmap/internal/tilestore"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	mu          sync.Mutex
	state       scheduler.State
	fullRenders int
	invalidated []vec.ChunkCoord
}

func (f *fakeScheduler) Stats() scheduler.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return scheduler.Stats{State: f.state, Completed: 7}
}

func (f *fakeScheduler) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != scheduler.Running {
		return scheduler.ErrNotRunning
	}
	f.state = scheduler.Paused
	return nil
}

func (f *fakeScheduler) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != scheduler.Paused {
		return scheduler.ErrNotPaused
	}
	f.state = scheduler.Running
	return nil
}

func (f *fakeScheduler) FullRender() error {
	f.mu.Lock()
	f.fullRenders++
	f.mu.Unlock()
	return nil
}

func (f *fakeScheduler) Invalidate(chunk vec.ChunkCoord) {
	f.mu.Lock()
	f.invalidated = append(f.invalidated, chunk)
	f.mu.Unlock()
}

type testEnv struct {
	server *Server
	sched  *fakeScheduler
	tiles  *tilestore.MemoryStore
	reg    *controls.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg := controls.NewRegistry()
	reg.World("overworld")

	players := storage.NewMemoryPlayerRepo()
	require.NoError(t, players.Save(context.Background(), storage.PlayerPosition{
		ID: "p1", Name: "alice", World: "overworld", Pos: vec.Pt(1, 2),
	}))

	env := &testEnv{
		sched: &fakeScheduler{state: scheduler.Running},
		tiles: tilestore.NewMemoryStore(),
		reg:   reg,
	}
	srv, err := NewServer(Config{
		World:     "overworld",
		Mode:      gin.TestMode,
		Scheduler: env.sched,
		Tiles:     env.tiles,
		Controls:  reg,
		Overlay:   overlay.NewManager(players, reg),
		Registry:  prometheus.NewRegistry(),
		Logger:    logging.NewConsoleLogger("api", &bytes.Buffer{}),
	})
	require.NoError(t, err)
	env.server = srv
	return env
}

func (e *testEnv) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) GenericResponse {
	t.Helper()
	var resp GenericResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestNewServerRequiresDeps(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			World     string `json:"world"`
			Scheduler struct {
				State     string `json:"state"`
				Completed uint64 `json:"completed"`
			} `json:"scheduler"`
			Process ProcessSnapshot `json:"process"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "overworld", resp.Data.World)
	assert.Equal(t, "running", resp.Data.Scheduler.State)
	assert.Equal(t, uint64(7), resp.Data.Scheduler.Completed)
	assert.Positive(t, resp.Data.Process.Goroutines)
}

func TestSchedulerTransitions(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/scheduler/pause", nil).Code)
	assert.Equal(t, scheduler.Paused, env.sched.Stats().State)

	rec := env.do(http.MethodPost, "/api/scheduler/pause", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, decodeResponse(t, rec).Success)

	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/scheduler/resume", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/scheduler/full-render", nil).Code)
	assert.Equal(t, 1, env.sched.fullRenders)
}

func TestInvalidate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/scheduler/invalidate", []byte(`{"x":0,"z":-3}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []vec.ChunkCoord{{X: 0, Z: -3}}, env.sched.invalidated)

	rec = env.do(http.MethodPost, "/api/scheduler/invalidate", []byte(`{"x":1}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorldControls(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.reg.Lookup("overworld")

	env.do(http.MethodPost, "/api/worlds/overworld/renders/pause", nil)
	assert.True(t, w.RendersPaused())

	env.do(http.MethodPost, "/api/worlds/overworld/renders/toggle", nil)
	assert.False(t, w.RendersPaused())

	env.do(http.MethodPost, "/api/worlds/overworld/renders/toggle", nil)
	env.do(http.MethodPost, "/api/worlds/overworld/renders/resume", nil)
	assert.False(t, w.RendersPaused())

	rec := env.do(http.MethodPost, "/api/worlds/nether/renders/pause", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	_, created := env.reg.Lookup("nether")
	assert.False(t, created)
}

func TestHidePlayerExcludesMarker(t *testing.T) {
	env := newTestEnv(t)

	markers := func() int {
		rec := env.do(http.MethodGet, "/api/worlds/overworld/markers", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var layers []struct {
			Key     string            `json:"key"`
			Markers []json.RawMessage `json:"markers"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layers))
		require.NotEmpty(t, layers)
		return len(layers[0].Markers)
	}

	assert.Equal(t, 1, markers())

	rec := env.do(http.MethodPost, "/api/worlds/overworld/players/p1/hide", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, markers())

	rec = env.do(http.MethodGet, "/api/worlds/overworld/players/hidden", nil)
	assert.Contains(t, rec.Body.String(), "p1")

	env.do(http.MethodPost, "/api/worlds/overworld/players/p1/show", nil)
	assert.Equal(t, 1, markers())
}

func TestTiles(t *testing.T) {
	env := newTestEnv(t)
	region := vec.RegionCoord{X: -2, Z: 5}
	require.NoError(t, env.tiles.Save(context.Background(), region, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	rec := env.do(http.MethodGet, "/tiles/overworld/-2_5.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := tilestore.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/tiles/overworld/0_0.png", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/tiles/overworld/nope.png", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/tiles/nether/-2_5.png", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/health", nil)

	rec := env.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blockmap_api_http_request_duration_seconds")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5e9))
	assert.Equal(t, "2м 3с", formatUptime(123e9))
	assert.Equal(t, "1ч 0м 0с", formatUptime(3600e9))
}
