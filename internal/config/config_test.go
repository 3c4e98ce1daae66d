package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/blockmap/internal/color"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blockmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("BLOCKMAP_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, cfg.World.Source)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
world:
  name: nether
  spawn_x: -1
  spawn_z: 700
render:
  chunks_per_region: 16
  shading: false
scheduler:
  radius: 3
  retry_delay: 250ms
storage:
  tiles: badger
  redis:
    enabled: true
    addr: cache:6379
    ttl: 1m
eventbus:
  driver: jetstream
  url: nats://bus:4222
colors:
  grass_block: "#00ff00"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nether", cfg.World.Name)
	assert.Equal(t, 128, cfg.World.Height, "не заданные поля остаются по умолчанию")
	assert.False(t, cfg.Render.Shading)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.RetryDelay)
	assert.Equal(t, 4, cfg.Scheduler.Workers)
	assert.Equal(t, TilesBadger, cfg.Storage.Tiles)
	assert.True(t, cfg.Storage.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Storage.Redis.TTL)
	assert.Equal(t, "blockmap:tile:", cfg.Storage.Redis.KeyPrefix)
	assert.Equal(t, BusJetStream, cfg.EventBus.Driver)
	assert.Equal(t, "nats://bus:4222", cfg.EventBus.URL)
	assert.Equal(t, "BLOCKMAP", cfg.EventBus.Stream)

	overrides, err := cfg.ColorOverrides()
	require.NoError(t, err)
	assert.Equal(t, map[block.ID]color.RGB{block.Grass: 0x00FF00}, overrides)

	sc := cfg.SchedulerConfig()
	// блок (-1, 700) -> чанк (-1, 43) -> регион (-1, 2) при 16 чанках
	assert.Equal(t, vec.RegionCoord{X: -1, Z: 2}, sc.Center)
	assert.Equal(t, 16, sc.ChunksPerRegion)
	assert.Equal(t, 3, sc.Radius)

	rc := cfg.RendererConfig()
	assert.Equal(t, 16, rc.ChunksPerRegion)
	assert.False(t, rc.Shading)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "world:\n  seed: 42\n")
	t.Setenv("BLOCKMAP_CONFIG", path)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.World.Seed)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"source":  "world:\n  source: floppy\n",
		"tiles":   "storage:\n  tiles: s3\n",
		"driver":  "eventbus:\n  driver: kafka\n",
		"workers": "scheduler:\n  workers: 0\n",
		"block":   "colors:\n  unobtainium: \"#ffffff\"\n",
		"hex":     "colors:\n  grass_block: green\n",
		"yaml":    "world: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestRESTPortFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("BLOCKMAP_REST_PORT", "")
	assert.Equal(t, 8100, s.GetRESTPort())

	t.Setenv("BLOCKMAP_REST_PORT", "9000")
	assert.Equal(t, 9000, s.GetRESTPort())

	t.Setenv("BLOCKMAP_REST_PORT", "oops")
	assert.Equal(t, 8100, s.GetRESTPort())

	s.RESTPort = 7000
	assert.Equal(t, 7000, s.GetRESTPort())
}
