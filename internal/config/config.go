package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/blockmap/internal/color"
	"github.com/annel0/blockmap/internal/eventbus"
	"github.com/annel0/blockmap/internal/render"
	"github.com/annel0/blockmap/internal/scheduler"
	"github.com/annel0/blockmap/internal/tilestore"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world/block"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации рендерера карты.
type Config struct {
	World     WorldConfig       `yaml:"world"`
	Render    RenderConfig      `yaml:"render"`
	Scheduler SchedulerConfig   `yaml:"scheduler"`
	Storage   StorageConfig     `yaml:"storage"`
	EventBus  EventBusConfig    `yaml:"eventbus"`
	Server    ServerConfig      `yaml:"server"`
	Logging   LoggingConfig     `yaml:"logging"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
	Colors    map[string]string `yaml:"colors"` // имя блока -> "#RRGGBB"
}

// Источники данных мира
const (
	SourceGenerated = "generated"
	SourceBadger    = "badger"
)

// Хранилища тайлов
const (
	TilesMemory = "memory"
	TilesFile   = "file"
	TilesBadger = "badger"
)

// Шины событий
const (
	BusMemory    = "memory"
	BusJetStream = "jetstream"
)

type WorldConfig struct {
	Name         string `yaml:"name"`
	Source       string `yaml:"source"`
	Seed         int64  `yaml:"seed"`
	Height       int    `yaml:"height"`
	BorderChunks int    `yaml:"border_chunks"`
	SpawnX       int    `yaml:"spawn_x"`
	SpawnZ       int    `yaml:"spawn_z"`
}

type RenderConfig struct {
	ChunksPerRegion int  `yaml:"chunks_per_region"`
	ScanTop         int  `yaml:"scan_top"` // -1: от высоты мира
	ScanBottom      int  `yaml:"scan_bottom"`
	Shading         bool `yaml:"shading"`
}

type SchedulerConfig struct {
	Radius     int           `yaml:"radius"`
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	AutoStart  bool          `yaml:"auto_start"`
}

type StorageConfig struct {
	DataPath string        `yaml:"data_path"`
	Tiles    string        `yaml:"tiles"`
	TilesDir string        `yaml:"tiles_dir"`
	Redis    RedisConfig   `yaml:"redis"`
	MariaDB  MariaDBConfig `yaml:"mariadb"`
}

// RedisConfig кеш тайлов поверх основного хранилища
type RedisConfig struct {
	tilestore.RedisConfig `yaml:",inline"`

	Enabled bool `yaml:"enabled"`
}

type MariaDBConfig struct {
	DSN string `yaml:"dsn"` // пустой: позиции игроков в памяти
}

type EventBusConfig struct {
	eventbus.JetStreamConfig `yaml:",inline"`

	Driver     string `yaml:"driver"`
	BufferSize int    `yaml:"buffer_size"`
}

type ServerConfig struct {
	RESTPort int    `yaml:"rest_port"`
	Mode     string `yaml:"mode"` // gin mode: debug, release, test
}

type LoggingConfig struct {
	Name    string `yaml:"name"` // пустое: только консоль
	Console string `yaml:"console_level"`
	File    string `yaml:"file_level"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Default конфигурация по умолчанию: сгенерированный мир, тайлы в файлах, шина в памяти
func Default() *Config {
	rd := render.DefaultConfig()
	sd := scheduler.DefaultConfig()
	return &Config{
		World: WorldConfig{
			Name:         "overworld",
			Source:       SourceGenerated,
			Seed:         1,
			Height:       128,
			BorderChunks: 256,
		},
		Render: RenderConfig{
			ChunksPerRegion: rd.ChunksPerRegion,
			ScanTop:         rd.ScanTop,
			ScanBottom:      rd.ScanBottom,
			Shading:         rd.Shading,
		},
		Scheduler: SchedulerConfig{
			Radius:     sd.Radius,
			Workers:    sd.Workers,
			QueueSize:  sd.QueueSize,
			MaxRetries: sd.MaxRetries,
			RetryDelay: sd.RetryDelay,
			AutoStart:  true,
		},
		Storage: StorageConfig{
			DataPath: "data",
			Tiles:    TilesFile,
			TilesDir: "data/tiles",
			Redis: RedisConfig{RedisConfig: tilestore.RedisConfig{
				Addr:      "localhost:6379",
				TTL:       10 * time.Minute,
				KeyPrefix: "blockmap:tile:",
			}},
		},
		EventBus: EventBusConfig{
			Driver:     BusMemory,
			BufferSize: 1024,
			JetStreamConfig: eventbus.JetStreamConfig{
				URL:       "nats://127.0.0.1:4222",
				Stream:    "BLOCKMAP",
				Retention: 24 * time.Hour,
			},
		},
		Server: ServerConfig{Mode: "release"},
		Logging: LoggingConfig{
			Console: "info",
			File:    "trace",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4318",
			ServiceName: "blockmap",
		},
	}
}

// GetRESTPort возвращает порт HTTP API с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BLOCKMAP_REST_PORT", 8100)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл поверх значений по умолчанию.
// Если path == "", берётся ENV BLOCKMAP_CONFIG; файл не задан - дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("BLOCKMAP_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения после загрузки
func (c *Config) Validate() error {
	switch c.World.Source {
	case SourceGenerated, SourceBadger:
	default:
		return fmt.Errorf("world.source: unknown source %q", c.World.Source)
	}
	if c.World.Height <= 0 {
		return fmt.Errorf("world.height must be positive, got %d", c.World.Height)
	}
	if c.Render.ChunksPerRegion <= 0 {
		return fmt.Errorf("render.chunks_per_region must be positive, got %d", c.Render.ChunksPerRegion)
	}
	if c.Scheduler.Radius < 0 {
		return fmt.Errorf("scheduler.radius must not be negative, got %d", c.Scheduler.Radius)
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be positive, got %d", c.Scheduler.Workers)
	}
	switch c.Storage.Tiles {
	case TilesMemory, TilesFile, TilesBadger:
	default:
		return fmt.Errorf("storage.tiles: unknown store %q", c.Storage.Tiles)
	}
	switch c.EventBus.Driver {
	case BusMemory, BusJetStream:
	default:
		return fmt.Errorf("eventbus.driver: unknown driver %q", c.EventBus.Driver)
	}
	if _, err := c.ColorOverrides(); err != nil {
		return err
	}
	return nil
}

// ColorOverrides разбирает секцию colors в статические цвета блоков
func (c *Config) ColorOverrides() (map[block.ID]color.RGB, error) {
	out := make(map[block.ID]color.RGB, len(c.Colors))
	for name, hex := range c.Colors {
		id, ok := block.ByName(name)
		if !ok {
			return nil, fmt.Errorf("colors: unknown block %q", name)
		}
		rgb, err := color.ParseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("colors.%s: %w", name, err)
		}
		out[id] = rgb
	}
	return out, nil
}

// RendererConfig параметры рендерера тайлов
func (c *Config) RendererConfig() render.Config {
	return render.Config{
		ChunksPerRegion: c.Render.ChunksPerRegion,
		ScanTop:         c.Render.ScanTop,
		ScanBottom:      c.Render.ScanBottom,
		Shading:         c.Render.Shading,
	}
}

// SchedulerConfig параметры планировщика; центр спирали - регион точки спавна
func (c *Config) SchedulerConfig() scheduler.Config {
	spawn := vec.BlockToChunk(c.World.SpawnX, c.World.SpawnZ)
	return scheduler.Config{
		Center:          spawn.Region(c.Render.ChunksPerRegion),
		Radius:          c.Scheduler.Radius,
		ChunksPerRegion: c.Render.ChunksPerRegion,
		Workers:         c.Scheduler.Workers,
		QueueSize:       c.Scheduler.QueueSize,
		MaxRetries:      c.Scheduler.MaxRetries,
		RetryDelay:      c.Scheduler.RetryDelay,
	}
}
