package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/blockmap/internal/api"
	"github.com/annel0/blockmap/internal/color"
	"github.com/annel0/blockmap/internal/config"
	"github.com/annel0/blockmap/internal/controls"
	"github.com/annel0/blockmap/internal/eventbus"
	"github.com/annel0/blockmap/internal/logging"
	"github.com/annel0/blockmap/internal/metrics"
	"github.com/annel0/blockmap/internal/observability"
	"github.com/annel0/blockmap/internal/overlay"
	"github.com/annel0/blockmap/internal/render"
	"github.com/annel0/blockmap/internal/scheduler"
	"github.com/annel0/blockmap/internal/storage"
	"github.com/annel0/blockmap/internal/tilestore"
	"github.com/annel0/blockmap/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const eventSource = "blockmap"

func main() {
	configPath := flag.String("config", "", "path to YAML config (default: $BLOCKMAP_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Logging.Name != "" {
		if err := logging.InitDefaultLogger(cfg.Logging.Name); err != nil {
			log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
		}
		defer logging.CloseDefaultLogger()
	}
	consoleLevel, fileLevel := logging.ParseLevel(cfg.Logging.Console), logging.ParseLevel(cfg.Logging.File)
	logging.SetDefaultLevels(consoleLevel, fileLevel)
	logging.GetLoggerManager().SetLevels(consoleLevel, fileLevel)
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🗺️  Запуск blockmap: мир %s (%s)", cfg.World.Name, cfg.World.Source)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry := observability.Noop
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err = observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			logging.Warn("OpenTelemetry недоступен: %v", err)
			shutdownTelemetry = observability.Noop
		}
	}

	// === ШИНА СОБЫТИЙ ===
	bus, err := openBus(cfg.EventBus)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения к шине событий: %v", err)
	}
	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("Не удалось подписать логгер событий: %v", err)
	}

	// === ДАННЫЕ МИРА ===
	source, closeSource, err := openSource(cfg, bus)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия мира: %v", err)
	}

	// === ТАЙЛЫ ===
	tiles, err := openTiles(cfg.Storage)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия хранилища тайлов: %v", err)
	}

	overrides, err := cfg.ColorOverrides()
	if err != nil {
		log.Fatalf("❌ Ошибка в секции colors: %v", err)
	}
	renderer := render.NewRenderer(source, color.NewDefaultResolver(overrides), cfg.RendererConfig())
	renderer.SetLogger(logging.GetRenderLogger())

	// === ПЛАНИРОВЩИК ===
	registry := controls.NewRegistry()
	worldControls := registry.World(cfg.World.Name)

	sched := scheduler.New(cfg.SchedulerConfig(), renderer, tiles, worldControls)
	sched.SetLogger(logging.GetSchedulerLogger())
	cancelWatch := sched.Watch(eventbus.NewFeed(bus, cfg.World.Name))

	// === МЕТРИКИ ===
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	exporter := metrics.NewExporter(promRegistry, sched, bus)
	sched.OnResult(exporter.ObserveResult)
	exporter.Start()

	// === ИГРОКИ И МАРКЕРЫ ===
	players, err := openPlayers(cfg.Storage.MariaDB)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия репозитория игроков: %v", err)
	}
	markers := overlay.NewManager(players, registry)

	// === HTTP API ===
	server, err := api.NewServer(api.Config{
		Addr:      fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		World:     cfg.World.Name,
		Mode:      cfg.Server.Mode,
		Scheduler: sched,
		Tiles:     tiles,
		Controls:  registry,
		Overlay:   markers,
		Registry:  promRegistry,
		Logger:    logging.GetAPILogger(),
	})
	if err != nil {
		log.Fatalf("❌ Ошибка создания HTTP API: %v", err)
	}
	go func() {
		if err := server.Start(); err != nil {
			logging.Error("❌ HTTP API остановлен с ошибкой: %v", err)
			stop()
		}
	}()

	if cfg.Scheduler.AutoStart {
		if err := sched.Start(); err != nil {
			log.Fatalf("❌ Ошибка запуска планировщика: %v", err)
		}
	}

	logging.Info("✅ blockmap запущен: API :%d, радиус %d регионов", cfg.Server.GetRESTPort(), cfg.Scheduler.Radius)

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, остановка...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки HTTP API: %v", err)
	}
	cancelWatch()
	sched.Stop()
	exporter.Stop()

	if err := players.Close(); err != nil {
		logging.Error("Ошибка закрытия репозитория игроков: %v", err)
	}
	if err := tiles.Close(); err != nil {
		logging.Error("Ошибка закрытия хранилища тайлов: %v", err)
	}
	if err := closeSource(); err != nil {
		logging.Error("Ошибка закрытия мира: %v", err)
	}
	if err := bus.Close(); err != nil {
		logging.Error("Ошибка закрытия шины событий: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки телеметрии: %v", err)
	}

	logging.Info("👋 blockmap остановлен")
}

func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	switch cfg.Driver {
	case config.BusJetStream:
		return eventbus.NewJetStreamBus(cfg.JetStreamConfig)
	default:
		return eventbus.NewMemoryBus(cfg.BufferSize), nil
	}
}

// openSource открывает источник данных мира. Изменения badger-хранилища
// публикуются в шину, планировщик слушает только шину.
func openSource(cfg *config.Config, bus eventbus.EventBus) (world.Source, func() error, error) {
	switch cfg.World.Source {
	case config.SourceBadger:
		store, err := storage.NewChunkStore(cfg.Storage.DataPath)
		if err != nil {
			return nil, nil, err
		}
		store.SetLogger(logging.GetStorageLogger())
		unforward := eventbus.Forward(store, bus, eventSource, cfg.World.Name)
		return store, func() error {
			unforward()
			return store.Close()
		}, nil
	default:
		gen := world.NewGenerator(cfg.World.Seed, cfg.World.Height)
		return world.NewGeneratedSource(gen, cfg.World.BorderChunks), func() error { return nil }, nil
	}
}

func openTiles(cfg config.StorageConfig) (tilestore.Store, error) {
	var store tilestore.Store
	switch cfg.Tiles {
	case config.TilesMemory:
		store = tilestore.NewMemoryStore()
	case config.TilesBadger:
		s, err := tilestore.NewBadgerStore(cfg.DataPath)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		s, err := tilestore.NewFileStore(cfg.TilesDir)
		if err != nil {
			return nil, err
		}
		store = s
	}

	if !cfg.Redis.Enabled {
		return store, nil
	}
	cached, err := tilestore.NewRedisStore(cfg.Redis.RedisConfig, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return cached, nil
}

func openPlayers(cfg config.MariaDBConfig) (storage.PlayerRepo, error) {
	if cfg.DSN == "" {
		return storage.NewMemoryPlayerRepo(), nil
	}
	return storage.NewMariaPlayerRepo(cfg.DSN)
}
