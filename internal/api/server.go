// Package api HTTP API оператора карты: состояние рендера, управление, маркеры и тайлы.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/blockmap/internal/controls"
	"github.com/annel0/blockmap/internal/logging"
	"github.com/annel0/blockmap/internal/middleware"
	"github.com/annel0/blockmap/internal/overlay"
	"github.com/annel0/blockmap/internal/scheduler"
	"github.com/annel0/blockmap/internal/tilestore"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Scheduler операции планировщика, доступные через API
type Scheduler interface {
	Stats() scheduler.Stats
	Pause() error
	Resume() error
	FullRender() error
	Invalidate(chunk vec.ChunkCoord)
}

// Config содержит зависимости HTTP сервера
type Config struct {
	Addr      string // адрес для запуска сервера
	World     string // мир, которым управляет планировщик
	Mode      string // режим gin; пустой - release
	Scheduler Scheduler
	Tiles     tilestore.Store
	Controls  *controls.Registry
	Overlay   *overlay.Manager
	Registry  *prometheus.Registry // nil - дефолтный регистр
	Logger    *logging.Logger
}

// Server HTTP API
type Server struct {
	cfg     Config
	router  *gin.Engine
	http    *http.Server
	metrics *ProcessMetrics
	logger  *logging.Logger
}

// NewServer создает сервер и настраивает маршруты
func NewServer(cfg Config) (*Server, error) {
	if cfg.Scheduler == nil || cfg.Tiles == nil || cfg.Controls == nil {
		return nil, fmt.Errorf("api: scheduler, tiles and controls are required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8100"
	}
	if cfg.Overlay == nil {
		cfg.Overlay = overlay.NewManager(nil, cfg.Controls)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	mode := cfg.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware("blockmap_api"))
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("blockmap_api", cfg.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	s := &Server{
		cfg:     cfg,
		router:  router,
		metrics: NewProcessMetrics(),
		logger:  cfg.Logger,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.setupRoutes()
	return s, nil
}

// Handler возвращает http.Handler (тесты)
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	// CORS для веб-клиента карты
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/tiles/:world/:key", s.handleTile)

	api := s.router.Group("/api")
	{
		api.GET("/status", s.handleStatus)

		sched := api.Group("/scheduler")
		sched.POST("/pause", s.handleSchedulerPause)
		sched.POST("/resume", s.handleSchedulerResume)
		sched.POST("/full-render", s.handleFullRender)
		sched.POST("/invalidate", s.handleInvalidate)

		w := api.Group("/worlds/:world")
		w.Use(s.worldMiddleware())
		w.GET("/controls", s.handleControls)
		w.POST("/renders/pause", s.handleRendersPause)
		w.POST("/renders/resume", s.handleRendersResume)
		w.POST("/renders/toggle", s.handleRendersToggle)
		w.GET("/players/hidden", s.handleHiddenPlayers)
		w.POST("/players/:id/hide", s.handleHidePlayer)
		w.POST("/players/:id/show", s.handleShowPlayer)
		w.GET("/markers", s.handleMarkers)
	}
}

// Start запускает HTTP сервер; блокирует до Shutdown
func (s *Server) Start() error {
	s.logger.Info("🌐 HTTP API слушает %s", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно останавливает сервер
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
