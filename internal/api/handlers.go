package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/annel0/blockmap/internal/controls"
	"github.com/annel0/blockmap/internal/tilestore"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/gin-gonic/gin"
)

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// InvalidateRequest чанк для принудительной перерисовки
type InvalidateRequest struct {
	X *int `json:"x" binding:"required"`
	Z *int `json:"z" binding:"required"`
}

// ControlsResponse состояние управления миром
type ControlsResponse struct {
	World         string   `json:"world"`
	RendersPaused bool     `json:"renders_paused"`
	HiddenPlayers []string `json:"hidden_players"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, GenericResponse{Success: false, Message: msg})
}

func respondOK(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: msg, Data: data})
}

// worldMiddleware находит мир по :world
func (s *Server) worldMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		w, found := s.cfg.Controls.Lookup(c.Param("world"))
		if !found {
			respondError(c, http.StatusNotFound, "Мир не найден")
			return
		}
		c.Set("world", w)
		c.Next()
	}
}

func worldFrom(c *gin.Context) *controls.World {
	return c.MustGet("world").(*controls.World)
}

func controlsOf(w *controls.World) ControlsResponse {
	return ControlsResponse{
		World:         w.Name(),
		RendersPaused: w.RendersPaused(),
		HiddenPlayers: w.Hidden(),
	}
}

// handleHealth проверка состояния сервера
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStatus состояние планировщика и процесса
func (s *Server) handleStatus(c *gin.Context) {
	respondOK(c, "Статус получен", gin.H{
		"world":     s.cfg.World,
		"scheduler": s.cfg.Scheduler.Stats(),
		"process":   s.metrics.Snapshot(),
	})
}

func (s *Server) schedulerTransition(c *gin.Context, op func() error, msg string) {
	if err := op(); err != nil {
		respondError(c, http.StatusConflict, err.Error())
		return
	}
	s.logger.Info("%s (%s)", msg, c.ClientIP())
	respondOK(c, msg, s.cfg.Scheduler.Stats())
}

func (s *Server) handleSchedulerPause(c *gin.Context) {
	s.schedulerTransition(c, s.cfg.Scheduler.Pause, "Рендер приостановлен")
}

func (s *Server) handleSchedulerResume(c *gin.Context) {
	s.schedulerTransition(c, s.cfg.Scheduler.Resume, "Рендер продолжен")
}

func (s *Server) handleFullRender(c *gin.Context) {
	s.schedulerTransition(c, s.cfg.Scheduler.FullRender, "Полный рендер запущен")
}

// handleInvalidate ставит тайл чанка в очередь перерисовки
func (s *Server) handleInvalidate(c *gin.Context) {
	var req InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	chunk := vec.ChunkCoord{X: *req.X, Z: *req.Z}
	s.cfg.Scheduler.Invalidate(chunk)
	respondOK(c, "Чанк поставлен в очередь", gin.H{"chunk": chunk.String()})
}

func (s *Server) handleControls(c *gin.Context) {
	respondOK(c, "Управление миром", controlsOf(worldFrom(c)))
}

func (s *Server) handleRendersPause(c *gin.Context) {
	w := worldFrom(c)
	w.PauseRenders(true)
	respondOK(c, "Рендер мира приостановлен", controlsOf(w))
}

func (s *Server) handleRendersResume(c *gin.Context) {
	w := worldFrom(c)
	w.PauseRenders(false)
	respondOK(c, "Рендер мира продолжен", controlsOf(w))
}

func (s *Server) handleRendersToggle(c *gin.Context) {
	w := worldFrom(c)
	w.TogglePause()
	respondOK(c, "Пауза рендера переключена", controlsOf(w))
}

func (s *Server) handleHiddenPlayers(c *gin.Context) {
	respondOK(c, "Скрытые игроки", worldFrom(c).Hidden())
}

func (s *Server) handleHidePlayer(c *gin.Context) {
	w := worldFrom(c)
	if !w.Hide(c.Param("id")) {
		respondOK(c, "Игрок уже скрыт", controlsOf(w))
		return
	}
	respondOK(c, "Игрок скрыт", controlsOf(w))
}

func (s *Server) handleShowPlayer(c *gin.Context) {
	w := worldFrom(c)
	if !w.Show(c.Param("id")) {
		respondOK(c, "Игрок не был скрыт", controlsOf(w))
		return
	}
	respondOK(c, "Игрок показан", controlsOf(w))
}

// handleMarkers слои маркеров мира в формате клиента
func (s *Server) handleMarkers(c *gin.Context) {
	data, err := s.cfg.Overlay.Export(c.Request.Context(), worldFrom(c).Name())
	if err != nil {
		s.logger.Error("Ошибка экспорта маркеров: %v", err)
		respondError(c, http.StatusInternalServerError, "Ошибка экспорта маркеров")
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// handleTile отдаёт PNG тайла "{x}_{z}.png"
func (s *Server) handleTile(c *gin.Context) {
	if c.Param("world") != s.cfg.World {
		respondError(c, http.StatusNotFound, "Мир не найден")
		return
	}
	region, err := tilestore.ParseKey(c.Param("key"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Неверное имя тайла")
		return
	}
	data, err := s.cfg.Tiles.Load(c.Request.Context(), region)
	if errors.Is(err, tilestore.ErrTileNotFound) {
		respondError(c, http.StatusNotFound, "Тайл ещё не отрендерен")
		return
	}
	if err != nil {
		s.logger.Error("Ошибка чтения тайла %s: %v", region, err)
		respondError(c, http.StatusInternalServerError, "Ошибка чтения тайла")
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/png", data)
}
