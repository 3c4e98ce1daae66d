package middleware

import (
	"time"

	"github.com/annel0/blockmap/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader заголовок с идентификатором запроса в ответе
const RequestIDHeader = "X-Request-ID"

// RequestLogger снабжает каждый HTTP-запрос идентификатором и пишет краткие логи.
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger создаёт middleware. nil - глобальный логгер.
func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.Default()
	}
	return &RequestLogger{logger: logger}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// trace-id из OpenTelemetry, если otelgin уже создал span
		span := trace.SpanFromContext(c.Request.Context())
		var requestID string
		switch {
		case span.SpanContext().IsValid():
			requestID = span.SpanContext().TraceID().String()
		case c.GetHeader(RequestIDHeader) != "":
			requestID = c.GetHeader(RequestIDHeader)
		default:
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		rl.logger.Debug("[HTTP] ▶ %s %s ip=%s id=%s", method, path, c.ClientIP(), requestID)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		if status >= 500 {
			rl.logger.Warn("[HTTP] ◀ %s %s %d %s id=%s", method, path, status, latency, requestID)
			return
		}
		rl.logger.Info("[HTTP] ◀ %s %s %d %s id=%s", method, path, status, latency, requestID)
	}
}
