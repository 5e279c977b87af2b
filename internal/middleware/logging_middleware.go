package middleware

import (
	"net/http"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// ActorKey - ключ gin.Context, под которым JWT-проверка кладёт игрока.
const ActorKey = "actor"

// RequestLogger пишет по строке на запрос с trace-ID и игроком.
type RequestLogger struct {
	logger *logging.Logger
}

func NewRequestLogger(l *logging.Logger) *RequestLogger {
	if l == nil {
		l = logging.GetAPILogger()
	}
	return &RequestLogger{logger: l}
}

// traceID берёт ID из span otelgin; без трассировки генерирует свой.
func traceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := traceID(c)
		c.Set("trace_id", id)
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		actor := "-"
		if v, ok := c.Get(ActorKey); ok {
			if a, ok := v.(uuid.UUID); ok {
				actor = a.String()
			}
		}
		status := c.Writer.Status()
		line := "[HTTP] %s %s %d %s %dB actor=%s trace=%s"
		args := []interface{}{c.Request.Method, route, status, time.Since(start), c.Writer.Size(), actor, id}

		switch {
		case status >= http.StatusInternalServerError:
			rl.logger.Error(line, args...)
		case status == http.StatusForbidden:
			rl.logger.Warn(line, args...)
		case status >= http.StatusBadRequest:
			rl.logger.Info(line, args...)
		default:
			rl.logger.Debug(line, args...)
		}
	}
}
