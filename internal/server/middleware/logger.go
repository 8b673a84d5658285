package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oncepay/oncepay/internal/pkg/logger"
)

// Logger emits one access log line per request after the handler chain ran.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		c.Next()

		// Keep liveness probes out of the access log.
		if path == "/health" {
			return
		}

		latency := time.Since(startTime)

		fields := []zap.Field{
			zap.String("component", "http.access"),
			zap.Int("status_code", c.Writer.Status()),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		}
		if replayed := c.Writer.Header().Get("X-Idempotency-Replayed"); replayed != "" {
			fields = append(fields, zap.Bool("idempotency_replayed", true))
		}

		logger.FromContext(c.Request.Context()).With(fields...).Info("http request completed")
	}
}
