package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appLogger "github.com/loadtrail/freight-authz/internal/infra/logger"
)

// Logger writes one access log line per request with correlation identifiers
// and a masked client IP.
func Logger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		requestID := requestIDFromContext(c.Request.Context())
		if requestID != "" {
			c.Set("request_id", requestID)
		}

		fields := accessFields(c, requestID, time.Since(start))
		if len(c.Errors) > 0 {
			log.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}

		log.Info("request completed", fields...)
	}
}

func accessFields(c *gin.Context, requestID string, latency time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("trace_id", GetTraceID(c)),
		zap.String("request_id", requestID),
		zap.Int("status", c.Writer.Status()),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Duration("latency", latency),
		zap.String("client_ip", appLogger.MaskIP(c.ClientIP())),
	}

	if actorID := GetActorID(c); actorID != "" {
		fields = append(fields, zap.String("actor_id", actorID))
	}

	return fields
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(appLogger.RequestIDKey{}).(string)
	return id
}
