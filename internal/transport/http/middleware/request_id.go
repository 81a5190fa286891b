package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loadtrail/freight-authz/internal/infra/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates the caller's correlation identifier, minting one when
// the gateway did not supply it. The identifier is echoed back on the response
// and stored in the request context for access logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, reqID)
		c.Request = c.Request.WithContext(withRequestID(c.Request.Context(), reqID))

		c.Next()
	}
}

func withRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, logger.RequestIDKey{}, reqID)
}
