package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the distributed trace identifier between services.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key holding the trace identifier.
	TraceIDKey = "trace_id"

	requestContextKey = "request_context"
)

// RequestContext captures request-scoped metadata that handlers and the access
// logger read back after routing.
type RequestContext struct {
	TraceID   string
	ActorID   string
	IP        string
	UserAgent string
}

// EnrichContext seeds each request with a trace identifier and metadata
// snapshot. Upstream trace identifiers are reused so a request keeps one trace
// across the edge and this service.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the trace identifier seeded by EnrichContext, or an empty
// string when the middleware did not run.
func GetTraceID(c *gin.Context) string {
	id, _ := c.Value(TraceIDKey).(string)
	return id
}

// GetRequestContext returns the request metadata snapshot. Callers always get
// a non-nil value so field access stays safe on bare test contexts.
func GetRequestContext(c *gin.Context) *RequestContext {
	if reqCtx, ok := c.Value(requestContextKey).(*RequestContext); ok {
		return reqCtx
	}
	return &RequestContext{}
}
