package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/loadtrail/freight-authz/internal/usecase"
)

const (
	// ActorIDHeader carries the authenticated user ID set by the API gateway.
	// Authentication itself happens upstream; this service only authorizes.
	ActorIDHeader = "X-Actor-ID"
	// ActorIDKey is the context key for the acting user ID.
	ActorIDKey = "actor_id"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// Identity extracts the gateway-authenticated actor ID into the request context.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(ActorIDHeader))
		if actorID != "" {
			c.Set(ActorIDKey, actorID)
			if reqCtx := GetRequestContext(c); reqCtx != nil {
				reqCtx.ActorID = actorID
			}
		}

		c.Next()
	}
}

// RequireActor rejects requests that arrive without an actor identity.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetActorID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing actor identity"))
			return
		}

		c.Next()
	}
}

// RequirePermission resolves the actor's effective permissions and rejects
// requests lacking the named permission. Unknown actors resolve to an empty
// permission set, so they fall out as forbidden rather than erroring.
func RequirePermission(resolver *usecase.RoleResolver, permission string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		actorID := GetActorID(c)
		if actorID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing actor identity"))
			return
		}

		allowed, err := resolver.HasPermission(c.Request.Context(), actorID, permission)
		if err != nil {
			logger.Error("permission resolution failed",
				zap.String("actor_id", actorID),
				zap.String("permission", permission),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "failed to resolve permissions"))
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// GetActorID retrieves the acting user ID from the context.
func GetActorID(c *gin.Context) string {
	if actorID, exists := c.Get(ActorIDKey); exists {
		if id, ok := actorID.(string); ok {
			return id
		}
	}
	return ""
}
