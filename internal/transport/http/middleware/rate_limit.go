package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitProblemType  = "https://authz.loadtrail.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// RateLimitStore defines the persistence operations required by the middleware.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// IdentifierFunc extracts the identity a limit is scoped to.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces sliding-window limits backed by a shared store. Store
// failures fail open: a broken limiter must not take the API down with it.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// verdict is the outcome of one window evaluation.
type verdict struct {
	allowed    bool
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// ProblemDetails is an RFC 9457 payload for rejected requests.
type ProblemDetails struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Instance   string         `json:"instance"`
	RetryAfter int            `json:"retry_after"`
	TraceID    string         `json:"trace_id,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ActorIdentifier scopes a limit to the authenticated actor, falling back to
// the client IP for anonymous requests.
func ActorIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		if actorID := GetActorID(c); actorID != "" {
			return actorID, true
		}
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// RateLimit returns a Gin middleware enforcing the rule. Misconfigured rules
// degrade to a pass-through rather than blocking traffic.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rl.store == nil || rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	name := rule.Name
	if name == "" {
		name = "default"
	}

	return func(c *gin.Context) {
		identifier, ok := rule.Identifier(c)
		if !ok || identifier == "" {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", name, identifier)

		v, err := rl.evaluate(c.Request.Context(), rule, key)
		if err != nil {
			rl.logger.Warn("rate limit check failed, allowing request",
				zap.String("rule", name),
				zap.String("identifier", identifier),
				zap.Error(err),
			)
			c.Next()
			return
		}

		writeRateLimitHeaders(c, rule.Limit, v)

		if !v.allowed {
			rl.reject(c, v)
			return
		}

		c.Next()
	}
}

// evaluate trims the window, counts what is left and records the attempt when
// there is room. The reset point is the oldest surviving attempt plus one
// window, so clients see when capacity actually frees up.
func (rl *RateLimiter) evaluate(ctx context.Context, rule RateLimitRule, key string) (verdict, error) {
	now := rl.now()

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return verdict{}, err
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return verdict{}, err
	}

	oldest, found, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return verdict{}, err
	}

	reset := now.Add(rule.Window)
	if found {
		reset = oldest.Add(rule.Window)
	}

	retryAfter := reset.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}

	if count >= rule.Limit {
		return verdict{allowed: false, remaining: 0, reset: reset, retryAfter: retryAfter}, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return verdict{}, err
	}

	remaining := rule.Limit - count - 1
	if remaining < 0 {
		remaining = 0
	}

	return verdict{allowed: true, remaining: remaining, reset: reset, retryAfter: retryAfter}, nil
}

func writeRateLimitHeaders(c *gin.Context, limit int, v verdict) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(v.reset.Unix(), 10))

	if !v.allowed {
		headers.Set("Retry-After", strconv.Itoa(retrySeconds(v)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, v verdict) {
	seconds := retrySeconds(v)

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}

func retrySeconds(v verdict) int {
	seconds := int(math.Ceil(v.retryAfter.Seconds()))
	if seconds < 0 {
		return 0
	}
	return seconds
}
