package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"usely-backend/internal/shared/ratelimit"
	"usely-backend/internal/shared/server/respond"
	"usely-backend/internal/shared/telemetry"
)

const (
	defaultRateLimitGroup = "DEFAULT"
)

type RateLimitConfig struct {
	Rules        map[string]ratelimit.Rule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	// IPGroups are keyed by client IP even when a principal is known.
	IPGroups map[string]bool
	Limiter  ratelimit.Limiter
}

// RateLimit rejects requests over the per-group budget with 429 rate_limited.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewMemoryLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := ""
		if !cfg.IPGroups[group] {
			principal = principalFromContext(c)
		}
		if principal == "" {
			principal = "ip:" + strings.TrimSpace(c.ClientIP())
		}
		decision, err := cfg.Limiter.Allow(c.Request.Context(), principal+"|"+group, rule)
		if err != nil {
			telemetry.Warn("ratelimit.backend_error", map[string]any{
				"request_id": RequestIDFromContext(c),
				"group":      group,
				"error":      err,
			})
		}
		if decision.Allowed {
			c.Next()
			return
		}
		retryAfterMs := int(decision.RetryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests", gin.H{
			"retryAfterMs": retryAfterMs,
			"group":        group,
		})
	}
}

func principalFromContext(c *gin.Context) string {
	if keyID := strings.TrimSpace(APIKeyIDFromContext(c)); keyID != "" {
		return "key:" + keyID
	}
	if accountID := strings.TrimSpace(AccountIDFromContext(c)); accountID != "" {
		return "account:" + accountID
	}
	if userID := strings.TrimSpace(UserIDFromContext(c)); userID != "" {
		return "user:" + userID
	}
	return ""
}
