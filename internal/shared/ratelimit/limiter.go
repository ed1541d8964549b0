package ratelimit

import (
	"context"
	"time"
)

// Rule allows Limit requests per Window for a single key.
type Rule struct {
	Limit  int
	Window time.Duration
}

// PerMinute builds a rule of n requests per minute.
func PerMinute(n int) Rule {
	return Rule{Limit: n, Window: time.Minute}
}

func (r Rule) disabled() bool {
	return r.Limit <= 0 || r.Window <= 0
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the request identified by key may proceed.
// Implementations must fail open: when the backend is unavailable they return
// an allowed decision together with the error.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
}
