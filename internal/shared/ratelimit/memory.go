package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepEvery = 1024

// MemoryLimiter keeps one token bucket per key in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
	calls   int
}

type memoryEntry struct {
	limiter  *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		now:     now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, rule Rule) (Decision, error) {
	if l == nil || rule.disabled() {
		return Decision{Allowed: true}, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now)
	}

	bucketKey := key + "|" + strconv.Itoa(rule.Limit) + "/" + rule.Window.String()
	entry, ok := l.entries[bucketKey]
	if !ok {
		entry = &memoryEntry{
			limiter: rate.NewLimiter(rate.Every(rule.Window/time.Duration(rule.Limit)), rule.Limit),
			window:  rule.Window,
		}
		l.entries[bucketKey] = entry
	}
	entry.lastSeen = now

	if entry.limiter.AllowN(now, 1) {
		return Decision{Allowed: true, Remaining: int(entry.limiter.TokensAt(now))}, nil
	}

	reservation := entry.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	if delay <= 0 {
		delay = time.Millisecond
	}
	return Decision{Allowed: false, RetryAfter: delay}, nil
}

// sweep drops buckets idle for longer than two windows. They would be full again anyway.
func (l *MemoryLimiter) sweep(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > 2*entry.window {
			delete(l.entries, key)
		}
	}
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
