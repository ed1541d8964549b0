package waitlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Guard remembers client keys that signed up recently.
type Guard interface {
	// Check returns how long clientKey must still wait, or 0.
	Check(ctx context.Context, clientKey string) (time.Duration, error)
	// Mark records a signup for clientKey.
	Mark(ctx context.Context, clientKey string) error
}

type MemoryGuard struct {
	mu     sync.Mutex
	until  map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func NewMemoryGuard(window time.Duration, now func() time.Time) *MemoryGuard {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = CooldownWindow
	}
	return &MemoryGuard{until: map[string]time.Time{}, window: window, now: now}
}

func (g *MemoryGuard) Check(ctx context.Context, clientKey string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	g.pruneLocked(now)
	if until, ok := g.until[clientKey]; ok {
		return until.Sub(now), nil
	}
	return 0, nil
}

func (g *MemoryGuard) Mark(ctx context.Context, clientKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if until, ok := g.until[clientKey]; ok && now.Before(until) {
		return nil
	}
	g.until[clientKey] = now.Add(g.window)
	return nil
}

func (g *MemoryGuard) pruneLocked(now time.Time) {
	for key, until := range g.until {
		if !now.Before(until) {
			delete(g.until, key)
		}
	}
}

func (g *MemoryGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.until)
}

const redisGuardPrefix = "usely:waitlist:"

// RedisGuard shares the cooldown across instances with SET NX EX.
type RedisGuard struct {
	client *redis.Client
	window time.Duration
}

func NewRedisGuard(client *redis.Client, window time.Duration) *RedisGuard {
	if window <= 0 {
		window = CooldownWindow
	}
	return &RedisGuard{client: client, window: window}
}

func (g *RedisGuard) Check(ctx context.Context, clientKey string) (time.Duration, error) {
	ttl, err := g.client.PTTL(ctx, redisGuardPrefix+clientKey).Result()
	if err != nil {
		return 0, fmt.Errorf("waitlist guard: pttl: %w", err)
	}
	// Missing keys report a negative TTL.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (g *RedisGuard) Mark(ctx context.Context, clientKey string) error {
	if err := g.client.SetNX(ctx, redisGuardPrefix+clientKey, "1", g.window).Err(); err != nil {
		return fmt.Errorf("waitlist guard: setnx: %w", err)
	}
	return nil
}
