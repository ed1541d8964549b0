package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const redisKeyPrefix = "usely:ratelimit:"

// RedisLimiter implements a sliding window log on a sorted set so that
// several API instances share one budget per key.
type RedisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, now func() time.Time) *RedisLimiter {
	if now == nil {
		now = time.Now
	}
	return &RedisLimiter{client: client, now: now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	if l == nil || l.client == nil || rule.disabled() {
		return Decision{Allowed: true}, nil
	}

	now := l.now()
	nowMs := now.UnixMilli()
	windowStart := nowMs - rule.Window.Milliseconds()
	redisKey := redisKeyPrefix + key
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, &redis.Z{Score: float64(nowMs), Member: member})
	pipe.PExpire(ctx, redisKey, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true}, fmt.Errorf("ratelimit: redis pipeline: %w", err)
	}

	count := int(countCmd.Val())
	if count < rule.Limit {
		return Decision{Allowed: true, Remaining: rule.Limit - count - 1}, nil
	}

	// Rejected requests do not occupy the window.
	if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return Decision{Allowed: false, RetryAfter: rule.Window}, fmt.Errorf("ratelimit: redis zrem: %w", err)
	}

	retryAfter := rule.Window
	oldest, err := l.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err == nil && len(oldest) == 1 {
		expiresAt := int64(oldest[0].Score) + rule.Window.Milliseconds()
		if wait := time.Duration(expiresAt-nowMs) * time.Millisecond; wait > 0 {
			retryAfter = wait
		}
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}
