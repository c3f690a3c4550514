package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "admission"

// RedisLimiter is the durable limiter. It approximates a true sliding window
// per tier with two fixed sub-window counters: the current window count plus
// the previous window count weighted by how much of it still overlaps the
// sliding window. Counters live in a shared store, so the ceilings hold
// across process restarts and replicas.
type RedisLimiter struct {
	client *redis.Client
	limits Limits
	now    func() time.Time
}

// NewRedisLimiter creates a sliding-window limiter backed by the given client.
func NewRedisLimiter(client *redis.Client, limits Limits) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limits: limits,
		now:    time.Now,
	}
}

func tierKey(tier Tier, visitorKey string, windowIndex int64) string {
	return fmt.Sprintf("%s:%s:%s:%d", keyPrefix, tier, visitorKey, windowIndex)
}

// estimate returns the weighted sliding-window count for one tier.
func (l *RedisLimiter) estimate(ctx context.Context, tier Tier, visitorKey string, windowDur time.Duration, now time.Time) (float64, int64, error) {
	windowMs := windowDur.Milliseconds()
	nowMs := now.UnixMilli()
	index := nowMs / windowMs
	elapsed := float64(nowMs%windowMs) / float64(windowMs)

	pipe := l.client.Pipeline()
	currCmd := pipe.Get(ctx, tierKey(tier, visitorKey, index))
	prevCmd := pipe.Get(ctx, tierKey(tier, visitorKey, index-1))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("admission estimate for %s tier: %w", tier, err)
	}

	curr, _ := currCmd.Int64()
	prev, _ := prevCmd.Int64()
	return float64(curr) + float64(prev)*(1-elapsed), index, nil
}

// Check applies the burst ceiling, then the daily ceiling, against the
// sliding-window estimates. Counters are only incremented when the visitor
// passes both tiers, so a denied request never burns allowance.
func (l *RedisLimiter) Check(ctx context.Context, visitorKey string) (Result, error) {
	now := l.now()

	burstCount, burstIndex, err := l.estimate(ctx, TierBurst, visitorKey, l.limits.BurstWindow, now)
	if err != nil {
		return Result{}, err
	}
	if burstCount >= float64(l.limits.BurstLimit) {
		return Result{Tier: TierBurst, RetryAfter: l.retryAfter(l.limits.BurstWindow, now), Durable: true}, nil
	}

	dailyCount, dailyIndex, err := l.estimate(ctx, TierDaily, visitorKey, l.limits.DailyWindow, now)
	if err != nil {
		return Result{}, err
	}
	if dailyCount >= float64(l.limits.DailyLimit) {
		return Result{Tier: TierDaily, RetryAfter: l.retryAfter(l.limits.DailyWindow, now), Durable: true}, nil
	}

	// Keys expire after two windows so the previous counter survives long
	// enough to weight the estimate.
	pipe := l.client.Pipeline()
	burstKey := tierKey(TierBurst, visitorKey, burstIndex)
	dailyKey := tierKey(TierDaily, visitorKey, dailyIndex)
	pipe.Incr(ctx, burstKey)
	pipe.PExpire(ctx, burstKey, 2*l.limits.BurstWindow)
	pipe.Incr(ctx, dailyKey)
	pipe.PExpire(ctx, dailyKey, 2*l.limits.DailyWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("admission consume for %s: %w", visitorKey, err)
	}

	return Result{Allowed: true, Durable: true}, nil
}

// retryAfter hints how long until the current sub-window rolls over. The
// sliding estimate decays continuously, so the sub-window boundary is the
// nearest point where a fresh request can expect headroom.
func (l *RedisLimiter) retryAfter(windowDur time.Duration, now time.Time) time.Duration {
	windowMs := windowDur.Milliseconds()
	remaining := windowMs - now.UnixMilli()%windowMs
	return time.Duration(remaining) * time.Millisecond
}
