// Package ratelimit implements a fixed-window request counter backed by
// Redis atomic increments.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit configures one action's quota.
type Limit struct {
	Window time.Duration
	Max    int
}

// Result carries the outcome of one quota check, exposed to clients via
// X-RateLimit-* headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     int64 // epoch seconds of the next window boundary
}

// Limiter counts requests per (identity, action, window slot) key.
type Limiter struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Limiter.
func New(client *redis.Client, logger *slog.Logger) *Limiter {
	return &Limiter{client: client, logger: logger, now: time.Now}
}

// Allow atomically increments the current window's counter and compares it
// to the limit. When Redis is unreachable the limiter fails open: an
// infrastructure outage must not block traffic.
func (l *Limiter) Allow(ctx context.Context, identity, action string, limit Limit) Result {
	windowMs := limit.Window.Milliseconds()
	nowMs := l.now().UnixMilli()
	slot := nowMs / windowMs
	reset := ((slot + 1) * windowMs) / 1000

	key := fmt.Sprintf("rl:%s:%s:%d", identity, action, slot)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("rate limit store unavailable, failing open",
				slog.String("action", action), slog.Any("error", err))
		}
		return Result{Allowed: true, Limit: limit.Max, Remaining: limit.Max, Reset: reset}
	}
	if count == 1 {
		// Stale windows self-expire; the extra second covers boundary skew.
		if err := l.client.Expire(ctx, key, limit.Window+time.Second).Err(); err != nil && l.logger != nil {
			l.logger.Warn("rate limit expire failed", slog.String("key", key), slog.Any("error", err))
		}
	}

	remaining := limit.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(limit.Max),
		Limit:     limit.Max,
		Remaining: remaining,
		Reset:     reset,
	}
}
