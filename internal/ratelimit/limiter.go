// Package ratelimit caps how often one client may start a menu analysis.
package ratelimit

import (
	"context"
	"time"

	"menu-scorecard/internal/common/logger"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// WindowCounter counts hits in a fixed window shared across instances.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisLimiter is a fixed window limiter backed by a shared counter.
type RedisLimiter struct {
	counter WindowCounter
	limit   int
	window  time.Duration
	prefix  string
}

func NewRedisLimiter(counter WindowCounter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{counter: counter, limit: limit, window: window, prefix: "ratelimit:"}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := r.counter.IncrWindow(ctx, r.prefix+key, r.window)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Limit: r.limit, Allowed: count <= int64(r.limit)}
	if d.Allowed {
		d.Remaining = r.limit - int(count)
	} else {
		d.RetryAfter = ttl
	}
	return d, nil
}

// Fallback uses the shared limiter and switches to a local one for any call
// where the shared store fails.
type Fallback struct {
	primary Limiter
	local   Limiter
	logger  logger.Logger
}

func NewFallback(primary, local Limiter, log logger.Logger) *Fallback {
	return &Fallback{primary: primary, local: local, logger: log}
}

func (f *Fallback) Allow(ctx context.Context, key string) (Decision, error) {
	d, err := f.primary.Allow(ctx, key)
	if err == nil {
		return d, nil
	}
	f.logger.WithError(err).Warn("Shared rate limiter unavailable, using local limiter", nil)
	return f.local.Allow(ctx, key)
}
