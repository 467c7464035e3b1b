package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window counter shared by every instance using the same
// redis. Each window is one key incremented with INCR and expired with
// PEXPIRE on first use.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedis allows limit requests per key per window across all instances.
// Windows shorter than a millisecond are raised to one millisecond, the
// resolution of the key's window index.
func NewRedis(client *redis.Client, prefix string, limit int, window time.Duration) *Redis {
	if prefix == "" {
		prefix = "ratelimit"
	}
	if window < time.Millisecond {
		window = time.Millisecond
	}
	return &Redis{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}
}

var _ Limiter = (*Redis)(nil)

// Allow counts the request in the current window.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := r.now().UnixMilli() / r.window.Milliseconds()
	k := r.prefix + ":" + key + ":" + strconv.FormatInt(windowStart, 10)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.PExpire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}

	return incr.Val() <= int64(r.limit), nil
}
