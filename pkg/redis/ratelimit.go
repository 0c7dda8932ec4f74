package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
)

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool
	Remaining int64
	RetryIn   time.Duration
}

// RateLimiter provides sliding window rate limiting shared across
// service instances. Keys are scoped per source host so one ingestion
// run cannot hammer a single upstream.
type RateLimiter struct {
	client    *Client
	keyPrefix string
}

// NewRateLimiter creates a new RateLimiter
func NewRateLimiter(client *Client, keyPrefix string) *RateLimiter {
	if keyPrefix == "" {
		keyPrefix = "baobab:ratelimit:"
	}
	return &RateLimiter{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RateLimiter) blockKey(key string) string {
	return r.keyPrefix + key + ":block"
}

// BlockFor blocks a rate limit key for the given duration. Used when an
// upstream tells us to back off with a 429 Retry-After.
func (r *RateLimiter) BlockFor(ctx context.Context, key string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.blockKey(key), "1", d)
}

// IsBlocked returns whether the key is currently blocked and, if so,
// for how long.
func (r *RateLimiter) IsBlocked(ctx context.Context, key string) (bool, time.Duration, error) {
	exists, err := r.client.Exists(ctx, r.blockKey(key))
	if err != nil {
		return false, 0, err
	}
	if !exists {
		return false, 0, nil
	}
	ttl, err := r.client.TTL(ctx, r.blockKey(key))
	if err != nil {
		return true, 0, err
	}
	if ttl < 0 {
		ttl = 0
	}
	return true, ttl, nil
}

const allowScript = `
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call("zremrangebyscore", key, "-inf", window_start)
	local current = redis.call("zcard", key)

	if current < limit then
		redis.call("zadd", key, now, now .. "-" .. math.random())
		redis.call("pexpire", key, window_ms)
		return {1, limit - current - 1}
	else
		local oldest = redis.call("zrange", key, 0, 0, "WITHSCORES")
		if #oldest > 0 then
			return {0, 0, oldest[2]}
		end
		return {0, 0, 0}
	end
`

// Allow checks if a request is allowed under the rate limit using a
// sliding window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error) {
	now := time.Now()

	// A dynamic block (Retry-After) fails closed for its duration.
	if blocked, ttl, err := r.IsBlocked(ctx, key); err == nil && blocked {
		return &RateLimitResult{Allowed: false, RetryIn: ttl}, nil
	}

	raw, err := r.client.Eval(ctx, allowScript, []string{r.keyPrefix + key},
		now.UnixMilli(),
		now.Add(-window).UnixMilli(),
		limit,
		window.Milliseconds(),
	)
	if err != nil {
		return nil, err
	}

	result, ok := raw.([]interface{})
	if !ok || len(result) < 2 {
		return nil, fmt.Errorf("unexpected rate limit script result %T", raw)
	}

	allowedFlag, err := toInt64(result[0])
	if err != nil {
		return nil, err
	}
	remaining, err := toInt64(result[1])
	if err != nil {
		return nil, err
	}

	res := &RateLimitResult{
		Allowed:   allowedFlag == 1,
		Remaining: remaining,
	}
	if !res.Allowed && len(result) > 2 {
		oldestMs, err := toInt64(result[2])
		if err != nil {
			return nil, err
		}
		if oldestMs > 0 {
			res.RetryIn = time.UnixMilli(oldestMs).Add(window).Sub(now)
		}
	}
	return res, nil
}

// Reset resets the rate limit for a key
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.keyPrefix+key)
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		// Lua numbers sometimes round-trip as strings
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(n, 64)
			if ferr != nil {
				return 0, err
			}
			return int64(f), nil
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

// SourceThrottle paces outbound fetches against the shared limiter. It
// fails open on limiter backend errors so a Redis outage degrades to
// the client's fixed delay instead of halting ingestion.
type SourceThrottle struct {
	limiter  *RateLimiter
	limit    int64
	window   time.Duration
	fallback time.Duration
	logger   ectologger.Logger
}

func NewSourceThrottle(limiter *RateLimiter, limit int64, window, fallback time.Duration, logger ectologger.Logger) *SourceThrottle {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if fallback <= 0 {
		fallback = time.Second
	}
	return &SourceThrottle{
		limiter:  limiter,
		limit:    limit,
		window:   window,
		fallback: fallback,
		logger:   logger,
	}
}

// Wait blocks until the key is allowed another request or ctx ends.
func (t *SourceThrottle) Wait(ctx context.Context, key string) error {
	for {
		res, err := t.limiter.Allow(ctx, key, t.limit, t.window)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.WithContext(ctx).WithError(err).Warn("Rate limiter unavailable, using fixed delay")
			return sleepFor(ctx, t.fallback)
		}
		if res.Allowed {
			return nil
		}

		wait := res.RetryIn
		if wait <= 0 {
			wait = t.fallback
		}
		if err := sleepFor(ctx, wait); err != nil {
			return err
		}
	}
}

// BlockFor records a server-imposed backoff window for the key.
func (t *SourceThrottle) BlockFor(ctx context.Context, key string, d time.Duration) error {
	return t.limiter.BlockFor(ctx, key, d)
}

func sleepFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
