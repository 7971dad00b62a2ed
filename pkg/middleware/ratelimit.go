package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/cashtrackr/api/pkg/httputil"
	"github.com/cashtrackr/api/pkg/observability"
)

// RateLimitConfig bounds request volume per client over a fixed window.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// DefaultRateLimitConfig matches the limit enforced on the sensitive auth
// endpoints: 5 requests per minute per IP.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 5, Window: time.Minute}
}

// Limiter answers whether a keyed client may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryRateLimiter is a fixed-window counter held in process memory. Counts
// reset when the window rolls over; restarts also reset them, which is
// acceptable for an abuse brake.
type MemoryRateLimiter struct {
	config RateLimitConfig

	mu      sync.Mutex
	counts  map[string]int
	started time.Time
}

// NewMemoryRateLimiter creates an in-process limiter.
func NewMemoryRateLimiter(config RateLimitConfig) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		config:  config,
		counts:  make(map[string]int),
		started: time.Now(),
	}
}

// Allow increments the key's counter for the current window.
func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.started) >= l.config.Window {
		l.counts = make(map[string]int)
		l.started = now
	}

	l.counts[key]++
	return l.counts[key] <= l.config.Limit, nil
}

// RedisRateLimiter is a fixed-window counter shared across instances via
// Redis INCR + EXPIRE.
type RedisRateLimiter struct {
	client *redis.Client
	config RateLimitConfig
}

// NewRedisRateLimiter creates a Redis-backed limiter.
func NewRedisRateLimiter(client *redis.Client, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, config: config}
}

// Allow increments the key's window counter in Redis. Redis failures let the
// request through: losing the brake beats refusing logins while Redis is
// down.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "ratelimit:" + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.config.Window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(l.config.Limit), nil
}

// RateLimit guards a route with a per-IP limiter.
type RateLimit struct {
	limiter Limiter
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRateLimit creates the middleware. metrics may be nil.
func NewRateLimit(limiter Limiter, logger *observability.Logger, metrics *observability.Metrics) *RateLimit {
	return &RateLimit{limiter: limiter, logger: logger, metrics: metrics}
}

// Handler rejects clients over their window limit with 429.
func (rl *RateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + httputil.ClientIP(r)
		allowed, err := rl.limiter.Allow(r.Context(), key)
		if err != nil {
			rl.logger.WithError(err).Warn("rate limiter unavailable, allowing request")
		}
		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RateLimitedTotal.Inc()
			}
			httputil.WriteTooManyRequests(w, "Has alcanzado el límite de peticiones")
			return
		}
		next.ServeHTTP(w, r)
	})
}
