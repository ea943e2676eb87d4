package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	RequestsPerMinute int
	KeyPrefix         string
	// KeyFunc picks the bucket for a request; defaults to the client IP
	KeyFunc func(c *gin.Context) string
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
		KeyPrefix:         "chat:ratelimit:ip:",
	}
}

// SendRateLimitConfig limits message sends per authenticated user
func SendRateLimitConfig(perMinute int) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: perMinute,
		KeyPrefix:         "chat:ratelimit:send:",
		KeyFunc: func(c *gin.Context) string {
			if userID := GetUserID(c); userID != "" {
				return userID
			}
			// Fall back to IP if not authenticated
			return "ip:" + c.ClientIP()
		},
	}
}

// rateLimitScript is an atomic Lua script for sliding window rate limiting
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local window_start = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, math.ceil(window / 1000) + 1)
    return {1, limit - count - 1, 0}
else
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local reset_at = 0
    if #oldest >= 2 then
        reset_at = tonumber(oldest[2]) + window
    end
    return {0, 0, reset_at}
end
`)

const rateWindow = time.Minute

// RateLimit returns a gin middleware with a one-minute sliding window kept in
// Redis. Without Redis, or when Redis fails, a per-process fixed window is used.
func RateLimit(redisClient *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	fallback := newMemoryLimiter()

	return func(c *gin.Context) {
		if cfg.RequestsPerMinute <= 0 {
			c.Next()
			return
		}

		key := cfg.KeyPrefix + keyFunc(c)
		now := time.Now()

		allowed, remaining, resetAt, err := checkRedis(c.Request.Context(), redisClient, key, cfg.RequestsPerMinute, now)
		if err != nil {
			if redisClient != nil {
				logger.GetLogger().Warn().Err(err).Str("key", key).Msg("rate limit check failed, using local window")
			}
			allowed, remaining, resetAt = fallback.check(key, cfg.RequestsPerMinute, now)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			retryAfter := (resetAt - now.UnixMilli()) / 1000
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt/1000))
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			common.ErrorResponse(c, http.StatusTooManyRequests, Translate(c, "error.too_many_requests", retryAfter), nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

var errNoRedis = errors.New("redis not configured")

func checkRedis(ctx context.Context, client *redis.Client, key string, limit int, now time.Time) (bool, int64, int64, error) {
	if client == nil {
		return false, 0, 0, errNoRedis
	}
	ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	result, err := rateLimitScript.Run(ctx, client, []string{key},
		limit, rateWindow.Milliseconds(), now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	return result[0] == 1, result[1], result[2], nil
}

// memoryLimiter is the single-process fallback: a fixed window per key
type memoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

// prune expired buckets once the map grows past this size
const memoryLimiterPruneAt = 10000

func newMemoryLimiter() *memoryLimiter {
	return &memoryLimiter{buckets: make(map[string]*bucket)}
}

func (m *memoryLimiter) check(key string, limit int, now time.Time) (bool, int64, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.buckets) >= memoryLimiterPruneAt {
		for k, b := range m.buckets {
			if now.After(b.resetAt) {
				delete(m.buckets, k)
			}
		}
	}

	b, ok := m.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(rateWindow)}
		m.buckets[key] = b
	}
	if b.count >= limit {
		return false, 0, b.resetAt.UnixMilli()
	}
	b.count++
	return true, int64(limit - b.count), 0
}
