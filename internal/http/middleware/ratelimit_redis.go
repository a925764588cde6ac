package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window limiter. With a Redis client the windows are
// shared by every instance (key rl:<scope>:<window_seconds>:<identifier>);
// without one it counts in process memory. Redis errors fail open.
type RateLimiter struct {
	rdb   *redis.Client
	local *memoryWindows
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb, local: newMemoryWindows()}
}

// Allow counts one hit for ident and reports whether it is within max.
func (l *RateLimiter) Allow(ctx context.Context, scope, ident string, max int, window time.Duration) (bool, int64, error) {
	if l.rdb == nil {
		n := l.local.hit(scope+":"+ident, window, time.Now())
		return n <= int64(max), n, nil
	}

	key := "rl:" + scope + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident

	val, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, 0, err
	}
	if val == 1 {
		// first increment, set expiry
		l.rdb.Expire(ctx, key, window)
	}
	return val <= int64(max), val, nil
}

// Limit rejects clients that send more than max requests per window
func (l *RateLimiter) Limit(scope string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, n, err := l.Allow(c.Request.Context(), scope, ClientIP(c), max, window)
		if err != nil {
			// fail-open but flag it
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining(max, n), 10))

		if !ok {
			RLBlocked.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}

func remaining(max int, used int64) int64 {
	if left := int64(max) - used; left > 0 {
		return left
	}
	return 0
}
