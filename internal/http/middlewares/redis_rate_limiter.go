package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// redisCommands is the slice of the go-redis client the limiter needs.
// Keeping it narrow lets tests substitute a fake without a live server.
type redisCommands interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisRateLimiter is the fixed-window INCR+EXPIRE variant, for when rate
// limits have to hold across processes.
type RedisRateLimiter struct {
	rdb     redisCommands
	prefix  string
	window  time.Duration
	limit   int
	message string
}

func NewRedisRateLimiter(rdb redisCommands, prefix string, limit int, window time.Duration, message string) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:     rdb,
		prefix:  prefix,
		window:  window,
		limit:   limit,
		message: message,
	}
}

func (rl *RedisRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.prefix + ":" + clientIP(c)
		ctx := c.Request.Context()

		count, err := rl.rdb.Incr(ctx, key).Result()

		if err != nil {
			// Redis outage must not take auth down with it; let the
			// request through and count on the per-process limiter.
			c.Next()
			return
		}

		ttl, err := rl.rdb.TTL(ctx, key).Result()

		if err != nil {
			c.Next()
			return
		}

		// A fresh window needs its expiry set. ttl < 0 on a later
		// request means the EXPIRE after the first INCR never landed,
		// so set it again rather than leave the key counting forever.
		if count == 1 || ttl < 0 {
			if err := rl.rdb.Expire(ctx, key, rl.window).Err(); err != nil {
				c.Next()
				return
			}
			ttl = rl.window
		}

		if count > int64(rl.limit) {
			retryAfter := int(ttl.Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}

			abortRateLimited(c, retryAfter, rl.message)
			return
		}

		c.Next()
	}
}
