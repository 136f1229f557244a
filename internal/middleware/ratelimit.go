package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/propertyhub/api/pkg/response"
	"github.com/redis/go-redis/v9"
)

// KeyFunc picks the bucket a request is counted against. An empty key skips
// limiting.
type KeyFunc func(c *fiber.Ctx) string

// ByIP counts requests per client address
func ByIP(c *fiber.Ctx) string {
	return c.IP()
}

// BySeller counts requests per authenticated seller
func BySeller(c *fiber.Ctx) string {
	return GetSellerID(c)
}

// RateLimiter is a fixed-window limiter backed by Redis counters
type RateLimiter struct {
	redis  *redis.Client
	logger *slog.Logger
}

func NewRateLimiter(redisClient *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{redis: redisClient, logger: logger}
}

// Limit allows maxRequests per window for each key. Redis failures let the
// request through.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration, keyFn KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := keyFn(c)
		if id == "" {
			return c.Next()
		}

		key := "ratelimit:" + keyPrefix + ":" + id
		ctx, cancel := context.WithTimeout(c.UserContext(), 500*time.Millisecond)
		defer cancel()

		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", slog.String("key", key), slog.Any("error", err))
			return c.Next()
		}
		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Seconds())))
			c.Set("X-RateLimit-Remaining", "0")
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Remaining", strconv.Itoa(maxRequests-int(count)))
		return c.Next()
	}
}

// APILimit limits every /api request per client address
func (rl *RateLimiter) APILimit(maxRequests int, window time.Duration) fiber.Handler {
	return rl.Limit("api", maxRequests, window, ByIP)
}

// UploadLimit limits asset uploads per seller
func (rl *RateLimiter) UploadLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("upload", maxPerHour, time.Hour, BySeller)
}
