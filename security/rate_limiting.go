package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// BidRateLimit caps bids per caller per window with a Redis counter. The
// scope key is the auth id when present, else the client IP, so one hot
// bidder cannot starve a channel.
func (r *RateLimiter) BidRateLimit(limit int, window time.Duration) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		scope := e.RealIP()
		if e.Auth != nil {
			scope = "user:" + e.Auth.Id
		}
		key := fmt.Sprintf("ratelimit:bid:%s", scope)

		ctx := e.Request.Context()
		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			// Redis down should not block bidding; arbitration still holds.
			return e.Next()
		}
		if count == 1 {
			r.redis.Expire(ctx, key, window)
		}
		if count > int64(limit) {
			return apis.NewApiError(429, "Too many bids, slow down", nil)
		}

		return e.Next()
	}
}

// AntiBot rejects requests from obvious scraper user agents and throttles
// per-IP request bursts.
func (r *RateLimiter) AntiBot(maxPerMinute int) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
			return apis.NewForbiddenError("Access denied", nil)
		}

		ctx := e.Request.Context()
		key := fmt.Sprintf("antibot:%s", e.RealIP())

		count, err := r.redis.Incr(ctx, key).Result()
		if err == nil {
			if count == 1 {
				r.redis.Expire(ctx, key, time.Minute)
			}
			if count > int64(maxPerMinute) {
				return apis.NewApiError(429, "Too many requests", nil)
			}
		}

		return e.Next()
	}
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
