package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// rateLimitKeyPrefix namespaces the per-IP counters in Redis.
const rateLimitKeyPrefix = "ratelimit:"

// RateLimitMessage is returned to callers who exceed the window.
const RateLimitMessage = "Too many requests from this IP, please try again later."

// RateLimit returns middleware that limits requests per client IP to
// maxRequests within a fixed window. Counters live in Redis so every
// server instance shares them. The scope names the protected surface
// (e.g. "email") so separate groups get separate budgets.
//
// If Redis is unreachable the request is allowed through; a broken
// limiter must not take the mail API down with it.
func RateLimit(rdb *redis.Client, scope string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateLimitKeyPrefix + scope + ":" + c.RealIP()

			count, ttl, err := incrementWindow(c.Request().Context(), rdb, key, window)
			if err != nil {
				slog.Warn("rate limiter unavailable",
					slog.String("scope", scope),
					slog.Any("error", err),
				)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(maxRequests-int(count), 0)))

			if count > int64(maxRequests) {
				h.Set("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
				return Fail(c, http.StatusTooManyRequests, RateLimitMessage)
			}
			return next(c)
		}
	}
}

// incrementWindow bumps the counter for key and returns the new count with
// the time left in its window. INCR and PTTL run in one MULTI; a counter
// found without an expiry (first hit, or one orphaned by a failed EXPIRE)
// gets the full window, so no key can outlive its window indefinitely.
func incrementWindow(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	if _, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pttl = pipe.PTTL(ctx, key)
		return nil
	}); err != nil {
		return 0, 0, err
	}

	count, ttl := incr.Val(), pttl.Val()
	if ttl < 0 {
		if err := rdb.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}
