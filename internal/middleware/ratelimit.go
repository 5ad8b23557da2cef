package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter kept in Redis.
//
// Each (resource, client IP) pair gets a key that is INCRemented per request
// and expires after the window. The limiter fails open: when Redis is not
// configured or returns an error, requests pass.
//
// FIXED WINDOW
//
// The first request in a window creates the counter and sets its TTL; later
// ones only INCR. When the key expires the next request starts a new window:
//
//	limit=3, window=1m
//	t=0s   INCR → 1, EXPIRE 60s   allowed
//	t=10s  INCR → 2               allowed
//	t=20s  INCR → 3               allowed
//	t=30s  INCR → 4               429, Retry-After: 60
//	t=60s  key gone, INCR → 1     allowed
//
// A burst of up to 2×limit is possible across a window boundary.
type RateLimiter struct {
	rdb     *redis.Client
	limit   int
	window  time.Duration
	metrics *Metrics
	logger  *slog.Logger
}

// NewRateLimiter returns a limiter allowing limit requests per window.
// A nil rdb disables limiting. metrics may be nil.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, metrics *Metrics, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:     rdb,
		limit:   limit,
		window:  window,
		metrics: metrics,
		logger:  logger,
	}
}

// Allow reports whether id may make another request against resource in
// the current window, and how many requests remain.
func (l *RateLimiter) Allow(ctx context.Context, resource, id string) (bool, int, error) {
	if l.rdb == nil {
		return true, l.limit, nil
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, l.limit, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return true, l.limit, fmt.Errorf("ratelimit: expire %s: %w", key, err)
		}
	}

	remaining := l.limit - int(cnt)
	if remaining < 0 {
		remaining = 0
	}
	return cnt <= int64(l.limit), remaining, nil
}

// Limit returns middleware that rate limits requests under the given resource
// name, keyed by client IP. Rejections get 429 and a {"msg": ...} body.
func (l *RateLimiter) Limit(resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, err := l.Allow(r.Context(), resource, clientIP(r))
			if err != nil {
				l.logger.Warn("rate limiter unavailable, allowing request",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if l.rdb != nil {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			}

			if !allowed {
				l.metrics.RateLimited(resource)
				w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"msg": "Too many requests, please try again later"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already replaced it with the forwarded address when behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
