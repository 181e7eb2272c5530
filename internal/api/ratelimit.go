package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateLimiter counts requests per client in fixed windows kept in Redis
type rateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func newRateLimiter(rdb *redis.Client, limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{rdb: rdb, limit: limit, window: window, prefix: "ratelimit:api"}
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := l.prefix + ":" + clientIP(r)

		count, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			// fail open when Redis is unavailable
			zap.L().Warn("Rate limiter unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.rdb.Expire(ctx, key, l.window)
		}

		ttl, _ := l.rdb.TTL(ctx, key).Result()
		if ttl < 0 {
			ttl = l.window
		}
		remaining := l.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		if count > int64(l.limit) {
			w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, envelope{
				Success: false,
				Message: "Too many requests from this IP, please try again later.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
