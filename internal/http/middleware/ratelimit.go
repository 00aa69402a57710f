package middlewarex

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"rowfence/internal/observability"
)

// RateLimit rejects requests once a tenant exceeds limit requests within
// the window. Counting is a fixed window per tenant in Redis; when Redis
// is unreachable the request is allowed through.
func RateLimit(rdb *redis.Client, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				http.Error(w, "tenant not found", http.StatusUnauthorized)
				return
			}

			slot := time.Now().Unix() / int64(window.Seconds())
			key := fmt.Sprintf("rowfence:rate:%d:%d", id.TenantID, slot)

			pipe := rdb.Pipeline()
			count := pipe.Incr(r.Context(), key)
			pipe.Expire(r.Context(), key, window)
			if _, err := pipe.Exec(r.Context()); err != nil {
				log.Warn().Err(err).Int64("tenant_id", id.TenantID).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			if count.Val() > limit {
				observability.RateLimitRejectedTotal.Inc()
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
