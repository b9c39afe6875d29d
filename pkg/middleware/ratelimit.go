package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/logger"
)

// Limiter decides whether a client may proceed.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit rejects requests with 429 once the client identified by
// ClientIP has used its allowance.
func RateLimit(l Limiter, retryAfter time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIP(r)
			if !l.Allow(client) {
				logger.FromContext(r.Context()).Warn("rate limit exceeded", "client", client, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
