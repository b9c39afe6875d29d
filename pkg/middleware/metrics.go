// Package middleware holds the HTTP middleware chain of the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/metrics"
)

// Metrics records request totals, latency and in-flight count. Paths are
// reduced to their route so label cardinality stays bounded.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := routeLabel(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Status is the code sent, or 200 when the handler wrote nothing.
func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

var knownRoutes = map[string]bool{
	"/api/v1/match":            true,
	"/api/v1/diseases":         true,
	"/api/v1/advice":           true,
	"/api/v1/cache/stats":      true,
	"/api/v1/cache/invalidate": true,
	"/health/live":             true,
	"/health/ready":            true,
}

func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	if name, ok := strings.CutPrefix(path, "/api/v1/diseases/"); ok && name != "" {
		return "/api/v1/diseases/{name}"
	}
	return "other"
}
