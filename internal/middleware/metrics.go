package middleware

import (
	"net/http"
	"time"

	"vendor-rewards-api/internal/metrics"
)

// MetricsMiddleware records count and latency of every request, labelled by
// chi route pattern so path parameters do not explode label cardinality.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newStatusRecorder(w)

			next.ServeHTTP(rw, r)

			route := routePattern(r)
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, r.Method, rw.status, time.Since(start))
		})
	}
}
