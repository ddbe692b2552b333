// ABOUTME: Prometheus instrumentation middleware
// ABOUTME: Counts requests and observes latency per matched route pattern

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/famquest/gateway/metrics"
)

// Instrument records request count and latency labelled by the mux pattern,
// which keeps label cardinality bounded regardless of the requested path.
func Instrument(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)

		next(wrapped, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(wrapped.statusCode)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
