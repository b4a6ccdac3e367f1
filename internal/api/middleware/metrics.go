package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

// RouteMetrics is a point-in-time view of one route's traffic.
type RouteMetrics struct {
	Requests int64 `json:"requests"`
	Errors   int64 `json:"errors"`
}

// MetricsCollector counts requests and error responses, overall and per
// matched route pattern.
type MetricsCollector struct {
	requests atomic.Int64
	errors   atomic.Int64

	mu       sync.Mutex
	perRoute map[string]*RouteMetrics
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{perRoute: make(map[string]*RouteMetrics)}
}

// Middleware counts the request and attributes it to the matched route. A
// response status of 400 or above counts as an error.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requests.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		failed := rw.statusCode >= 400
		if failed {
			mc.errors.Add(1)
		}

		// The route pattern is only known once routing has run; unmatched
		// requests fall back to the raw path.
		route := r.Method + " " + r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = r.Method + " " + p
			}
		}

		mc.mu.Lock()
		m, ok := mc.perRoute[route]
		if !ok {
			m = &RouteMetrics{}
			mc.perRoute[route] = m
		}
		m.Requests++
		if failed {
			m.Errors++
		}
		mc.mu.Unlock()
	})
}

// Totals returns the overall request and error counts.
func (mc *MetricsCollector) Totals() (requests, errors int64) {
	return mc.requests.Load(), mc.errors.Load()
}

// PerRoute returns a copy of the per-route counters keyed by
// "METHOD /pattern".
func (mc *MetricsCollector) PerRoute() map[string]RouteMetrics {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	out := make(map[string]RouteMetrics, len(mc.perRoute))
	for k, v := range mc.perRoute {
		out[k] = *v
	}
	return out
}
