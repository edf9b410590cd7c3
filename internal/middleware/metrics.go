package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"valeshop/internal/infrastructure"
)

// Metrics records request count and latency per route pattern. The chi
// route pattern is used instead of the raw path so token and order IDs do
// not explode label cardinality.
func Metrics(m *infrastructure.EngineMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
				attribute.String("status", strconv.Itoa(ww.Status())),
			)
			ctx := r.Context()
			m.HTTPRequests.Add(ctx, 1, attrs)
			m.HTTPDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		})
	}
}
