package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yanzige/prometheus-research/internal/metrics"
)

const unmatchedRoute = "unmatched"

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Middleware logs every request and, when collector is non-nil, emits
// metric events for it. Requests whose route is in skip are not counted.
func Middleware(logger *slog.Logger, collector *metrics.Collector, skip ...string) func(http.Handler) http.Handler {
	skipped := make(map[string]bool, len(skip))
	for _, route := range skip {
		skipped[route] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := extractClientIP(r)

			logger.DebugContext(r.Context(), "Received request",
				slog.String("from", clientIP),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("proto", r.Proto),
				slog.String("host", r.Host),
				slog.String("user_agent", r.UserAgent()))

			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			duration := time.Since(start)

			// ServeMux records the matched pattern on r.
			route := routeOf(r)

			logger.InfoContext(r.Context(), "Request completed",
				slog.String("from", clientIP),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", route),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", duration))

			if collector == nil || skipped[route] {
				return
			}

			now := time.Now()
			collector.Emit(metrics.MetricEvent{
				Type:      metrics.EventRequestReceived,
				Timestamp: start,
				Method:    r.Method,
				Route:     route,
			})
			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Timestamp:  now,
				Method:     r.Method,
				Route:      route,
				Duration:   duration,
				StatusCode: wrapped.statusCode,
			})
		})
	}
}

// routeOf returns the path part of the matched ServeMux pattern.
func routeOf(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}

	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}

	return r.Pattern
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
