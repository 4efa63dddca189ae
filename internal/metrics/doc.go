// Package metrics collects per-route request statistics for the service.
//
// Request middleware emits MetricEvents into a buffered channel with
// non-blocking sends; a single collector goroutine folds them into:
//   - request counts and status code distribution per route
//   - response time percentiles (P50, P95, P99) over a bounded window
//   - Prometheus counters and histograms, exposed via PrometheusHandler
//
// Example usage:
//
//	reg := metrics.NewRegistry()
//	collector := metrics.NewCollector(1000, logger, metrics.NewHTTPMetrics(reg))
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Method:     http.MethodGet,
//		Route:      "/test/user",
//		Duration:   2 * time.Millisecond,
//		StatusCode: 200,
//	})
//
// On context cancellation the collector drains buffered events before
// closing Done.
package metrics
