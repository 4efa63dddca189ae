package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanzige/prometheus-research/config"
	"github.com/yanzige/prometheus-research/internal/handler"
	"github.com/yanzige/prometheus-research/internal/metrics"
	"github.com/yanzige/prometheus-research/internal/requestid"
)

const (
	healthPath          = "/health"
	metricsPath         = "/metrics"
	metricsSnapshotPath = "/metrics/snapshot"
)

type app struct {
	handler   http.Handler
	collector *metrics.Collector
	registry  *prometheus.Registry
}

// newApp wires the routes and middleware. The collector is nil when metrics
// are disabled; the caller starts it.
func newApp(cfg *config.Config, log *slog.Logger, startedAt time.Time) *app {
	a := &app{}

	if cfg.Metrics.Enabled {
		a.registry = metrics.NewRegistry()
		a.collector = metrics.NewCollector(cfg.Metrics.BufferSize, log, metrics.NewHTTPMetrics(a.registry))
	}

	mux := setupRouter(cfg.Server.BasePath, handler.NewInfoHandler(log), a.collector, a.registry, log, startedAt)

	a.handler = requestid.Middleware(
		handler.Middleware(log, a.collector, healthPath, metricsPath, metricsSnapshotPath)(mux),
	)

	return a
}

func setupRouter(
	basePath string,
	info *handler.InfoHandler,
	collector *metrics.Collector,
	registry *prometheus.Registry,
	log *slog.Logger,
	startedAt time.Time,
) *http.ServeMux {
	mux := http.NewServeMux()

	handler.Register(mux, basePath, info.Routes(), log)
	mux.HandleFunc("GET "+healthPath, handler.Health(startedAt))

	if collector != nil {
		mux.Handle("GET "+metricsPath, metrics.PrometheusHandler(registry))
		mux.HandleFunc("GET "+metricsSnapshotPath, collector.Handler())
	}

	return mux
}
