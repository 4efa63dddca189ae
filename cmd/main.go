package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yanzige/prometheus-research/config"
	"github.com/yanzige/prometheus-research/internal/httpserver"
	"github.com/yanzige/prometheus-research/internal/metrics"
	"github.com/yanzige/prometheus-research/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	collectorCtx, stopCollector := context.WithCancel(context.Background())
	defer stopCollector()

	app := newApp(cfg, log, time.Now())
	if app.collector != nil {
		app.collector.Start(collectorCtx)
	}

	read, write, idle, shutdown := cfg.Server.Timeouts()
	srv, err := httpserver.New(cfg.Server.Address, app.handler,
		httpserver.WithTimeouts(read, write, idle),
		httpserver.WithShutdownTimeout(shutdown),
	)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Server listening",
			slog.String("addr", srv.Addr()),
			slog.String("base_path", cfg.Server.BasePath),
			slog.Bool("metrics", cfg.Metrics.Enabled))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			stopAndWait(stopCollector, app.collector)
			os.Exit(1)
		}
	}

	stopAndWait(stopCollector, app.collector)
}

func stopAndWait(stop context.CancelFunc, collector *metrics.Collector) {
	stop()
	if collector != nil {
		<-collector.Done()
	}
}
