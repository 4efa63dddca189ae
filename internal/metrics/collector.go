package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

type EventType string

const (
	EventRequestReceived   EventType = "request_received"
	EventResponseCompleted EventType = "response_completed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Method     string
	Route      string
	Duration   time.Duration
	StatusCode int
}

// Collector consumes MetricEvents on a single goroutine and folds them into
// the in-memory statistics and, when configured, the Prometheus vectors.
type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	http    *HTTPMetrics
	logger  *slog.Logger
	done    chan struct{}
}

// NewCollector creates a collector with the given event buffer. httpMetrics
// may be nil, in which case only the JSON snapshot is maintained.
func NewCollector(bufferSize int, logger *slog.Logger, httpMetrics *HTTPMetrics) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		http:    httpMetrics,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit sends an event without blocking. Events are dropped when the buffer
// is full so the request path never waits on metrics.
func (c *Collector) Emit(event MetricEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics buffer full, dropping event",
			slog.String("type", string(event.Type)),
			slog.String("route", event.Route))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done is closed once the collector has drained and stopped.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")
	defer close(c.done)

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests(event.Route)

	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Route, event.Duration, event.StatusCode)

		if c.http != nil {
			status := strconv.Itoa(event.StatusCode)
			c.http.RequestDuration.WithLabelValues(event.Method, event.Route, status).Observe(event.Duration.Seconds())
			c.http.RequestsTotal.WithLabelValues(event.Method, event.Route, status).Inc()
		}
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
