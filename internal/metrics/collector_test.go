package metrics_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yanzige/prometheus-research/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		httpm     *metrics.HTTPMetrics
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx, cancel = context.WithCancel(context.Background())
		httpm = metrics.NewHTTPMetrics(prometheus.NewRegistry())
		collector = metrics.NewCollector(100, log, httpm)
	})

	AfterEach(func() {
		cancel()
	})

	completed := func(route string, d time.Duration, code int) metrics.MetricEvent {
		return metrics.MetricEvent{
			Type:       metrics.EventResponseCompleted,
			Timestamp:  time.Now(),
			Method:     http.MethodGet,
			Route:      route,
			Duration:   d,
			StatusCode: code,
		}
	}

	Describe("event processing", func() {
		It("should count EventRequestReceived per route", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:   metrics.EventRequestReceived,
				Method: http.MethodGet,
				Route:  "/test/user",
			}

			Eventually(func() int64 {
				return collector.Snapshot().Routes["/test/user"].Requests
			}).Should(Equal(int64(1)))
		})

		It("should record EventResponseCompleted", func() {
			collector.Start(ctx)

			collector.Emit(completed("/test/app", 100*time.Millisecond, 200))

			Eventually(func() int64 {
				return collector.Snapshot().Routes["/test/app"].StatusCodes[200]
			}).Should(Equal(int64(1)))
			Expect(collector.Snapshot().Routes["/test/app"].AvgResponse).To(Equal(100 * time.Millisecond))
		})

		It("should update the Prometheus vectors", func() {
			collector.Start(ctx)

			collector.Emit(completed("/test/user/app", 5*time.Millisecond, 200))
			collector.Emit(completed("/test/user/app", 5*time.Millisecond, 400))

			Eventually(func() float64 {
				return testutil.ToFloat64(httpm.RequestsTotal.WithLabelValues("GET", "/test/user/app", "200"))
			}).Should(Equal(1.0))
			Eventually(func() float64 {
				return testutil.ToFloat64(httpm.RequestsTotal.WithLabelValues("GET", "/test/user/app", "400"))
			}).Should(Equal(1.0))
			Expect(testutil.CollectAndCount(httpm.RequestDuration)).To(Equal(2))
		})

		It("should work without Prometheus vectors", func() {
			c := metrics.NewCollector(10, log, nil)
			c.Start(ctx)

			c.Emit(completed("/test/user", time.Millisecond, 200))

			Eventually(func() int64 {
				return c.Snapshot().Routes["/test/user"].StatusCodes[200]
			}).Should(Equal(int64(1)))
		})

		It("should drain events on context cancellation", func() {
			for i := 0; i < 5; i++ {
				collector.Emit(metrics.MetricEvent{
					Type:  metrics.EventRequestReceived,
					Route: "/test/user",
				})
			}

			collector.Start(ctx)
			cancel()
			Eventually(collector.Done()).Should(BeClosed())

			Expect(collector.Snapshot().Routes["/test/user"].Requests).To(Equal(int64(5)))
		})
	})

	Describe("Emit", func() {
		It("should drop events instead of blocking when the buffer is full", func() {
			c := metrics.NewCollector(1, log, nil)

			done := make(chan struct{})
			go func() {
				defer close(done)
				c.Emit(completed("/a", time.Millisecond, 200))
				c.Emit(completed("/a", time.Millisecond, 200))
				c.Emit(completed("/a", time.Millisecond, 200))
			}()

			Eventually(done).Should(BeClosed())
		})
	})

	Describe("Handler", func() {
		It("should serve the snapshot as JSON", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Route: "/test/app"})
			Eventually(func() int64 { return collector.Snapshot().TotalRequests }).Should(Equal(int64(1)))

			w := httptest.NewRecorder()
			collector.Handler()(w, httptest.NewRequest(http.MethodGet, "/metrics/snapshot", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap metrics.Snapshot
			Expect(json.NewDecoder(w.Body).Decode(&snap)).To(Succeed())
			Expect(snap.TotalRequests).To(Equal(int64(1)))
			Expect(snap.Routes).To(HaveKey("/test/app"))
		})
	})

	Describe("PrometheusHandler", func() {
		It("should expose registered metrics", func() {
			reg := metrics.NewRegistry()
			m := metrics.NewHTTPMetrics(reg)
			m.RequestsTotal.WithLabelValues("GET", "/test/user", "200").Inc()

			w := httptest.NewRecorder()
			metrics.PrometheusHandler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			body := w.Body.String()
			Expect(body).To(ContainSubstring(`prometheus_research_http_requests_total{method="GET",route="/test/user",status_code="200"} 1`))
			Expect(strings.Contains(body, "go_goroutines")).To(BeTrue())
		})
	})
})
