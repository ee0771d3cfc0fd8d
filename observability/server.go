// Package observability is a Category-D detached module exposing
// Prometheus metrics and a health check over HTTP, so the frame loop's
// operational state is visible without blocking the orchestrator thread.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors. The orchestrator increments
// ModuleFailures on each module hook failure; the other collectors are
// updated by whoever supplies the orchestrator's OnFrameEnd callback.
type Metrics struct {
	FrameDuration   prometheus.Histogram
	ReclaimPending  prometheus.Gauge
	AsyncInFlight   prometheus.Gauge
	ModuleFailures  *prometheus.CounterVec
	FrameIndex      prometheus.Gauge
}

// NewMetrics registers collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FrameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "frameorc_frame_duration_seconds",
			Help:    "Wall-clock duration of one frame, FrameStart to FrameEnd.",
			Buckets: prometheus.DefBuckets,
		}),
		ReclaimPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frameorc_reclaim_pending",
			Help: "Entries awaiting deferred reclamation.",
		}),
		AsyncInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frameorc_async_jobs_in_flight",
			Help: "AsyncPipelineTracker jobs not yet integrated.",
		}),
		ModuleFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "frameorc_module_failures_total",
			Help: "Module hook failures, by phase and module name.",
		}, []string{"phase", "module"}),
		FrameIndex: factory.NewGauge(prometheus.GaugeOpts{
			Name: "frameorc_frame_index",
			Help: "Current frame index.",
		}),
	}
}

// Server serves /metrics and /healthz. Its Start/Stop methods match the
// Detached-module lifecycle: the CLI harness launches it fire-and-forget
// and does not await it.
type Server struct {
	addr   string
	reg    *prometheus.Registry
	http   *http.Server
}

// NewServer constructs a Server bound to addr, serving metrics registered
// in reg.
func NewServer(addr string, reg *prometheus.Registry) *Server {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}}))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{
		addr: addr,
		reg:  reg,
		http: &http.Server{Addr: addr, Handler: r},
	}
}

// Start serves until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()
	_ = s.http.ListenAndServe()
}

// Stop shuts the HTTP server down immediately.
func (s *Server) Stop() {
	_ = s.http.Close()
}
