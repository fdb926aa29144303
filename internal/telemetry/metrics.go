// Package telemetry exposes engine counters on a Prometheus endpoint.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/logging"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	framesRendered    prometheus.Counter
	frameTime         prometheus.Histogram
	beatsDetected     prometheus.Counter
	particlesEvicted  prometheus.Counter
	extractorFailures *prometheus.CounterVec
	componentErrors   *prometheus.CounterVec

	server *http.Server
}

// NewMetrics creates and registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	logger := logging.ForService("telemetry")
	if logger == nil {
		logger = slog.Default().With("service", "telemetry")
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logger:   logger,
		framesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "musicv_frames_rendered_total",
			Help: "Frames rendered since start.",
		}),
		frameTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "musicv_frame_time_seconds",
			Help:    "Wall time spent rendering one frame.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		beatsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "musicv_beats_detected_total",
			Help: "Beats detected by the rhythm extractor.",
		}),
		particlesEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "musicv_particles_evicted_total",
			Help: "Particles force-expired because the pool was full.",
		}),
		extractorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "musicv_extractor_failures_total",
			Help: "Isolated feature extractor failures.",
		}, []string{"extractor"}),
		componentErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "musicv_component_errors_total",
			Help: "Visual component errors that caused deactivation.",
		}, []string{"component"}),
	}

	m.registry.MustRegister(
		m.framesRendered,
		m.frameTime,
		m.beatsDetected,
		m.particlesEvicted,
		m.extractorFailures,
		m.componentErrors,
	)

	return m
}

// RegisterGauge adds a polled gauge backed by fn, for values owned elsewhere
// such as buffer depth or live particle count.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	}, fn))
}

// Attach subscribes the metrics to bus events so counters advance without the
// producing packages knowing about telemetry.
func (m *Metrics) Attach(bus *events.Bus) {
	bus.Subscribe(events.FrameRendered, func(e events.Event) {
		m.framesRendered.Inc()
		if secs, ok := e.Payload["elapsed_seconds"].(float64); ok {
			m.frameTime.Observe(secs)
		}
	})
	bus.Subscribe(events.BeatDetected, func(events.Event) {
		m.beatsDetected.Inc()
	})
	bus.Subscribe(events.ParticleEvicted, func(events.Event) {
		m.particlesEvicted.Inc()
	})
	bus.Subscribe(events.ExtractorFailure, func(e events.Event) {
		name, _ := e.Payload["extractor"].(string)
		m.extractorFailures.WithLabelValues(name).Inc()
	})
	bus.Subscribe(events.ErrorOccurred, func(e events.Event) {
		name, _ := e.Payload["component"].(string)
		m.componentErrors.WithLabelValues(name).Inc()
	})
}

// RegisterCounterFunc adds a monotonic counter read from fn on scrape, for
// totals owned elsewhere such as the stream buffer's drop count.
func (m *Metrics) RegisterCounterFunc(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, fn))
}

// Serve exposes /metrics on the given address until the context is
// cancelled.
func (m *Metrics) Serve(ctx context.Context, listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	m.server = &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := m.server.Shutdown(shutdownCtx); err != nil {
			m.logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	go func() {
		m.logger.Info("telemetry endpoint listening", "addr", listen)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("telemetry endpoint failed", "error", err)
		}
	}()
}
