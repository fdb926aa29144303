// Package analysis wires the engine together for the file and realtime run
// modes.
package analysis

import (
	"context"
	"log/slog"

	"github.com/tphakala/musicv-go/internal/components"
	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/features"
	"github.com/tphakala/musicv-go/internal/logging"
	"github.com/tphakala/musicv-go/internal/notify"
	"github.com/tphakala/musicv-go/internal/render"
	"github.com/tphakala/musicv-go/internal/telemetry"
)

// session holds the assembled engine for one run.
type session struct {
	settings *conf.Settings
	logger   *slog.Logger

	bus      *events.Bus
	pipeline *features.Pipeline
	buffer   *features.StreamBuffer
	surface  render.Surface
	registry *render.Registry
	mqtt     *notify.Client
	metrics  *telemetry.Metrics
	field    *components.ParticleField
}

// newSession assembles the shared parts of both run modes. mode selects the
// buffer's push policy.
func newSession(ctx context.Context, settings *conf.Settings, mode features.BufferMode) (*session, error) {
	logger := logging.ForService("analysis")
	if logger == nil {
		logger = slog.Default().With("service", "analysis")
	}

	s := &session{
		settings: settings,
		logger:   logger,
		bus:      events.NewBus(events.DefaultMaxDispatchDepth),
		buffer:   features.NewStreamBuffer(settings.Buffer.Capacity, mode),
		surface:  &render.NullSurface{W: settings.Render.Width, H: settings.Render.Height},
	}

	pipeline, err := features.NewDefaultPipeline(settings, s.bus)
	if err != nil {
		return nil, err
	}
	s.pipeline = pipeline

	s.registry = render.NewRegistry(s.surface, settings, s.bus)
	s.field = components.NewParticleField(s.bus)

	registrations := []render.Component{
		s.field,
		components.NewSpectrumBars(),
		components.NewWaveform(),
		components.NewBeatPulse(),
	}
	for _, c := range registrations {
		if err := s.registry.Register(c); err != nil {
			return nil, err
		}
	}
	s.registry.ActivateConfigured()

	if settings.Telemetry.Enabled {
		s.metrics = telemetry.NewMetrics()
		s.metrics.Attach(s.bus)
		s.metrics.RegisterGauge("musicv_buffer_depth", "Feature vectors waiting in the stream buffer.",
			func() float64 { return float64(s.buffer.Len()) })
		s.metrics.RegisterGauge("musicv_particles_active", "Live particles in the pool.",
			func() float64 { return float64(s.field.Engine().Pool().Live()) })
		s.metrics.RegisterCounterFunc("musicv_buffer_dropped_total", "Feature vectors evicted by the streaming drop-oldest policy.",
			func() float64 { return float64(s.buffer.Dropped()) })
		s.metrics.Serve(ctx, settings.Telemetry.Listen)
	}

	if settings.MQTT.Enabled {
		client, err := notify.NewClient(ctx, settings.MQTT)
		if err != nil {
			// Notify is best effort: run without it rather than abort.
			logger.Warn("MQTT disabled for this run", "error", err)
		} else {
			client.Attach(s.bus)
			s.mqtt = client
		}
	}

	return s, nil
}

// newScheduler builds the render scheduler over the session's buffer.
func (s *session) newScheduler() *render.Scheduler {
	return render.NewScheduler(render.SchedulerConfig{
		Registry:   s.registry,
		Buffer:     s.buffer,
		Surface:    s.surface,
		Bus:        s.bus,
		TargetFPS:  s.settings.Render.TargetFPS,
		Background: s.settings.Render.Background,
	})
}

// close releases external connections.
func (s *session) close() {
	if s.mqtt != nil {
		s.mqtt.Close()
	}
}
