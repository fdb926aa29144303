// Package components provides the built-in visual layers driven by the
// render scheduler.
package components

import (
	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/features"
	"github.com/tphakala/musicv-go/internal/particles"
	"github.com/tphakala/musicv-go/internal/render"
	"github.com/tphakala/musicv-go/internal/style"
)

// ParticleField renders a particle engine whose emission follows loudness
// and whose color follows the spectral centroid. A style analyzer watches
// the same feature stream and retunes the engine when the music's character
// changes.
type ParticleField struct {
	engine   *particles.Engine
	analyzer *style.Analyzer
	bus      *events.Bus
}

// NewParticleField creates the particle layer. The engine is built at Init
// when the surface dimensions are known.
func NewParticleField(bus *events.Bus) *ParticleField {
	return &ParticleField{bus: bus}
}

func (c *ParticleField) Name() string { return "particles" }

func (c *ParticleField) Init(surface render.Surface, settings *conf.Settings) error {
	w, h := surface.Size()
	c.engine = particles.NewEngine(particles.EngineConfig{
		Width:    float64(w),
		Height:   float64(h),
		Settings: settings.Particles,
		Pattern:  particles.Spiral,
		Bus:      c.bus,
	})
	c.analyzer = style.NewAnalyzer(settings.Audio.SampleRate)
	return nil
}

func (c *ParticleField) Update(v *features.Vector, dt float64) error {
	if s, changed := c.analyzer.Observe(v); changed {
		c.applyStyle(s)
	}
	c.engine.Update(dt, v)
	return nil
}

// applyStyle retunes the engine to the style's preset and announces the
// configuration change.
func (c *ParticleField) applyStyle(s style.Style) {
	preset, ok := style.PresetFor(s)
	if !ok {
		return
	}

	c.engine.SetPattern(preset.Pattern)
	c.engine.SetEmitScale(preset.EmitScale)
	c.engine.SetBeatResponse(preset.BeatResponse)

	if c.bus != nil {
		c.bus.Emit(events.New(events.VisualConfigUpdated, map[string]any{ //nolint:errcheck
			"component":     c.Name(),
			"style":         string(s),
			"emit_scale":    preset.EmitScale,
			"beat_response": preset.BeatResponse,
		}))
	}
}

func (c *ParticleField) Render(surface render.Surface) error {
	c.engine.Pool().ForEach(func(slot int, p *particles.Particle) {
		// Crowded cells render dimmer so dense bursts read as glow, not mud.
		density := c.engine.Grid().NeighborCount(p.X, p.Y)
		alpha := p.Alpha
		if density > 30 {
			alpha *= 30 / float64(density)
		}
		surface.DrawCircle(p.X, p.Y, p.Size, render.HSVA(p.Hue, 0.8, 1, alpha))
	})
	return nil
}

// Engine exposes the underlying particle engine for stats and telemetry.
func (c *ParticleField) Engine() *particles.Engine { return c.engine }
