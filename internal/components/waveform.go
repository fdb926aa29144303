package components

import (
	"math"

	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/features"
	"github.com/tphakala/musicv-go/internal/render"
)

// Waveform renders a synthetic oscillating trace across the screen center,
// with amplitude following RMS loudness and agitation following the
// zero-crossing rate.
type Waveform struct {
	width  int
	height int

	phase     float64
	amplitude float64
	frequency float64
}

// NewWaveform creates the waveform layer.
func NewWaveform() *Waveform {
	return &Waveform{frequency: 2}
}

func (c *Waveform) Name() string { return "waveform" }

func (c *Waveform) Init(surface render.Surface, settings *conf.Settings) error {
	c.width, c.height = surface.Size()
	return nil
}

func (c *Waveform) Update(v *features.Vector, dt float64) error {
	rms := v.Scalar("temporal.rms", 0)
	zcr := v.Scalar("temporal.zcr", 0)

	// Smooth toward the target so the trace breathes instead of jittering.
	targetAmp := math.Min(rms*4, 1)
	c.amplitude += (targetAmp - c.amplitude) * math.Min(dt*8, 1)

	c.frequency = 1 + zcr*40
	c.phase += c.frequency * dt * 2 * math.Pi
	return nil
}

func (c *Waveform) Render(surface render.Surface) error {
	const segments = 96
	midY := float64(c.height) / 2
	maxSwing := float64(c.height) * 0.25

	prevX := 0.0
	prevY := midY
	for i := 1; i <= segments; i++ {
		x := float64(i) / segments * float64(c.width)
		t := float64(i) / segments
		y := midY + math.Sin(t*6*math.Pi+c.phase)*c.amplitude*maxSwing
		surface.DrawLine(prevX, prevY, x, y,
			render.HSVA(180, 0.6, 0.9, 0.5+0.5*c.amplitude))
		prevX, prevY = x, y
	}
	return nil
}
