package components

import (
	"math"

	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/features"
	"github.com/tphakala/musicv-go/internal/render"
)

// SpectrumBars renders the mel spectrum as vertical bars rising from the
// bottom edge, with per-bar peak decay so transients stay visible.
type SpectrumBars struct {
	width  int
	height int

	levels []float64 // smoothed bar heights, 0..1
	decay  float64
}

// NewSpectrumBars creates the spectrum layer.
func NewSpectrumBars() *SpectrumBars {
	return &SpectrumBars{decay: 2.5}
}

func (c *SpectrumBars) Name() string { return "spectrum" }

func (c *SpectrumBars) Init(surface render.Surface, settings *conf.Settings) error {
	c.width, c.height = surface.Size()
	c.levels = make([]float64, settings.Audio.MelBands)
	return nil
}

func (c *SpectrumBars) Update(v *features.Vector, dt float64) error {
	mel := v.Array("frequency.log_mel")

	for i := range c.levels {
		target := 0.0
		if i < len(mel) {
			// Log-mel spans roughly -10..2; normalize to 0..1.
			target = (mel[i] + 10) / 12
			if target < 0 {
				target = 0
			}
			if target > 1 {
				target = 1
			}
		}
		if target > c.levels[i] {
			c.levels[i] = target
		} else {
			c.levels[i] = math.Max(target, c.levels[i]-c.decay*dt)
		}
	}
	return nil
}

func (c *SpectrumBars) Render(surface render.Surface) error {
	n := len(c.levels)
	if n == 0 {
		return nil
	}

	barWidth := float64(c.width) / float64(n)
	for i, level := range c.levels {
		barHeight := level * float64(c.height) * 0.6
		x := float64(i) * barWidth
		hue := 240 - 240*float64(i)/float64(n)
		surface.FillRect(x, float64(c.height)-barHeight, barWidth*0.85, barHeight,
			render.HSVA(hue, 0.9, 0.4+0.6*level, 0.85))
	}
	return nil
}
