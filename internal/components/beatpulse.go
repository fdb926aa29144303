package components

import (
	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/features"
	"github.com/tphakala/musicv-go/internal/render"
)

// BeatPulse flashes an expanding ring from the center on each detected beat,
// fading it out over a fraction of a second.
type BeatPulse struct {
	width  int
	height int

	rings []pulseRing
}

type pulseRing struct {
	age      float64
	strength float64
}

const pulseLife = 0.5

// NewBeatPulse creates the beat pulse layer.
func NewBeatPulse() *BeatPulse {
	return &BeatPulse{}
}

func (c *BeatPulse) Name() string { return "beatpulse" }

func (c *BeatPulse) Init(surface render.Surface, settings *conf.Settings) error {
	c.width, c.height = surface.Size()
	return nil
}

func (c *BeatPulse) Update(v *features.Vector, dt float64) error {
	live := c.rings[:0]
	for _, ring := range c.rings {
		ring.age += dt
		if ring.age < pulseLife {
			live = append(live, ring)
		}
	}
	c.rings = live

	if v.Scalar("rhythm.is_beat", 0) > 0.5 {
		c.rings = append(c.rings, pulseRing{
			strength: v.Scalar("rhythm.beat_strength", 0),
		})
	}
	return nil
}

func (c *BeatPulse) Render(surface render.Surface) error {
	cx := float64(c.width) / 2
	cy := float64(c.height) / 2
	maxRadius := float64(c.height) * 0.45

	for _, ring := range c.rings {
		progress := ring.age / pulseLife
		radius := maxRadius * progress * (0.5 + 0.5*ring.strength)
		alpha := (1 - progress) * (0.4 + 0.6*ring.strength)
		surface.DrawCircle(cx, cy, radius, render.HSVA(40, 0.5, 1, alpha))
	}
	return nil
}
