package render

import (
	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/features"
)

// Component is one visual layer. The scheduler calls Update then Render once
// per frame on every active component, in registration order, always from the
// render goroutine.
type Component interface {
	// Name is the unique registry key.
	Name() string

	// Init prepares the component for the given surface and settings. It is
	// called once, at registration.
	Init(surface Surface, settings *conf.Settings) error

	// Update advances component state by dt seconds under the given feature
	// vector. The vector may be the previous frame's when extraction lags.
	Update(v *features.Vector, dt float64) error

	// Render draws the component onto the surface.
	Render(surface Surface) error
}
