// Package render drives the frame loop: a registry of visual components and a
// scheduler that paces them against the feature stream.
package render

import (
	"fmt"
	"strings"
)

// Color is an RGBA color with 8-bit channels.
type Color struct {
	R, G, B, A uint8
}

// ParseColor parses a "#rrggbb" hex string.
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid color %q: want rrggbb", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: r, G: g, B: b, A: 255}, nil
}

// HSVA converts hue (0..360), saturation, value and alpha (0..1) to a Color.
func HSVA(h, s, v, a float64) Color {
	h = h / 60
	i := int(h) % 6
	f := h - float64(int(h))
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return Color{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: uint8(a * 255)}
}

// Surface is the draw target components render onto. Implementations are not
// required to be safe for concurrent use; the scheduler serializes all draw
// calls onto its own goroutine.
type Surface interface {
	Size() (width, height int)
	Clear(c Color)
	FillRect(x, y, w, h float64, c Color)
	DrawCircle(x, y, radius float64, c Color)
	DrawLine(x1, y1, x2, y2 float64, c Color)
	Present() error
}

// NullSurface discards all draw calls. It backs headless runs where only
// extraction, events and telemetry matter.
type NullSurface struct {
	W, H int
}

func (s *NullSurface) Size() (int, int)                          { return s.W, s.H }
func (s *NullSurface) Clear(Color)                               {}
func (s *NullSurface) FillRect(x, y, w, h float64, c Color)      {}
func (s *NullSurface) DrawCircle(x, y, radius float64, c Color)  {}
func (s *NullSurface) DrawLine(x1, y1, x2, y2 float64, c Color)  {}
func (s *NullSurface) Present() error                            { return nil }

// CountingSurface records draw call counts for tests.
type CountingSurface struct {
	W, H int

	Clears   int
	Rects    int
	Circles  int
	Lines    int
	Presents int
}

func (s *CountingSurface) Size() (int, int) { return s.W, s.H }
func (s *CountingSurface) Clear(Color)      { s.Clears++ }
func (s *CountingSurface) FillRect(x, y, w, h float64, c Color) {
	s.Rects++
}
func (s *CountingSurface) DrawCircle(x, y, radius float64, c Color) {
	s.Circles++
}
func (s *CountingSurface) DrawLine(x1, y1, x2, y2 float64, c Color) {
	s.Lines++
}
func (s *CountingSurface) Present() error {
	s.Presents++
	return nil
}
