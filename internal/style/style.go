// Package style classifies the character of the music from the extracted
// feature stream and maps each recognized style onto a visual preset. The
// classifier is a scored rule set over smoothed feature statistics; a dwell
// time keeps transients from flapping the visual configuration.
package style

import (
	"time"

	"github.com/tphakala/musicv-go/internal/features"
	"github.com/tphakala/musicv-go/internal/particles"
)

// Style identifies a recognized musical character.
type Style string

const (
	StyleUnknown    Style = ""
	StylePiano      Style = "piano"
	StyleRock       Style = "rock"
	StyleElectronic Style = "electronic"
	StyleLight      Style = "light"
)

// scored keeps classification deterministic on ties: earlier entries win.
var scored = []Style{StylePiano, StyleRock, StyleElectronic, StyleLight}

// Preset is the particle configuration a style selects.
type Preset struct {
	Pattern      particles.EmissionPattern
	EmitScale    float64 // multiplier on the configured emission rate
	BeatResponse float64 // multiplier on beat burst size
}

var presets = map[Style]Preset{
	StylePiano:      {Pattern: particles.Wave, EmitScale: 0.6, BeatResponse: 1.2},
	StyleRock:       {Pattern: particles.Radial, EmitScale: 1.3, BeatResponse: 1.8},
	StyleElectronic: {Pattern: particles.Spiral, EmitScale: 1.1, BeatResponse: 1.6},
	StyleLight:      {Pattern: particles.Wave, EmitScale: 0.5, BeatResponse: 1.0},
}

// PresetFor returns the visual preset for a style.
func PresetFor(s Style) (Preset, bool) {
	p, ok := presets[s]
	return p, ok
}

const (
	defaultAlpha      = 0.1 // EMA weight of the newest vector
	defaultMinSamples = 8
	defaultMinDwell   = 2 * time.Second
)

// Analyzer accumulates smoothed feature statistics per vector and scores
// them against the style profiles.
type Analyzer struct {
	nyquist    float64
	minSamples int
	minDwell   time.Duration

	samples    int
	current    Style
	lastChange time.Duration

	amplitude  float64
	bpm        float64
	centroid   float64 // normalized 0..1 against Nyquist
	bandwidth  float64 // normalized 0..1 against Nyquist
	lowEnergy  float64 // fraction of mel energy in the bottom fifth
	highEnergy float64 // fraction of mel energy in the top fifth
}

// NewAnalyzer creates an analyzer for features extracted at the given sample
// rate.
func NewAnalyzer(sampleRate int) *Analyzer {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Analyzer{
		nyquist:    float64(sampleRate) / 2,
		minSamples: defaultMinSamples,
		minDwell:   defaultMinDwell,
	}
}

// Current returns the most recent classification.
func (a *Analyzer) Current() Style { return a.current }

// Observe folds one feature vector into the running statistics and
// reclassifies. It returns the current style and whether it changed on this
// observation. A change within minDwell of the previous one is suppressed.
func (a *Analyzer) Observe(v *features.Vector) (Style, bool) {
	if v == nil {
		return a.current, false
	}

	a.accumulate(v)
	if a.samples < a.minSamples {
		return a.current, false
	}

	best := a.classify()
	if best == a.current {
		return a.current, false
	}
	if a.current != StyleUnknown && v.Timestamp-a.lastChange < a.minDwell {
		return a.current, false
	}

	a.current = best
	a.lastChange = v.Timestamp
	return a.current, true
}

func (a *Analyzer) accumulate(v *features.Vector) {
	amplitude := v.Scalar("temporal.amplitude", 0)
	bpm := v.Scalar("rhythm.bpm", 0)
	centroid := v.Scalar("timbre.centroid", 0) / a.nyquist
	bandwidth := v.Scalar("timbre.bandwidth", 0) / a.nyquist
	low, high := melEdgeFractions(v.Array("frequency.mel"))

	if a.samples == 0 {
		a.amplitude = amplitude
		a.bpm = bpm
		a.centroid = centroid
		a.bandwidth = bandwidth
		a.lowEnergy = low
		a.highEnergy = high
	} else {
		a.amplitude = ema(a.amplitude, amplitude)
		a.bpm = ema(a.bpm, bpm)
		a.centroid = ema(a.centroid, centroid)
		a.bandwidth = ema(a.bandwidth, bandwidth)
		a.lowEnergy = ema(a.lowEnergy, low)
		a.highEnergy = ema(a.highEnergy, high)
	}
	a.samples++
}

func ema(prev, next float64) float64 {
	return (1-defaultAlpha)*prev + defaultAlpha*next
}

// melEdgeFractions returns the share of mel energy in the bottom and top
// fifth of the bands.
func melEdgeFractions(mel []float64) (low, high float64) {
	if len(mel) == 0 {
		return 0, 0
	}

	edge := len(mel) / 5
	if edge == 0 {
		edge = 1
	}

	var total, lowSum, highSum float64
	for i, e := range mel {
		total += e
		if i < edge {
			lowSum += e
		}
		if i >= len(mel)-edge {
			highSum += e
		}
	}
	if total <= 0 {
		return 0, 0
	}
	return lowSum / total, highSum / total
}

// classify scores the smoothed statistics against each style profile and
// returns the highest scorer.
func (a *Analyzer) classify() Style {
	scores := map[Style]int{
		StylePiano:      a.scorePiano(),
		StyleRock:       a.scoreRock(),
		StyleElectronic: a.scoreElectronic(),
		StyleLight:      a.scoreLight(),
	}

	best := scored[0]
	for _, s := range scored[1:] {
		if scores[s] > scores[best] {
			best = s
		}
	}
	return best
}

// Piano: moderate level, moderate tempo, melodic (high centroid, narrow
// bandwidth).
func (a *Analyzer) scorePiano() int {
	score := 0
	if a.amplitude > 0.2 && a.amplitude < 0.6 {
		score += 2
	}
	if a.bpm > 60 && a.bpm < 120 {
		score += 2
	}
	if a.centroid > 0.4 {
		score += 3
	}
	if a.bandwidth < 0.2 {
		score += 2
	}
	return score
}

// Rock: loud, driving tempo, rich highs, wide bandwidth.
func (a *Analyzer) scoreRock() int {
	score := 0
	if a.amplitude > 0.5 {
		score += 3
	}
	if a.bpm > 100 && a.bpm < 160 {
		score += 2
	}
	if a.highEnergy > 0.3 {
		score += 3
	}
	if a.bandwidth > 0.25 {
		score += 2
	}
	return score
}

// Electronic: steady fast tempo, heavy lows, mid-range centroid.
func (a *Analyzer) scoreElectronic() int {
	score := 0
	if a.amplitude > 0.4 {
		score += 2
	}
	if a.bpm > 120 && a.bpm < 180 {
		score += 3
	}
	if a.lowEnergy > 0.4 {
		score += 3
	}
	if a.centroid > 0.3 && a.centroid < 0.6 {
		score += 2
	}
	return score
}

// Light: quiet, slow, soft highs, narrow bandwidth.
func (a *Analyzer) scoreLight() int {
	score := 0
	if a.amplitude < 0.3 {
		score += 3
	}
	if a.bpm < 100 {
		score += 2
	}
	if a.highEnergy < 0.2 {
		score += 2
	}
	if a.bandwidth < 0.2 {
		score += 2
	}
	return score
}
