package features

import (
	"math"
	"sort"
	"time"
)

// RhythmExtractor detects onsets from window-to-window energy rise and
// derives a smoothed beat strength plus a coarse BPM estimate from
// inter-onset intervals. It keeps state across windows and must be called
// sequentially.
type RhythmExtractor struct {
	hopSize int

	lastEnergy     float64
	minEnergyRatio float64
	threshold      float64

	// Recent onset strengths for smoothing and normalization.
	history    []float64
	historyCap int

	// Window indices where onsets fired, for BPM estimation.
	onsetHops []int
	hopCount  int

	cooldownHops int
	lastOnsetHop int
}

// RhythmConfig holds tuning for the rhythm extractor.
type RhythmConfig struct {
	HopSize int
	// MinEnergyRatio is the energy rise ratio treated as an onset.
	MinEnergyRatio float64
	// Threshold is the minimum energy for onset consideration.
	Threshold float64
}

// NewRhythmExtractor creates a rhythm feature extractor.
func NewRhythmExtractor(cfg RhythmConfig) *RhythmExtractor {
	if cfg.MinEnergyRatio <= 0 {
		cfg.MinEnergyRatio = 1.3
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.01
	}
	return &RhythmExtractor{
		hopSize:        cfg.HopSize,
		minEnergyRatio: cfg.MinEnergyRatio,
		threshold:      cfg.Threshold,
		historyCap:     64,
		lastOnsetHop:   -1,
		cooldownHops:   2,
	}
}

func (e *RhythmExtractor) Name() string { return "rhythm" }

func (e *RhythmExtractor) Requirements() Requirements {
	return Requirements{HopSize: e.hopSize}
}

func (e *RhythmExtractor) OutputKeys() []string {
	return []string{"rhythm.onset", "rhythm.beat_strength", "rhythm.is_beat", "rhythm.bpm"}
}

func (e *RhythmExtractor) Extract(samples []float64, sampleRate int) (map[string]Value, error) {
	var sumSquare float64
	for _, s := range samples {
		sumSquare += s * s
	}
	energy := 0.0
	if len(samples) > 0 {
		energy = math.Sqrt(sumSquare / float64(len(samples)))
	}

	// Onset strength: positive energy rise over the previous window.
	onset := 0.0
	if energy > e.lastEnergy {
		onset = energy - e.lastEnergy
	}

	isBeat := energy > e.threshold &&
		(e.lastEnergy == 0 || energy/e.lastEnergy > e.minEnergyRatio) &&
		(e.lastOnsetHop < 0 || e.hopCount-e.lastOnsetHop > e.cooldownHops)

	e.lastEnergy = energy

	e.history = append(e.history, onset)
	if len(e.history) > e.historyCap {
		e.history = e.history[1:]
	}

	if isBeat {
		e.onsetHops = append(e.onsetHops, e.hopCount)
		if len(e.onsetHops) > 16 {
			e.onsetHops = e.onsetHops[1:]
		}
		e.lastOnsetHop = e.hopCount
	}
	e.hopCount++

	beat := 0.0
	if isBeat {
		beat = 1.0
	}

	return map[string]Value{
		"rhythm.onset":         ScalarValue(onset),
		"rhythm.beat_strength": ScalarValue(e.beatStrength()),
		"rhythm.is_beat":       ScalarValue(beat),
		"rhythm.bpm":           ScalarValue(e.estimateBPM(sampleRate)),
	}, nil
}

// beatStrength smooths recent onset strengths with a sliding local maximum,
// floors them at the 30th percentile and normalizes to 0..1 so visuals keep
// a baseline pulse between beats.
func (e *RhythmExtractor) beatStrength() float64 {
	n := len(e.history)
	if n == 0 {
		return 0
	}

	const halfWindow = 10
	lo := n - 1 - halfWindow
	if lo < 0 {
		lo = 0
	}
	var local float64
	for _, v := range e.history[lo:] {
		if v > local {
			local = v
		}
	}

	sorted := append([]float64(nil), e.history...)
	sort.Float64s(sorted)
	floor := sorted[n*30/100]
	if local < floor {
		local = floor
	}

	peak := sorted[n-1]
	if peak <= 0 {
		return 0
	}
	return local / peak
}

// estimateBPM derives tempo from the median interval between recent onsets.
func (e *RhythmExtractor) estimateBPM(sampleRate int) float64 {
	if len(e.onsetHops) < 2 || e.hopSize == 0 || sampleRate == 0 {
		return 0
	}

	intervals := make([]int, 0, len(e.onsetHops)-1)
	for i := 1; i < len(e.onsetHops); i++ {
		intervals = append(intervals, e.onsetHops[i]-e.onsetHops[i-1])
	}
	sort.Ints(intervals)
	median := intervals[len(intervals)/2]
	if median == 0 {
		return 0
	}

	hopDuration := time.Duration(float64(e.hopSize) / float64(sampleRate) * float64(time.Second))
	interval := time.Duration(median) * hopDuration
	if interval <= 0 {
		return 0
	}
	return 60 / interval.Seconds()
}
