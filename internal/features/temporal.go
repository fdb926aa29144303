package features

import (
	"math"
)

// TemporalExtractor computes time-domain features: peak amplitude, RMS
// loudness and zero-crossing rate.
type TemporalExtractor struct{}

// NewTemporalExtractor creates a temporal feature extractor.
func NewTemporalExtractor() *TemporalExtractor {
	return &TemporalExtractor{}
}

func (e *TemporalExtractor) Name() string { return "temporal" }

func (e *TemporalExtractor) Requirements() Requirements {
	// Any window sizing works for time-domain features.
	return Requirements{}
}

func (e *TemporalExtractor) OutputKeys() []string {
	return []string{"temporal.amplitude", "temporal.rms", "temporal.zcr"}
}

func (e *TemporalExtractor) Extract(samples []float64, sampleRate int) (map[string]Value, error) {
	var peak, sumSquare float64
	var crossings int

	for i, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
		sumSquare += s * s
		if i > 0 && (s >= 0) != (samples[i-1] >= 0) {
			crossings++
		}
	}

	n := float64(len(samples))
	rms := 0.0
	zcr := 0.0
	if n > 0 {
		rms = math.Sqrt(sumSquare / n)
		zcr = float64(crossings) / n
	}

	return map[string]Value{
		"temporal.amplitude": ScalarValue(peak),
		"temporal.rms":       ScalarValue(rms),
		"temporal.zcr":       ScalarValue(zcr),
	}, nil
}
