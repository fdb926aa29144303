package features

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// TimbreExtractor computes spectral shape features (centroid, bandwidth,
// rolloff) and MFCCs from a DCT-II of the log-mel energies.
type TimbreExtractor struct {
	fftSize    int
	melBands   int
	mfccCoeffs int

	fft       *fourier.FFT
	hann      []float64
	melFilter [][]melWeight
}

// TimbreConfig holds sizing for the timbre extractor.
type TimbreConfig struct {
	WindowSize int
	FFTSize    int
	MelBands   int
	MFCCCoeffs int
	SampleRate int
}

// NewTimbreExtractor creates a timbre feature extractor with its own FFT
// plan so a spectral extractor failure cannot leak into this one.
func NewTimbreExtractor(cfg TimbreConfig) *TimbreExtractor {
	return &TimbreExtractor{
		fftSize:    cfg.FFTSize,
		melBands:   cfg.MelBands,
		mfccCoeffs: cfg.MFCCCoeffs,
		fft:        fourier.NewFFT(cfg.FFTSize),
		hann:       window.Hann(ones(cfg.WindowSize)),
		melFilter:  buildMelFilterBank(cfg.MelBands, cfg.FFTSize, cfg.SampleRate),
	}
}

func (e *TimbreExtractor) Name() string { return "timbre" }

func (e *TimbreExtractor) Requirements() Requirements {
	return Requirements{WindowSize: len(e.hann)}
}

func (e *TimbreExtractor) OutputKeys() []string {
	return []string{"timbre.centroid", "timbre.bandwidth", "timbre.rolloff", "timbre.mfcc"}
}

func (e *TimbreExtractor) Extract(samples []float64, sampleRate int) (map[string]Value, error) {
	padded := make([]float64, e.fftSize)
	n := len(samples)
	if n > len(e.hann) {
		n = len(e.hann)
	}
	for i := 0; i < n; i++ {
		padded[i] = samples[i] * e.hann[i]
	}

	coeffs := e.fft.Coefficients(nil, padded)
	mag := make([]float64, len(coeffs))
	var total float64
	for i, c := range coeffs {
		mag[i] = cmplx.Abs(c)
		total += mag[i]
	}

	binWidth := float64(sampleRate) / float64(e.fftSize)

	// Spectral centroid: magnitude-weighted mean frequency.
	var centroid float64
	if total > 0 {
		for i, m := range mag {
			centroid += float64(i) * binWidth * m
		}
		centroid /= total
	}

	// Spectral bandwidth: magnitude-weighted deviation around the centroid.
	var bandwidth float64
	if total > 0 {
		for i, m := range mag {
			d := float64(i)*binWidth - centroid
			bandwidth += d * d * m
		}
		bandwidth = math.Sqrt(bandwidth / total)
	}

	// Spectral rolloff: frequency below which 85% of the energy lies.
	var rolloff float64
	if total > 0 {
		target := 0.85 * total
		var cum float64
		for i, m := range mag {
			cum += m
			if cum >= target {
				rolloff = float64(i) * binWidth
				break
			}
		}
	}

	// MFCC: DCT-II over log-mel energies.
	logMel := make([]float64, e.melBands)
	for b, weights := range e.melFilter {
		var sum float64
		for _, w := range weights {
			sum += mag[w.bin] * w.weight
		}
		logMel[b] = math.Log10(sum + 1e-10)
	}
	mfcc := dctII(logMel, e.mfccCoeffs)

	return map[string]Value{
		"timbre.centroid":  ScalarValue(centroid),
		"timbre.bandwidth": ScalarValue(bandwidth),
		"timbre.rolloff":   ScalarValue(rolloff),
		"timbre.mfcc":      VectorValue(mfcc),
	}, nil
}

// dctII computes the first k DCT-II coefficients of the input.
func dctII(input []float64, k int) []float64 {
	n := len(input)
	if k > n {
		k = n
	}
	out := make([]float64, k)
	for c := 0; c < k; c++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += input[i] * math.Cos(math.Pi*float64(c)*(float64(i)+0.5)/float64(n))
		}
		out[c] = sum
	}
	return out
}
