package features

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// SpectralExtractor computes the Hann-windowed magnitude spectrum, spectral
// flux against the previous window, and mel-band energies with their log
// compression.
type SpectralExtractor struct {
	fftSize  int
	melBands int

	fft       *fourier.FFT
	hann      []float64
	melFilter [][]melWeight
	prevMag   []float64
}

type melWeight struct {
	bin    int
	weight float64
}

// SpectralConfig holds sizing for the spectral extractor.
type SpectralConfig struct {
	WindowSize int
	FFTSize    int
	MelBands   int
	SampleRate int
}

// NewSpectralExtractor creates a spectral feature extractor. The FFT plan,
// Hann coefficients and mel filter bank are precomputed once.
func NewSpectralExtractor(cfg SpectralConfig) *SpectralExtractor {
	e := &SpectralExtractor{
		fftSize:  cfg.FFTSize,
		melBands: cfg.MelBands,
		fft:      fourier.NewFFT(cfg.FFTSize),
		hann:     window.Hann(ones(cfg.WindowSize)),
	}
	e.melFilter = buildMelFilterBank(cfg.MelBands, cfg.FFTSize, cfg.SampleRate)
	return e
}

func (e *SpectralExtractor) Name() string { return "spectral" }

func (e *SpectralExtractor) Requirements() Requirements {
	return Requirements{WindowSize: len(e.hann)}
}

func (e *SpectralExtractor) OutputKeys() []string {
	return []string{"frequency.spectrum", "frequency.flux", "frequency.mel", "frequency.log_mel"}
}

func (e *SpectralExtractor) Extract(samples []float64, sampleRate int) (map[string]Value, error) {
	mag := e.magnitudes(samples)

	// Positive spectral flux against the previous window.
	var flux float64
	if e.prevMag != nil {
		for i := range mag {
			if d := mag[i] - e.prevMag[i]; d > 0 {
				flux += d
			}
		}
		flux /= float64(len(mag))
	}
	e.prevMag = mag

	mel := make([]float64, e.melBands)
	logMel := make([]float64, e.melBands)
	for b, weights := range e.melFilter {
		var sum float64
		for _, w := range weights {
			sum += mag[w.bin] * w.weight
		}
		mel[b] = sum
		logMel[b] = math.Log10(sum + 1e-10)
	}

	return map[string]Value{
		"frequency.spectrum": VectorValue(mag),
		"frequency.flux":     ScalarValue(flux),
		"frequency.mel":      VectorValue(mel),
		"frequency.log_mel":  VectorValue(logMel),
	}, nil
}

// magnitudes computes the windowed FFT magnitude spectrum of one window.
func (e *SpectralExtractor) magnitudes(samples []float64) []float64 {
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
	for i, c := range coeffs {
		mag[i] = cmplx.Abs(c)
	}
	return mag
}

func ones(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

// hzToMel converts frequency to the mel scale.
func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// melToHz converts a mel value back to frequency.
func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// buildMelFilterBank constructs triangular mel filters over FFT bins up to
// the Nyquist frequency.
func buildMelFilterBank(bands, fftSize, sampleRate int) [][]melWeight {
	nyquist := float64(sampleRate) / 2
	numBins := fftSize/2 + 1
	binWidth := float64(sampleRate) / float64(fftSize)

	melMax := hzToMel(nyquist)
	points := make([]float64, bands+2)
	for i := range points {
		points[i] = melToHz(melMax * float64(i) / float64(bands+1))
	}

	filters := make([][]melWeight, bands)
	for b := 0; b < bands; b++ {
		lo, center, hi := points[b], points[b+1], points[b+2]
		var weights []melWeight
		for bin := 0; bin < numBins; bin++ {
			freq := float64(bin) * binWidth
			var w float64
			switch {
			case freq <= lo || freq >= hi:
				continue
			case freq <= center:
				w = (freq - lo) / (center - lo)
			default:
				w = (hi - freq) / (hi - center)
			}
			if w > 0 {
				weights = append(weights, melWeight{bin: bin, weight: w})
			}
		}
		filters[b] = weights
	}
	return filters
}
