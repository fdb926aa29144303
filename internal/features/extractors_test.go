package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSampleRate = 16000
	testWindow     = 1024
)

// sine generates one analysis window of a pure tone.
func sine(freq, amplitude float64) []float64 {
	samples := make([]float64, testWindow)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
	return samples
}

func TestTemporalExtractorOnPureTone(t *testing.T) {
	e := NewTemporalExtractor()

	values, err := e.Extract(sine(1000, 0.5), testSampleRate)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, values["temporal.amplitude"].Scalar, 0.01)
	// RMS of a sine is amplitude/sqrt(2).
	assert.InDelta(t, 0.5/math.Sqrt2, values["temporal.rms"].Scalar, 0.01)
	// A 1 kHz tone crosses zero twice per cycle.
	assert.InDelta(t, 2*1000.0/testSampleRate, values["temporal.zcr"].Scalar, 0.01)
}

func TestTemporalExtractorOnSilence(t *testing.T) {
	e := NewTemporalExtractor()

	values, err := e.Extract(make([]float64, testWindow), testSampleRate)
	require.NoError(t, err)

	assert.Zero(t, values["temporal.amplitude"].Scalar)
	assert.Zero(t, values["temporal.rms"].Scalar)
	assert.Zero(t, values["temporal.zcr"].Scalar)
}

func TestSpectralExtractorPeaksAtToneFrequency(t *testing.T) {
	e := NewSpectralExtractor(SpectralConfig{
		WindowSize: testWindow,
		FFTSize:    testWindow,
		MelBands:   32,
		SampleRate: testSampleRate,
	})

	values, err := e.Extract(sine(1000, 0.8), testSampleRate)
	require.NoError(t, err)

	spectrum := values["frequency.spectrum"].Vector
	require.NotEmpty(t, spectrum)

	peak := 0
	for i, m := range spectrum {
		if m > spectrum[peak] {
			peak = i
		}
	}

	binWidth := float64(testSampleRate) / float64(testWindow)
	assert.InDelta(t, 1000, float64(peak)*binWidth, binWidth+0.01)

	mel := values["frequency.mel"].Vector
	assert.Len(t, mel, 32)
}

func TestSpectralFluxRisesOnSpectrumChange(t *testing.T) {
	e := NewSpectralExtractor(SpectralConfig{
		WindowSize: testWindow,
		FFTSize:    testWindow,
		MelBands:   32,
		SampleRate: testSampleRate,
	})

	// First window establishes the baseline; flux is zero by definition.
	values, err := e.Extract(make([]float64, testWindow), testSampleRate)
	require.NoError(t, err)
	assert.Zero(t, values["frequency.flux"].Scalar)

	values, err = e.Extract(sine(2000, 0.8), testSampleRate)
	require.NoError(t, err)
	assert.Greater(t, values["frequency.flux"].Scalar, 0.0)
}

func TestRhythmExtractorDetectsOnsetAfterSilence(t *testing.T) {
	e := NewRhythmExtractor(RhythmConfig{HopSize: 256})

	for i := 0; i < 4; i++ {
		values, err := e.Extract(make([]float64, testWindow), testSampleRate)
		require.NoError(t, err)
		assert.Zero(t, values["rhythm.is_beat"].Scalar)
	}

	values, err := e.Extract(sine(200, 0.8), testSampleRate)
	require.NoError(t, err)
	assert.Equal(t, 1.0, values["rhythm.is_beat"].Scalar)
	assert.Greater(t, values["rhythm.onset"].Scalar, 0.0)
}

func TestRhythmExtractorCooldownSuppressesDoubleTrigger(t *testing.T) {
	e := NewRhythmExtractor(RhythmConfig{HopSize: 256})

	_, err := e.Extract(make([]float64, testWindow), testSampleRate)
	require.NoError(t, err)

	values, err := e.Extract(sine(200, 0.8), testSampleRate)
	require.NoError(t, err)
	require.Equal(t, 1.0, values["rhythm.is_beat"].Scalar)

	// Sustained level right after a beat must not re-trigger.
	values, err = e.Extract(sine(200, 0.8), testSampleRate)
	require.NoError(t, err)
	assert.Zero(t, values["rhythm.is_beat"].Scalar)
}

func TestTimbreExtractorCentroidTracksBrightness(t *testing.T) {
	newExtractor := func() *TimbreExtractor {
		return NewTimbreExtractor(TimbreConfig{
			WindowSize: testWindow,
			FFTSize:    testWindow,
			MelBands:   32,
			MFCCCoeffs: 13,
			SampleRate: testSampleRate,
		})
	}

	low, err := newExtractor().Extract(sine(500, 0.8), testSampleRate)
	require.NoError(t, err)
	high, err := newExtractor().Extract(sine(4000, 0.8), testSampleRate)
	require.NoError(t, err)

	assert.Greater(t, high["timbre.centroid"].Scalar, low["timbre.centroid"].Scalar)
	assert.Greater(t, high["timbre.rolloff"].Scalar, low["timbre.rolloff"].Scalar)
	assert.Len(t, low["timbre.mfcc"].Vector, 13)
}

func TestDefaultExtractorKeysAreDisjoint(t *testing.T) {
	extractors := []Extractor{
		NewTemporalExtractor(),
		NewSpectralExtractor(SpectralConfig{
			WindowSize: testWindow, FFTSize: testWindow, MelBands: 32, SampleRate: testSampleRate,
		}),
		NewRhythmExtractor(RhythmConfig{HopSize: 256}),
		NewTimbreExtractor(TimbreConfig{
			WindowSize: testWindow, FFTSize: testWindow, MelBands: 32, MFCCCoeffs: 13, SampleRate: testSampleRate,
		}),
	}

	seen := make(map[string]string)
	for _, e := range extractors {
		for _, key := range e.OutputKeys() {
			if owner, dup := seen[key]; dup {
				t.Fatalf("key %q produced by both %s and %s", key, owner, e.Name())
			}
			seen[key] = e.Name()
		}
	}
}
