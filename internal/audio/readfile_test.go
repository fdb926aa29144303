package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleDivisorPerBitDepth(t *testing.T) {
	tests := []struct {
		bitDepth int
		want     float64
	}{
		{16, 32768.0},
		{24, 8388608.0},
		{32, 2147483648.0},
	}

	for _, tc := range tests {
		got, err := sampleDivisor(tc.bitDepth)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := sampleDivisor(8)
	assert.Error(t, err)
}

func TestDownmixMonoNormalizes(t *testing.T) {
	out := downmix([]int{0, 16384, -32768}, 1, 32768.0)

	require.Len(t, out, 3)
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 0.5, out[1])
	assert.Equal(t, -1.0, out[2])
}

func TestDownmixStereoAveragesChannels(t *testing.T) {
	// Two frames of interleaved L/R.
	out := downmix([]int{32768, 0, -16384, 16384}, 2, 32768.0)

	require.Len(t, out, 2)
	assert.Equal(t, 0.5, out[0])
	assert.Equal(t, 0.0, out[1])
}

func TestReadFileRejectsUnknownExtension(t *testing.T) {
	_, _, err := ReadFile("song.mp3")
	assert.Error(t, err)
}

func TestFrameDuration(t *testing.T) {
	f := Frame{Samples: make([]float64, 8000), SampleRate: 16000}
	assert.Equal(t, 0.5, f.Duration().Seconds())
}
