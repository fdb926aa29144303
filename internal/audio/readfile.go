package audio

import (
	"path/filepath"
	"strings"

	"github.com/tphakala/musicv-go/internal/errors"
)

// ReadFile decodes a WAV or FLAC file into a mono float64 sample slice plus
// stream info. Stereo input is downmixed by channel averaging. The decode is
// whole-file; batch extraction windows the result up front.
func ReadFile(path string) ([]float64, Info, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".wav":
		return readWAV(path)
	case ".flac":
		return readFLAC(path)
	default:
		return nil, Info{}, errors.Newf("unsupported audio file type: %s", ext).
			Component("audio").
			Category(errors.CategoryFileIO).
			Context("path_extension", ext).
			Build()
	}
}

// sampleDivisor returns the normalization divisor for a given bit depth.
func sampleDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.Newf("unsupported bit depth: %d", bitDepth).
			Component("audio").
			Category(errors.CategoryFileIO).
			Build()
	}
}

// downmix averages interleaved channels into mono in place of the raw ints.
func downmix(data []int, channels int, divisor float64) []float64 {
	if channels <= 1 {
		out := make([]float64, len(data))
		for i, s := range data {
			out[i] = float64(s) / divisor
		}
		return out
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c])
		}
		out[i] = sum / float64(channels) / divisor
	}
	return out
}
