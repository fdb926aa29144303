package audio

import (
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/musicv-go/internal/errors"
)

func readWAV(path string) ([]float64, Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Info{}, errors.New(err).
			Component("audio").
			Category(errors.CategoryFileIO).
			Build()
	}
	defer file.Close() //nolint:errcheck

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, Info{}, errors.Newf("input is not a valid WAV audio file").
			Component("audio").
			Category(errors.CategoryFileIO).
			Build()
	}

	if decoder.NumChans != 1 && decoder.NumChans != 2 {
		return nil, Info{}, errors.Newf("unsupported number of channels: %d", decoder.NumChans).
			Component("audio").
			Category(errors.CategoryFileIO).
			Build()
	}

	divisor, err := sampleDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, Info{}, err
	}

	info := Info{
		SampleRate:  int(decoder.SampleRate),
		NumChannels: int(decoder.NumChans),
		BitDepth:    int(decoder.BitDepth),
	}

	// Read in ~1 second blocks to keep peak memory proportional to input.
	buf := &goaudio.IntBuffer{
		Data:   make([]int, info.SampleRate*info.NumChannels),
		Format: &goaudio.Format{SampleRate: info.SampleRate, NumChannels: info.NumChannels},
	}

	var samples []float64
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, Info{}, errors.New(err).
				Component("audio").
				Category(errors.CategoryFileIO).
				Build()
		}
		if n == 0 {
			break
		}
		samples = append(samples, downmix(buf.Data[:n], info.NumChannels, divisor)...)
	}

	info.TotalSamples = len(samples)
	return samples, info, nil
}
