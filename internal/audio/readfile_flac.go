package audio

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/tphakala/flac"
	"github.com/tphakala/musicv-go/internal/errors"
)

func readFLAC(path string) ([]float64, Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Info{}, errors.New(err).
			Component("audio").
			Category(errors.CategoryFileIO).
			Build()
	}
	defer file.Close() //nolint:errcheck

	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return nil, Info{}, errors.New(err).
			Component("audio").
			Category(errors.CategoryFileIO).
			Build()
	}

	divisor, err := sampleDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, Info{}, err
	}

	info := Info{
		SampleRate:  decoder.SampleRate,
		NumChannels: decoder.NChannels,
		BitDepth:    decoder.BitsPerSample,
	}

	bytesPerSample := decoder.BitsPerSample / 8
	frameStride := bytesPerSample * decoder.NChannels

	var samples []float64
	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, Info{}, errors.New(err).
				Component("audio").
				Category(errors.CategoryFileIO).
				Build()
		}

		// Frames carry interleaved little-endian PCM; average channels to mono.
		for i := 0; i+frameStride <= len(frame); i += frameStride {
			var sum float64
			for c := 0; c < decoder.NChannels; c++ {
				off := i + c*bytesPerSample
				var sample int32
				switch decoder.BitsPerSample {
				case 16:
					sample = int32(int16(binary.LittleEndian.Uint16(frame[off:])))
				case 24:
					sample = int32(frame[off]) | int32(frame[off+1])<<8 | int32(frame[off+2])<<16
					// Sign-extend 24-bit values.
					if sample&0x800000 != 0 {
						sample |= ^int32(0xffffff)
					}
				case 32:
					sample = int32(binary.LittleEndian.Uint32(frame[off:]))
				}
				sum += float64(sample)
			}
			samples = append(samples, sum/float64(decoder.NChannels)/divisor)
		}
	}

	info.TotalSamples = len(samples)
	return samples, info, nil
}
