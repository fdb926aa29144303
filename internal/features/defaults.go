package features

import (
	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/events"
)

// NewDefaultPipeline builds a pipeline with the standard extractor set
// (temporal, spectral, rhythm, timbre) sized from the audio settings.
func NewDefaultPipeline(settings *conf.Settings, bus *events.Bus) (*Pipeline, error) {
	a := settings.Audio

	pipeline := NewPipeline(PipelineConfig{
		WindowSize: a.WindowSize,
		HopSize:    a.HopSize,
		SampleRate: a.SampleRate,
		Bus:        bus,
	})

	extractors := []Extractor{
		NewTemporalExtractor(),
		NewSpectralExtractor(SpectralConfig{
			WindowSize: a.WindowSize,
			FFTSize:    a.FFTSize,
			MelBands:   a.MelBands,
			SampleRate: a.SampleRate,
		}),
		NewRhythmExtractor(RhythmConfig{HopSize: a.HopSize}),
		NewTimbreExtractor(TimbreConfig{
			WindowSize: a.WindowSize,
			FFTSize:    a.FFTSize,
			MelBands:   a.MelBands,
			MFCCCoeffs: a.MFCCCoeffs,
			SampleRate: a.SampleRate,
		}),
	}

	for _, e := range extractors {
		if err := pipeline.Register(e); err != nil {
			return nil, err
		}
	}

	return pipeline, nil
}
