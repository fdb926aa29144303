package conf

import (
	"github.com/tphakala/musicv-go/internal/errors"
)

// Validate checks the loaded settings for values the engine cannot run with.
// Validation failures are configuration errors and abort startup.
func (s *Settings) Validate() error {
	if s.Audio.SampleRate <= 0 {
		return errors.Newf("audio.samplerate must be positive, got %d", s.Audio.SampleRate).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if s.Audio.WindowSize <= 0 {
		return errors.Newf("audio.windowsize must be positive, got %d", s.Audio.WindowSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if s.Audio.HopSize <= 0 || s.Audio.HopSize > s.Audio.WindowSize {
		return errors.Newf("audio.hopsize must be in (0, windowsize], got %d", s.Audio.HopSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("window_size", s.Audio.WindowSize).
			Build()
	}

	if s.Audio.FFTSize < s.Audio.WindowSize {
		return errors.Newf("audio.fftsize must be at least windowsize, got %d", s.Audio.FFTSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("window_size", s.Audio.WindowSize).
			Build()
	}

	if s.Audio.MelBands <= 0 || s.Audio.MFCCCoeffs <= 0 {
		return errors.Newf("audio.melbands and audio.mfcccoeffs must be positive").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if s.Audio.MFCCCoeffs > s.Audio.MelBands {
		return errors.Newf("audio.mfcccoeffs %d exceeds audio.melbands %d", s.Audio.MFCCCoeffs, s.Audio.MelBands).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if s.Buffer.Capacity <= 0 {
		return errors.Newf("buffer.capacity must be positive, got %d", s.Buffer.Capacity).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if s.Render.TargetFPS <= 0 {
		return errors.Newf("render.targetfps must be positive, got %d", s.Render.TargetFPS).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if s.Render.Width <= 0 || s.Render.Height <= 0 {
		return errors.Newf("render.width and render.height must be positive").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if s.Particles.PoolSize <= 0 {
		return errors.Newf("particles.poolsize must be positive, got %d", s.Particles.PoolSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if s.Particles.GridCellSize <= 0 {
		return errors.Newf("particles.gridcellsize must be positive, got %f", s.Particles.GridCellSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return nil
}
