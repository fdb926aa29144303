// Package audio provides audio frame acquisition for the visualizer. Frames
// come from either decoded audio files or a live capture device; the
// extraction pipeline is source-agnostic and only sees the AudioFrame shape.
package audio

import (
	"context"
	"time"
)

// Frame is a timestamped block of mono samples. A frame is immutable once
// produced: it is owned by the pipeline from the moment it is received and
// discarded after one extraction pass.
type Frame struct {
	Samples    []float64     // normalized samples in [-1, 1]
	SampleRate int           // sample rate in Hz
	Channels   int           // channel count of the source before downmix
	Timestamp  time.Duration // monotonic offset from stream start
	Seq        uint64        // monotonically increasing frame identifier
}

// Duration returns the play time covered by the frame.
func (f *Frame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(f.Samples)) / float64(f.SampleRate) * float64(time.Second))
}

// Source is an audio input yielding a frame sequence. Both file playback and
// live capture implement it.
type Source interface {
	// ID returns a unique identifier for this source
	ID() string

	// Name returns a human-readable name for this source
	Name() string

	// Start begins producing frames
	Start(ctx context.Context) error

	// Stop halts frame production
	Stop() error

	// Frames returns a channel that emits audio frames
	Frames() <-chan Frame

	// Errs returns a channel for error reporting
	Errs() <-chan error

	// IsActive returns true if the source is currently producing
	IsActive() bool

	// SampleRate returns the sample rate of emitted frames
	SampleRate() int
}

// Info describes a decoded audio file.
type Info struct {
	SampleRate   int
	TotalSamples int
	NumChannels  int
	BitDepth     int
}

// TotalDuration returns the play time of the described audio.
func (i Info) TotalDuration() time.Duration {
	if i.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(i.TotalSamples) / float64(i.SampleRate) * float64(time.Second))
}
