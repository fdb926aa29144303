package features

import (
	"time"
)

// Sequence is an indexable series of feature vectors keyed by time, produced
// by batch extraction over a whole file.
type Sequence struct {
	Vectors    []*Vector
	SampleRate int
	WindowSize int
	HopSize    int
}

// HopDuration returns the play time between successive vectors.
func (s *Sequence) HopDuration() time.Duration {
	if s.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(s.HopSize) / float64(s.SampleRate) * float64(time.Second))
}

// At returns the vector covering the given play position, or nil when the
// position is past the end.
func (s *Sequence) At(position time.Duration) *Vector {
	hop := s.HopDuration()
	if hop == 0 || len(s.Vectors) == 0 {
		return nil
	}
	idx := int(position / hop)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.Vectors) {
		return nil
	}
	return s.Vectors[idx]
}

// ExtractAll windows the whole sample slice up front and runs the pipeline
// over every window. Batch extraction is file-bounded and may run fully
// ahead of rendering.
func (p *Pipeline) ExtractAll(samples []float64) *Sequence {
	seq := &Sequence{
		SampleRate: p.sampleRate,
		WindowSize: p.windowSize,
		HopSize:    p.hopSize,
	}

	hopDuration := time.Duration(float64(p.hopSize) / float64(p.sampleRate) * float64(time.Second))

	var n uint64
	for offset := 0; offset+p.windowSize <= len(samples); offset += p.hopSize {
		window := samples[offset : offset+p.windowSize]
		timestamp := time.Duration(n) * hopDuration
		seq.Vectors = append(seq.Vectors, p.Extract(window, timestamp, n))
		n++
	}

	return seq
}
