package audio

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tphakala/musicv-go/internal/errors"
)

// FileSource replays a decoded audio file as a real-time frame stream. It is
// used when file playback should drive the same streaming path as live
// capture; batch extraction bypasses it and reads the sample slice directly.
type FileSource struct {
	id       string
	path     string
	hopSize  int
	samples  []float64
	info     Info
	realtime bool

	frames chan Frame
	errs   chan error

	cancel context.CancelFunc
	active atomic.Bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewFileSource decodes the file up front and prepares a source that emits
// hop-sized frames. With realtime true, frames are paced at play speed;
// otherwise they are emitted as fast as the consumer drains them.
func NewFileSource(path string, hopSize int, realtime bool) (*FileSource, error) {
	samples, info, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(samples) < hopSize {
		return nil, errors.Newf("audio file shorter than one hop: %d samples", len(samples)).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("hop_size", hopSize).
			Build()
	}

	return &FileSource{
		id:       uuid.NewString(),
		path:     path,
		hopSize:  hopSize,
		samples:  samples,
		info:     info,
		realtime: realtime,
		frames:   make(chan Frame, 4),
		errs:     make(chan error, 1),
	}, nil
}

func (s *FileSource) ID() string   { return s.id }
func (s *FileSource) Name() string { return filepath.Base(s.path) }

// Info returns the decoded stream info.
func (s *FileSource) Info() Info { return s.info }

// Samples returns the full decoded sample slice for batch extraction.
func (s *FileSource) Samples() []float64 { return s.samples }

func (s *FileSource) SampleRate() int { return s.info.SampleRate }

func (s *FileSource) Frames() <-chan Frame { return s.frames }
func (s *FileSource) Errs() <-chan error   { return s.errs }

func (s *FileSource) IsActive() bool { return s.active.Load() }

// Start begins emitting frames until the file is exhausted or the context is
// cancelled. The frames channel is closed when the stream ends.
func (s *FileSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active.Load() {
		return errors.Newf("file source already started").
			Component("audio").
			Category(errors.CategoryState).
			Build()
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.active.Store(true)

	s.wg.Add(1)
	go s.emitLoop(ctx)

	return nil
}

// Stop halts frame production and waits for the emit goroutine to exit.
func (s *FileSource) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	s.wg.Wait()
	return nil
}

func (s *FileSource) emitLoop(ctx context.Context) {
	defer s.wg.Done()
	defer s.active.Store(false)
	defer close(s.frames)

	hopDuration := time.Duration(float64(s.hopSize) / float64(s.info.SampleRate) * float64(time.Second))

	var ticker *time.Ticker
	if s.realtime {
		ticker = time.NewTicker(hopDuration)
		defer ticker.Stop()
	}

	var seq uint64
	for offset := 0; offset+s.hopSize <= len(s.samples); offset += s.hopSize {
		frame := Frame{
			Samples:    s.samples[offset : offset+s.hopSize],
			SampleRate: s.info.SampleRate,
			Channels:   1,
			Timestamp:  time.Duration(seq) * hopDuration,
			Seq:        seq,
		}
		seq++

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}

		select {
		case s.frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}
