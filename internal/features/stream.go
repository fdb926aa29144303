package features

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tphakala/musicv-go/internal/audio"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/logging"
)

// Streamer is the extraction context: a dedicated goroutine that accumulates
// source frames into a sliding window, runs the pipeline once per hop and
// pushes the merged vectors into the stream buffer. All extractor state lives
// on this goroutine, so extractors need no locking of their own.
type Streamer struct {
	pipeline *Pipeline
	buffer   *StreamBuffer
	bus      *events.Bus
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStreamer creates a streamer feeding the given buffer from the pipeline.
func NewStreamer(pipeline *Pipeline, buffer *StreamBuffer, bus *events.Bus) *Streamer {
	logger := logging.ForService("features")
	if logger == nil {
		logger = slog.Default().With("service", "features")
	}

	return &Streamer{
		pipeline: pipeline,
		buffer:   buffer,
		bus:      bus,
		logger:   logger,
	}
}

// Start launches the extraction goroutine consuming frames from the source.
// The goroutine exits when the source's frame channel closes or the context
// is cancelled, closing the buffer on the way out.
func (s *Streamer) Start(ctx context.Context, source audio.Source) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run(ctx, source)
}

// Stop cancels the extraction goroutine and waits for it to drain.
func (s *Streamer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Streamer) run(ctx context.Context, source audio.Source) {
	defer s.wg.Done()
	defer s.buffer.Close()

	windowSize := s.pipeline.WindowSize()
	hopSize := s.pipeline.HopSize()

	// Sliding window over incoming samples. Frames may be smaller or larger
	// than one hop, so accumulate and slide independently of frame sizing.
	window := make([]float64, 0, windowSize+hopSize)
	var seq uint64
	var lastTimestamp time.Duration

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("extraction stopped", "vectors", seq)
			return

		case err, ok := <-source.Errs():
			if !ok {
				continue
			}
			s.logger.Error("audio source error", "source", source.Name(), "error", err)

		case frame, ok := <-source.Frames():
			if !ok {
				s.logger.Debug("audio source drained", "vectors", seq)
				return
			}

			window = append(window, frame.Samples...)
			lastTimestamp = frame.Timestamp

			for len(window) >= windowSize {
				vector := s.pipeline.Extract(window[:windowSize], lastTimestamp, seq)
				seq++

				if !s.buffer.Push(vector) {
					return
				}
				s.publish(vector)

				window = window[:copy(window, window[hopSize:])]
			}
		}
	}
}

// publish mirrors the freshest vector onto the event bus so listeners outside
// the render loop (notifications, telemetry) see extraction progress.
func (s *Streamer) publish(v *Vector) {
	if s.bus == nil {
		return
	}

	s.bus.Emit(events.New(events.FeaturesUpdated, map[string]any{ //nolint:errcheck
		"frame_seq": v.FrameSeq,
		"timestamp": v.Timestamp,
	}))

	if v.Scalar("rhythm.is_beat", 0) > 0.5 {
		s.bus.Emit(events.New(events.BeatDetected, map[string]any{ //nolint:errcheck
			"frame_seq": v.FrameSeq,
			"timestamp": v.Timestamp,
			"strength":  v.Scalar("rhythm.beat_strength", 0),
			"bpm":       v.Scalar("rhythm.bpm", 0),
		}))
	}
}
