package features

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/musicv-go/internal/audio"
	"github.com/tphakala/musicv-go/internal/events"
)

// fakeSource replays a fixed sample slice in fixed-size frames.
type fakeSource struct {
	samples    []float64
	frameSize  int
	sampleRate int

	frames chan audio.Frame
	errs   chan error
}

func newFakeSource(samples []float64, frameSize, sampleRate int) *fakeSource {
	return &fakeSource{
		samples:    samples,
		frameSize:  frameSize,
		sampleRate: sampleRate,
		frames:     make(chan audio.Frame, 4),
		errs:       make(chan error, 1),
	}
}

func (f *fakeSource) ID() string   { return "fake" }
func (f *fakeSource) Name() string { return "fake source" }
func (f *fakeSource) Start(ctx context.Context) error {
	go func() {
		defer close(f.frames)
		var seq uint64
		for offset := 0; offset < len(f.samples); offset += f.frameSize {
			end := offset + f.frameSize
			if end > len(f.samples) {
				end = len(f.samples)
			}
			frame := audio.Frame{
				Samples:    f.samples[offset:end],
				SampleRate: f.sampleRate,
				Channels:   1,
				Timestamp:  time.Duration(offset) * time.Second / time.Duration(f.sampleRate),
				Seq:        seq,
			}
			seq++
			select {
			case f.frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
func (f *fakeSource) Stop() error                { return nil }
func (f *fakeSource) Frames() <-chan audio.Frame { return f.frames }
func (f *fakeSource) Errs() <-chan error         { return f.errs }
func (f *fakeSource) IsActive() bool             { return true }
func (f *fakeSource) SampleRate() int            { return f.sampleRate }

func TestStreamerExtractsEveryHop(t *testing.T) {
	p := newTestPipeline(nil)
	require.NoError(t, p.Register(constant("alpha", "a.x", 1)))

	buf := NewStreamBuffer(64, Streaming)
	streamer := NewStreamer(p, buf, nil)

	// 1024 window, 256 hop over 4096 samples: 13 full windows.
	source := newFakeSource(make([]float64, 4096), 300, 16000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, source.Start(ctx))
	streamer.Start(ctx, source)

	var vectors []*Vector
	for {
		v, ok := buf.Pull(500 * time.Millisecond)
		if !ok {
			break
		}
		vectors = append(vectors, v)
	}
	streamer.Stop()

	require.NotEmpty(t, vectors)
	last := vectors[len(vectors)-1]
	assert.Equal(t, uint64(12), last.FrameSeq)
	assert.Equal(t, 1.0, last.Scalar("a.x", -1))
	assert.True(t, buf.Closed())
}

func TestStreamerEmitsBeatEvents(t *testing.T) {
	bus := events.NewBus(0)
	var beats int
	bus.Subscribe(events.BeatDetected, func(events.Event) { beats++ })
	var updates int
	bus.Subscribe(events.FeaturesUpdated, func(events.Event) { updates++ })

	p := newTestPipeline(bus)
	require.NoError(t, p.Register(NewRhythmExtractor(RhythmConfig{HopSize: 256})))

	buf := NewStreamBuffer(64, Streaming)
	streamer := NewStreamer(p, buf, bus)

	// Silence then a loud burst: the burst edge is one beat.
	samples := make([]float64, 4096)
	for i := 2048; i < len(samples); i++ {
		samples[i] = 0.8 * math.Sin(2*math.Pi*200*float64(i)/16000)
	}
	source := newFakeSource(samples, 256, 16000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, source.Start(ctx))
	streamer.Start(ctx, source)

	// Drain until the source runs dry and the streamer closes the buffer.
	for {
		if _, ok := buf.Pull(500 * time.Millisecond); !ok {
			break
		}
	}
	streamer.Stop()

	assert.GreaterOrEqual(t, beats, 1)
	assert.Greater(t, updates, 0)
}

func TestStreamerStopIsIdempotentAndClosesBuffer(t *testing.T) {
	p := newTestPipeline(nil)
	buf := NewStreamBuffer(8, Streaming)
	streamer := NewStreamer(p, buf, nil)

	source := newFakeSource(make([]float64, 512), 256, 16000)
	ctx := context.Background()

	require.NoError(t, source.Start(ctx))
	streamer.Start(ctx, source)
	streamer.Stop()
	streamer.Stop()

	assert.True(t, buf.Closed())
}
