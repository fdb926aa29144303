package analysis

import (
	"context"
	"strings"

	"github.com/tphakala/musicv-go/internal/audio"
	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/features"
)

// RealtimeAnalysis runs the streaming mode: capture audio, extract features
// hop by hop on a dedicated goroutine and render the freshest vector each
// frame until the context is cancelled. The audio source is the configured
// capture device, or a file played at real-time pace when the source names
// a .wav or .flac path.
func RealtimeAnalysis(ctx context.Context, settings *conf.Settings) error {
	s, err := newSession(ctx, settings, features.Streaming)
	if err != nil {
		return err
	}
	defer s.close()

	source, err := openSource(settings)
	if err != nil {
		return err
	}

	streamer := features.NewStreamer(s.pipeline, s.buffer, s.bus)
	scheduler := s.newScheduler()

	if err := source.Start(ctx); err != nil {
		return err
	}
	streamer.Start(ctx, source)
	if err := scheduler.Start(); err != nil {
		source.Stop()
		streamer.Stop()
		return err
	}

	s.bus.Emit(events.New(events.AudioPlaying, map[string]any{ //nolint:errcheck
		"source": source.Name(),
	}))
	s.logger.Info("realtime analysis running",
		"source", source.Name(),
		"sample_rate", source.SampleRate(),
	)

	<-ctx.Done()

	// Teardown upstream first so the buffer drains and closes, which lets
	// the render loop finish its last frame before Stop races it.
	source.Stop()
	streamer.Stop()
	scheduler.Stop()

	s.bus.Emit(events.New(events.AudioStopped, map[string]any{ //nolint:errcheck
		"source": source.Name(),
	}))

	stats := scheduler.Stats()
	s.logger.Info("realtime analysis stopped",
		"frames", stats.FramesRendered,
		"starved", stats.FramesStarved,
		"dropped_vectors", s.buffer.Dropped(),
	)
	return nil
}

// openSource picks the audio source from the configured name.
func openSource(settings *conf.Settings) (audio.Source, error) {
	src := strings.ToLower(settings.Audio.Source)
	if strings.HasSuffix(src, ".wav") || strings.HasSuffix(src, ".flac") {
		return audio.NewFileSource(settings.Audio.Source, settings.Audio.HopSize, true)
	}
	return audio.NewCaptureSource(settings.Audio.Source, settings.Audio.SampleRate, settings.Audio.HopSize), nil
}
