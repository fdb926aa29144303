package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/musicv-go/internal/audio"
	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/featureio"
	"github.com/tphakala/musicv-go/internal/features"
)

// FileAnalysis runs the batch mode: decode the whole file, extract every
// window up front, then play the sequence through the render loop at the
// hop rate. A .json input is treated as a previously exported feature
// container and skips decoding entirely.
func FileAnalysis(ctx context.Context, settings *conf.Settings, input string) error {
	s, err := newSession(ctx, settings, features.Batch)
	if err != nil {
		return err
	}
	defer s.close()

	var seq *features.Sequence
	if strings.HasSuffix(strings.ToLower(input), ".json") {
		seq, err = featureio.Import(input)
		if err != nil {
			return err
		}
		s.logger.Info("loaded feature container",
			"path", input,
			"vectors", len(seq.Vectors),
		)
	} else {
		samples, info, err := audio.ReadFile(input)
		if err != nil {
			return err
		}

		if info.SampleRate != settings.Audio.SampleRate {
			s.logger.Warn("file sample rate differs from configured rate, frequency features will be scaled",
				"file_rate", info.SampleRate,
				"configured_rate", settings.Audio.SampleRate,
			)
		}

		s.bus.Emit(events.New(events.AudioLoaded, map[string]any{ //nolint:errcheck
			"path":        input,
			"sample_rate": info.SampleRate,
			"duration":    info.TotalDuration().Seconds(),
		}))

		start := time.Now()
		seq = s.pipeline.ExtractAll(samples)
		s.logger.Info("extracted features",
			"path", input,
			"vectors", len(seq.Vectors),
			"failures", s.pipeline.Failures(),
			"elapsed", time.Since(start),
		)
	}

	if settings.Export.Enabled {
		if err := featureio.Export(settings.Export.Path, seq); err != nil {
			return err
		}
		s.logger.Info("exported feature container", "path", settings.Export.Path)
	}

	scheduler := s.newScheduler()
	if err := scheduler.Start(); err != nil {
		return err
	}

	s.bus.Emit(events.New(events.AudioPlaying, map[string]any{"path": input})) //nolint:errcheck

	// Feed vectors at the hop rate so the show runs at play speed. Batch
	// mode blocks on a full buffer, which is the backpressure we want here.
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		defer s.buffer.Close()

		ticker := time.NewTicker(seq.HopDuration())
		defer ticker.Stop()

		for _, v := range seq.Vectors {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !s.buffer.Push(v) {
				return
			}
		}
	}()

	scheduler.Wait()
	<-feedDone

	s.bus.Emit(events.New(events.AudioStopped, map[string]any{"path": input})) //nolint:errcheck

	stats := scheduler.Stats()
	s.logger.Info("playback finished",
		"frames", stats.FramesRendered,
		"starved", stats.FramesStarved,
		"avg_frame_time", stats.AvgFrameTime,
	)
	return nil
}
