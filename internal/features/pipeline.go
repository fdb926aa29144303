package features

import (
	"log/slog"
	"time"

	"github.com/tphakala/musicv-go/internal/errors"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/logging"
)

// PipelineConfig holds the window sizing the pipeline runs with and the
// collaborators it reports to.
type PipelineConfig struct {
	WindowSize int
	HopSize    int
	SampleRate int
	Bus        *events.Bus // optional; extractor failures are published here
}

// Pipeline runs registered extractors over an audio window and merges their
// outputs into one feature vector. An individual extractor failure is
// isolated: its keys are absent for that cycle, an ExtractorFailure event is
// emitted, and remaining extractors still run.
type Pipeline struct {
	windowSize int
	hopSize    int
	sampleRate int

	extractors []Extractor // registration order
	names      map[string]struct{}

	bus    *events.Bus
	logger *slog.Logger

	lastTimestamp time.Duration
	failures      uint64
}

// NewPipeline creates an empty pipeline with the given window sizing.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := logging.ForService("features")
	if logger == nil {
		logger = slog.Default().With("service", "features")
	}

	return &Pipeline{
		windowSize: cfg.WindowSize,
		hopSize:    cfg.HopSize,
		sampleRate: cfg.SampleRate,
		names:      make(map[string]struct{}),
		bus:        cfg.Bus,
		logger:     logger,
	}
}

// WindowSize returns the configured analysis window size.
func (p *Pipeline) WindowSize() int { return p.windowSize }

// HopSize returns the configured hop size.
func (p *Pipeline) HopSize() int { return p.hopSize }

// SampleRate returns the configured sample rate.
func (p *Pipeline) SampleRate() int { return p.sampleRate }

// Register adds an extractor. Registration fails on a duplicate name or when
// the extractor's declared window/hop requirement disagrees with the
// pipeline's configured sizing; the pipeline does not resample on the
// extractor's behalf.
func (p *Pipeline) Register(extractor Extractor) error {
	name := extractor.Name()
	if name == "" {
		return errors.Newf("extractor name must not be empty").
			Component("features").
			Category(errors.CategoryValidation).
			Build()
	}

	if _, exists := p.names[name]; exists {
		return errors.Newf("extractor %q already registered", name).
			Component("features").
			Category(errors.CategoryConflict).
			Build()
	}

	req := extractor.Requirements()
	if req.WindowSize != 0 && req.WindowSize != p.windowSize {
		return errors.Newf("extractor %q requires window size %d, pipeline uses %d",
			name, req.WindowSize, p.windowSize).
			Component("features").
			Category(errors.CategoryRequirement).
			Build()
	}
	if req.HopSize != 0 && req.HopSize != p.hopSize {
		return errors.Newf("extractor %q requires hop size %d, pipeline uses %d",
			name, req.HopSize, p.hopSize).
			Component("features").
			Category(errors.CategoryRequirement).
			Build()
	}

	p.names[name] = struct{}{}
	p.extractors = append(p.extractors, extractor)

	p.logger.Debug("registered extractor",
		"name", name,
		"output_keys", extractor.OutputKeys(),
	)

	return nil
}

// ExtractorNames returns the registered extractor names in registration order.
func (p *Pipeline) ExtractorNames() []string {
	names := make([]string, 0, len(p.extractors))
	for _, e := range p.extractors {
		names = append(names, e.Name())
	}
	return names
}

// Extract runs every registered extractor against the window and merges the
// results. Timestamps of successive outputs are clamped to be monotonically
// non-decreasing.
func (p *Pipeline) Extract(window []float64, timestamp time.Duration, seq uint64) *Vector {
	if timestamp < p.lastTimestamp {
		timestamp = p.lastTimestamp
	}
	p.lastTimestamp = timestamp

	merged := make(map[string]Value)
	for _, extractor := range p.extractors {
		values, err := p.runExtractor(extractor, window)
		if err != nil {
			p.failures++
			p.logger.Warn("extractor failed, keys absent for this cycle",
				"extractor", extractor.Name(),
				"error", err,
			)
			if p.bus != nil {
				p.bus.Emit(events.New(events.ExtractorFailure, map[string]any{ //nolint:errcheck
					"extractor": extractor.Name(),
					"error":     err.Error(),
					"frame_seq": seq,
				}))
			}
			continue
		}

		// Later extractors overwrite colliding keys (last-wins).
		for key, value := range values {
			merged[key] = value
		}
	}

	return &Vector{
		Values:    merged,
		Timestamp: timestamp,
		FrameSeq:  seq,
	}
}

// runExtractor invokes one extractor with panic containment so a faulting
// extractor cannot take down the extraction context.
func (p *Pipeline) runExtractor(extractor Extractor, window []float64) (values map[string]Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			values = nil
			err = errors.Newf("extractor panicked: %v", r).
				Component("features").
				Category(errors.CategoryExtraction).
				Context("extractor", extractor.Name()).
				Build()
		}
	}()

	return extractor.Extract(window, p.sampleRate)
}

// Failures returns the number of isolated extractor failures so far.
func (p *Pipeline) Failures() uint64 { return p.failures }
