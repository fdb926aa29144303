package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/musicv-go/internal/errors"
	"github.com/tphakala/musicv-go/internal/events"
)

type stubExtractor struct {
	name    string
	req     Requirements
	keys    []string
	extract func(samples []float64, sampleRate int) (map[string]Value, error)
}

func (s *stubExtractor) Name() string               { return s.name }
func (s *stubExtractor) Requirements() Requirements { return s.req }
func (s *stubExtractor) OutputKeys() []string       { return s.keys }
func (s *stubExtractor) Extract(samples []float64, sampleRate int) (map[string]Value, error) {
	return s.extract(samples, sampleRate)
}

func constant(name, key string, value float64) *stubExtractor {
	return &stubExtractor{
		name: name,
		keys: []string{key},
		extract: func([]float64, int) (map[string]Value, error) {
			return map[string]Value{key: ScalarValue(value)}, nil
		},
	}
}

func newTestPipeline(bus *events.Bus) *Pipeline {
	return NewPipeline(PipelineConfig{
		WindowSize: 1024,
		HopSize:    256,
		SampleRate: 16000,
		Bus:        bus,
	})
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	p := newTestPipeline(nil)

	require.NoError(t, p.Register(constant("alpha", "a.x", 1)))

	err := p.Register(constant("alpha", "a.y", 2))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConflict))
}

func TestRegisterRejectsWindowMismatch(t *testing.T) {
	p := newTestPipeline(nil)

	err := p.Register(&stubExtractor{
		name: "strict",
		req:  Requirements{WindowSize: 2048},
		extract: func([]float64, int) (map[string]Value, error) {
			return nil, nil
		},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRequirement))
}

func TestRegisterRejectsHopMismatch(t *testing.T) {
	p := newTestPipeline(nil)

	err := p.Register(&stubExtractor{
		name: "strict",
		req:  Requirements{HopSize: 512},
		extract: func([]float64, int) (map[string]Value, error) {
			return nil, nil
		},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRequirement))
}

func TestExtractMergesAllExtractorOutputs(t *testing.T) {
	p := newTestPipeline(nil)
	require.NoError(t, p.Register(constant("alpha", "a.x", 1)))
	require.NoError(t, p.Register(constant("beta", "b.y", 2)))

	v := p.Extract(make([]float64, 1024), 0, 0)

	assert.Equal(t, 1.0, v.Scalar("a.x", -1))
	assert.Equal(t, 2.0, v.Scalar("b.y", -1))
}

func TestExtractFailureIsolatesOtherExtractors(t *testing.T) {
	bus := events.NewBus(0)
	var failures []events.Event
	bus.Subscribe(events.ExtractorFailure, func(e events.Event) {
		failures = append(failures, e)
	})

	p := newTestPipeline(bus)
	require.NoError(t, p.Register(&stubExtractor{
		name: "faulty",
		keys: []string{"f.x"},
		extract: func([]float64, int) (map[string]Value, error) {
			return nil, errors.Newf("synthetic failure").Build()
		},
	}))
	require.NoError(t, p.Register(constant("beta", "b.y", 2)))

	v := p.Extract(make([]float64, 1024), 0, 0)

	assert.False(t, v.Has("f.x"))
	assert.Equal(t, 2.0, v.Scalar("b.y", -1))
	assert.Equal(t, uint64(1), p.Failures())
	require.Len(t, failures, 1)
	assert.Equal(t, "faulty", failures[0].Payload["extractor"])
}

func TestExtractContainsPanickingExtractor(t *testing.T) {
	p := newTestPipeline(nil)
	require.NoError(t, p.Register(&stubExtractor{
		name: "panicky",
		keys: []string{"p.x"},
		extract: func([]float64, int) (map[string]Value, error) {
			panic("extractor bug")
		},
	}))
	require.NoError(t, p.Register(constant("beta", "b.y", 2)))

	v := p.Extract(make([]float64, 1024), 0, 0)

	assert.False(t, v.Has("p.x"))
	assert.Equal(t, 2.0, v.Scalar("b.y", -1))
	assert.Equal(t, uint64(1), p.Failures())
}

func TestExtractClampsTimestampsMonotonic(t *testing.T) {
	p := newTestPipeline(nil)

	v1 := p.Extract(make([]float64, 1024), 100*time.Millisecond, 0)
	v2 := p.Extract(make([]float64, 1024), 50*time.Millisecond, 1)

	assert.Equal(t, 100*time.Millisecond, v1.Timestamp)
	assert.Equal(t, 100*time.Millisecond, v2.Timestamp)
}

func TestExtractAllProducesHopAlignedSequence(t *testing.T) {
	p := newTestPipeline(nil)
	require.NoError(t, p.Register(constant("alpha", "a.x", 1)))

	// 1024 window, 256 hop over 2048 samples: windows at 0,256,...,1024.
	seq := p.ExtractAll(make([]float64, 2048))

	require.Len(t, seq.Vectors, 5)
	assert.Equal(t, uint64(0), seq.Vectors[0].FrameSeq)
	assert.Equal(t, uint64(4), seq.Vectors[4].FrameSeq)

	hop := seq.HopDuration()
	assert.Equal(t, 16*time.Millisecond, hop)
	assert.Equal(t, seq.Vectors[2], seq.At(2*hop))
	assert.Nil(t, seq.At(time.Hour))
}
