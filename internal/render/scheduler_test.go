package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/features"
)

func newTestScheduler(t *testing.T, r *Registry, bus *events.Bus) (*Scheduler, *features.StreamBuffer) {
	t.Helper()
	buf := features.NewStreamBuffer(8, features.Streaming)
	s := NewScheduler(SchedulerConfig{
		Registry:  r,
		Buffer:    buf,
		Surface:   &CountingSurface{W: 640, H: 480},
		Bus:       bus,
		TargetFPS: 120,
	})
	return s, buf
}

func TestSchedulerLifecycle(t *testing.T) {
	r := testRegistry()
	s, buf := newTestScheduler(t, r, nil)
	defer buf.Close()

	assert.Equal(t, Idle, s.State())

	require.NoError(t, s.Start())
	assert.Equal(t, Running, s.State())

	// A second start while running is a state error.
	err := s.Start()
	require.Error(t, err)

	s.Stop()
	assert.Equal(t, Stopped, s.State())

	// Stop is idempotent, and a stopped scheduler stays stopped.
	s.Stop()
	assert.Equal(t, Stopped, s.State())
	assert.Error(t, s.Start())
}

func TestSchedulerRendersActiveComponents(t *testing.T) {
	r := testRegistry()
	c := &stubComponent{name: "alpha"}
	require.NoError(t, r.Register(c))
	require.NoError(t, r.Activate("alpha"))

	s, buf := newTestScheduler(t, r, nil)
	defer buf.Close()

	require.NoError(t, s.Start())
	buf.Push(&features.Vector{FrameSeq: 1})
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	assert.Greater(t, c.updates, 0)
	assert.Equal(t, c.updates, c.renders)
	assert.Greater(t, s.Stats().FramesRendered, uint64(0))
}

func TestSchedulerReusesLastVectorWhenStarved(t *testing.T) {
	r := testRegistry()

	var seen []uint64
	c := &recordingComponent{name: "alpha", onUpdate: func(v *features.Vector) {
		if v != nil {
			seen = append(seen, v.FrameSeq)
		}
	}}
	require.NoError(t, r.Register(c))
	require.NoError(t, r.Activate("alpha"))

	s, buf := newTestScheduler(t, r, nil)
	defer buf.Close()

	require.NoError(t, s.Start())
	buf.Push(&features.Vector{FrameSeq: 9})
	// No further pushes: every following frame reuses vector 9.
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	require.NotEmpty(t, seen)
	for _, seq := range seen {
		assert.Equal(t, uint64(9), seq)
	}
	assert.Greater(t, s.Stats().FramesStarved, uint64(0))
}

func TestSchedulerQuarantinesFailingComponent(t *testing.T) {
	bus := events.NewBus(0)
	errCh := make(chan events.Event, 1)
	bus.Subscribe(events.ErrorOccurred, func(e events.Event) {
		select {
		case errCh <- e:
		default:
		}
	})

	r := testRegistry()
	faulty := &stubComponent{name: "faulty", updateErr: assert.AnError}
	healthy := &stubComponent{name: "healthy"}
	require.NoError(t, r.Register(faulty))
	require.NoError(t, r.Register(healthy))
	require.NoError(t, r.Activate("faulty"))
	require.NoError(t, r.Activate("healthy"))

	s, buf := newTestScheduler(t, r, bus)
	defer buf.Close()

	require.NoError(t, s.Start())
	buf.Push(&features.Vector{FrameSeq: 1})
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	assert.False(t, r.IsActive("faulty"))
	assert.True(t, r.IsActive("healthy"))
	assert.Greater(t, healthy.renders, 0)

	select {
	case e := <-errCh:
		assert.Equal(t, "faulty", e.Payload["component"])
	default:
		t.Fatal("no error event published")
	}
}

func TestSchedulerContainsPanickingComponent(t *testing.T) {
	r := testRegistry()
	panicky := &stubComponent{name: "panicky", panics: true}
	require.NoError(t, r.Register(panicky))
	require.NoError(t, r.Activate("panicky"))

	s, buf := newTestScheduler(t, r, nil)
	defer buf.Close()

	require.NoError(t, s.Start())
	buf.Push(&features.Vector{FrameSeq: 1})
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	assert.False(t, r.IsActive("panicky"))
	assert.Greater(t, s.Stats().FramesRendered, uint64(0))
}

func TestSchedulerEmitsFrameRenderedWithRunID(t *testing.T) {
	bus := events.NewBus(0)
	frameCh := make(chan events.Event, 1)
	bus.Subscribe(events.FrameRendered, func(e events.Event) {
		select {
		case frameCh <- e:
		default:
		}
	})

	r := testRegistry()
	s, buf := newTestScheduler(t, r, bus)
	defer buf.Close()

	require.NoError(t, s.Start())
	buf.Push(&features.Vector{FrameSeq: 1})
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	select {
	case e := <-frameCh:
		assert.Equal(t, s.RunID(), e.Payload["run_id"])
	default:
		t.Fatal("no frame event published")
	}
}

func TestSchedulerExitsWhenBufferCloses(t *testing.T) {
	r := testRegistry()
	s, buf := newTestScheduler(t, r, nil)

	require.NoError(t, s.Start())
	buf.Push(&features.Vector{FrameSeq: 1})
	buf.Close()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not exit after buffer close")
	}
	assert.Equal(t, Stopped, s.State())
}

// recordingComponent forwards Update calls to a callback.
type recordingComponent struct {
	name     string
	onUpdate func(v *features.Vector)
}

func (c *recordingComponent) Name() string                      { return c.name }
func (c *recordingComponent) Init(Surface, *conf.Settings) error { return nil }
func (c *recordingComponent) Update(v *features.Vector, dt float64) error {
	c.onUpdate(v)
	return nil
}
func (c *recordingComponent) Render(Surface) error { return nil }
