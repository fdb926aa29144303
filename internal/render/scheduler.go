package render

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/musicv-go/internal/errors"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/features"
	"github.com/tphakala/musicv-go/internal/logging"
)

// State is the scheduler lifecycle state.
type State int32

const (
	Idle State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// FrameStats is a snapshot of the scheduler's frame accounting.
type FrameStats struct {
	FramesRendered uint64
	FramesStarved  uint64 // frames that reused the previous vector
	AvgFrameTime   time.Duration
}

// Scheduler is the render context: one goroutine pulling the freshest feature
// vector each frame and driving active components at the target frame rate.
// When the buffer yields nothing within the frame budget the previous vector
// is reused, so rendering never blocks on extraction.
type Scheduler struct {
	registry *Registry
	buffer   *features.StreamBuffer
	surface  Surface
	bus      *events.Bus
	logger   *slog.Logger

	runID       string
	targetFrame time.Duration
	background  Color

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
	doneCh chan struct{}

	frames   uint64
	starved  uint64
	emaFrame float64 // seconds, exponential moving average
}

// SchedulerConfig wires the scheduler's collaborators.
type SchedulerConfig struct {
	Registry   *Registry
	Buffer     *features.StreamBuffer
	Surface    Surface
	Bus        *events.Bus
	TargetFPS  int
	Background string // hex color, defaults to black when empty or invalid
}

// NewScheduler creates an idle scheduler. Each scheduler carries a unique run
// ID stamped onto its frame events.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := logging.ForService("render")
	if logger == nil {
		logger = slog.Default().With("service", "render")
	}

	fps := cfg.TargetFPS
	if fps <= 0 {
		fps = 30
	}

	background := Color{A: 255}
	if cfg.Background != "" {
		if c, err := ParseColor(cfg.Background); err == nil {
			background = c
		} else {
			logger.Warn("invalid background color, using black", "value", cfg.Background)
		}
	}

	return &Scheduler{
		registry:    cfg.Registry,
		buffer:      cfg.Buffer,
		surface:     cfg.Surface,
		bus:         cfg.Bus,
		logger:      logger,
		runID:       uuid.New().String(),
		targetFrame: time.Second / time.Duration(fps),
		background:  background,
	}
}

// RunID returns the identifier stamped onto this scheduler's frame events.
func (s *Scheduler) RunID() string { return s.runID }

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of frame accounting.
func (s *Scheduler) Stats() FrameStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FrameStats{
		FramesRendered: s.frames,
		FramesStarved:  s.starved,
		AvgFrameTime:   time.Duration(s.emaFrame * float64(time.Second)),
	}
}

// Start launches the render loop. Starting a scheduler that is not idle is an
// error; a stopped scheduler stays stopped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.state != Idle {
		state := s.state
		s.mu.Unlock()
		return errors.Newf("cannot start render scheduler in state %s", state).
			Component("render").
			Category(errors.CategoryState).
			Build()
	}
	s.state = Running
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run()
	return nil
}

// Stop requests the loop to finish its current frame and waits until it has.
// Stopping an already stopped or idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return
	}
	s.state = Stopping
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
}

// Wait blocks until the loop exits on its own, for batch runs where the
// buffer closing ends the show.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.doneCh
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) run() {
	defer func() {
		s.mu.Lock()
		s.state = Stopped
		s.mu.Unlock()
		close(s.doneCh)
		s.logger.Info("render loop stopped",
			"run_id", s.runID,
			"frames", s.frames,
			"starved", s.starved,
		)
	}()

	s.logger.Info("render loop started",
		"run_id", s.runID,
		"target_fps", int(time.Second/s.targetFrame),
	)

	var last *features.Vector
	prev := time.Now()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		frameStart := time.Now()
		dt := frameStart.Sub(prev).Seconds()
		prev = frameStart

		// Spend at most the remaining frame budget waiting for features.
		budget := s.targetFrame - s.estimatedRenderTime()
		if budget < time.Millisecond {
			budget = time.Millisecond
		}

		vector, fresh := s.buffer.Pull(budget)
		if fresh {
			last = vector
		} else {
			s.mu.Lock()
			s.starved++
			s.mu.Unlock()
			if s.bufferClosed() && last == nil {
				return
			}
			if s.bufferClosed() {
				// Source drained: render one last frame and finish.
				s.renderFrame(last, dt)
				return
			}
		}

		s.renderFrame(last, dt)

		// Adaptive pacing: sleep whatever the frame left unspent.
		if remaining := s.targetFrame - time.Since(frameStart); remaining > 0 {
			select {
			case <-s.stopCh:
				return
			case <-time.After(remaining):
			}
		}
	}
}

// renderFrame drives one Update+Render pass over the active components. A
// component that errors or panics is deactivated and reported; the frame
// continues with the rest.
func (s *Scheduler) renderFrame(vector *features.Vector, dt float64) {
	start := time.Now()

	s.surface.Clear(s.background)

	for _, component := range s.registry.Active() {
		if err := s.runComponent(component, vector, dt); err != nil {
			s.quarantine(component.Name(), err)
		}
	}

	if err := s.surface.Present(); err != nil {
		s.logger.Error("surface present failed", "error", err)
	}

	elapsed := time.Since(start).Seconds()

	s.mu.Lock()
	s.frames++
	frames := s.frames
	if s.emaFrame == 0 {
		s.emaFrame = elapsed
	} else {
		s.emaFrame = 0.9*s.emaFrame + 0.1*elapsed
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Emit(events.New(events.FrameRendered, map[string]any{ //nolint:errcheck
			"run_id":          s.runID,
			"frame":           frames,
			"elapsed_seconds": elapsed,
		}))
	}
}

// runComponent invokes one component with panic containment.
func (s *Scheduler) runComponent(c Component, vector *features.Vector, dt float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("component panicked: %v", r).
				Component("components").
				Category(errors.CategoryComponent).
				Context("component", c.Name()).
				Build()
		}
	}()

	if err := c.Update(vector, dt); err != nil {
		return err
	}
	return c.Render(s.surface)
}

// quarantine deactivates a faulting component so one bad layer cannot wedge
// the whole loop frame after frame.
func (s *Scheduler) quarantine(name string, err error) {
	s.logger.Error("component failed, deactivating", "component", name, "error", err)
	if derr := s.registry.Deactivate(name); derr != nil {
		s.logger.Error("deactivating failed component", "component", name, "error", derr)
	}
	if s.bus != nil {
		s.bus.Emit(events.New(events.ErrorOccurred, map[string]any{ //nolint:errcheck
			"component": name,
			"error":     err.Error(),
		}))
	}
}

func (s *Scheduler) estimatedRenderTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.emaFrame * float64(time.Second))
}

func (s *Scheduler) bufferClosed() bool {
	return s.buffer.Closed()
}
