package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/musicv-go/internal/errors"
)

func TestEmitDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus(0)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(BeatDetected, func(Event) {
			order = append(order, i)
		})
	}

	require.NoError(t, bus.Emit(New(BeatDetected, nil)))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestEmitOnlyReachesMatchingType(t *testing.T) {
	bus := NewBus(0)

	var beats, frames int
	bus.Subscribe(BeatDetected, func(Event) { beats++ })
	bus.Subscribe(FrameRendered, func(Event) { frames++ })

	require.NoError(t, bus.Emit(New(BeatDetected, nil)))
	require.NoError(t, bus.Emit(New(BeatDetected, nil)))

	assert.Equal(t, 2, beats)
	assert.Equal(t, 0, frames)
}

func TestSubscribeAllRunsAfterTypedListeners(t *testing.T) {
	bus := NewBus(0)

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "wildcard") })
	bus.Subscribe(AudioLoaded, func(Event) { order = append(order, "typed") })

	require.NoError(t, bus.Emit(New(AudioLoaded, nil)))
	assert.Equal(t, []string{"typed", "wildcard"}, order)
}

func TestCascadeBoundAbortsRunawayEmission(t *testing.T) {
	bus := NewBus(4)

	var depth int
	var lastErr error
	bus.Subscribe(FeaturesUpdated, func(Event) {
		depth++
		lastErr = bus.Emit(New(FeaturesUpdated, nil))
	})

	require.NoError(t, bus.Emit(New(FeaturesUpdated, nil)))

	assert.Equal(t, 4, depth)
	require.Error(t, lastErr)
	assert.True(t, errors.HasCategory(lastErr, errors.CategoryEventBus))
	assert.Equal(t, uint64(1), bus.Stats().CascadesAborted)
}

func TestCascadeWithinBoundSucceeds(t *testing.T) {
	bus := NewBus(8)

	var chained bool
	bus.Subscribe(BeatDetected, func(Event) {
		assert.NoError(t, bus.Emit(New(FrameRendered, nil)))
	})
	bus.Subscribe(FrameRendered, func(Event) { chained = true })

	require.NoError(t, bus.Emit(New(BeatDetected, nil)))
	assert.True(t, chained)
}

func TestListenerPanicDoesNotStopDispatch(t *testing.T) {
	bus := NewBus(0)

	var survived bool
	bus.Subscribe(ErrorOccurred, func(Event) { panic("listener bug") })
	bus.Subscribe(ErrorOccurred, func(Event) { survived = true })

	require.NoError(t, bus.Emit(New(ErrorOccurred, nil)))

	assert.True(t, survived)
	assert.Equal(t, uint64(1), bus.Stats().ListenerPanics)
}

func TestStatsCountEmissionsAndDeliveries(t *testing.T) {
	bus := NewBus(0)

	bus.Subscribe(AudioPlaying, func(Event) {})
	bus.Subscribe(AudioPlaying, func(Event) {})

	require.NoError(t, bus.Emit(New(AudioPlaying, nil)))
	require.NoError(t, bus.Emit(New(AudioStopped, nil)))

	stats := bus.Stats()
	assert.Equal(t, uint64(2), stats.EventsEmitted)
	assert.Equal(t, uint64(2), stats.EventsDelivered)
}
