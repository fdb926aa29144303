package components

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/features"
	"github.com/tphakala/musicv-go/internal/render"
)

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Audio.SampleRate = 16000
	s.Audio.MelBands = 16
	s.Particles = conf.ParticleSettings{
		PoolSize:     64,
		EmitRate:     100,
		SizeMin:      1,
		SizeMax:      4,
		SpeedMin:     10,
		SpeedMax:     50,
		GridCellSize: 32,
	}
	return s
}

func loudVector() *features.Vector {
	return &features.Vector{
		Values: map[string]features.Value{
			"temporal.rms":         features.ScalarValue(0.6),
			"temporal.zcr":         features.ScalarValue(0.1),
			"timbre.centroid":      features.ScalarValue(2000),
			"rhythm.is_beat":       features.ScalarValue(1),
			"rhythm.beat_strength": features.ScalarValue(0.8),
			"frequency.log_mel":    features.VectorValue(make([]float64, 16)),
		},
	}
}

func TestComponentNamesMatchConfigDefaults(t *testing.T) {
	assert.Equal(t, "particles", NewParticleField(nil).Name())
	assert.Equal(t, "spectrum", NewSpectrumBars().Name())
	assert.Equal(t, "waveform", NewWaveform().Name())
	assert.Equal(t, "beatpulse", NewBeatPulse().Name())
}

func TestEachComponentUpdatesAndRenders(t *testing.T) {
	surface := &render.CountingSurface{W: 640, H: 480}
	settings := testSettings()

	all := []render.Component{
		NewParticleField(nil),
		NewSpectrumBars(),
		NewWaveform(),
		NewBeatPulse(),
	}

	for _, c := range all {
		require.NoError(t, c.Init(surface, settings), c.Name())
		require.NoError(t, c.Update(loudVector(), 0.033), c.Name())
		require.NoError(t, c.Render(surface), c.Name())
	}

	assert.Greater(t, surface.Rects, 0)
	assert.Greater(t, surface.Circles, 0)
	assert.Greater(t, surface.Lines, 0)
}

func TestComponentsTolerateNilVector(t *testing.T) {
	surface := &render.CountingSurface{W: 640, H: 480}
	settings := testSettings()

	all := []render.Component{
		NewParticleField(nil),
		NewSpectrumBars(),
		NewWaveform(),
		NewBeatPulse(),
	}

	for _, c := range all {
		require.NoError(t, c.Init(surface, settings), c.Name())
		require.NoError(t, c.Update(nil, 0.033), c.Name())
		require.NoError(t, c.Render(surface), c.Name())
	}
}

func TestParticleFieldAppliesStylePreset(t *testing.T) {
	surface := &render.CountingSurface{W: 640, H: 480}
	bus := events.NewBus(0)

	var updates []events.Event
	bus.Subscribe(events.VisualConfigUpdated, func(e events.Event) {
		updates = append(updates, e)
	})

	c := NewParticleField(bus)
	require.NoError(t, c.Init(surface, testSettings()))

	// Sustained loud, driving, bright material settles into the rock preset.
	for i := 0; i < 20; i++ {
		v := &features.Vector{
			Timestamp: time.Duration(i) * 33 * time.Millisecond,
			Values: map[string]features.Value{
				"temporal.amplitude": features.ScalarValue(0.7),
				"temporal.rms":       features.ScalarValue(0.6),
				"rhythm.bpm":         features.ScalarValue(130),
				"timbre.centroid":    features.ScalarValue(2400),
				"timbre.bandwidth":   features.ScalarValue(2400),
				"frequency.mel":      features.VectorValue([]float64{1, 1, 1, 1, 1, 1, 1, 1, 10, 10}),
			},
		}
		require.NoError(t, c.Update(v, 0.033))
	}

	require.Len(t, updates, 1)
	assert.Equal(t, "rock", updates[0].Payload["style"])
	assert.Equal(t, "particles", updates[0].Payload["component"])
}

func TestBeatPulseRingsExpire(t *testing.T) {
	surface := &render.CountingSurface{W: 640, H: 480}
	c := NewBeatPulse()
	require.NoError(t, c.Init(surface, testSettings()))

	require.NoError(t, c.Update(loudVector(), 0.01))
	require.Len(t, c.rings, 1)

	// Advance past the pulse lifetime without another beat.
	require.NoError(t, c.Update(nil, 1))
	assert.Empty(t, c.rings)
}

func TestSpectrumBarsDecayBetweenFrames(t *testing.T) {
	surface := &render.CountingSurface{W: 640, H: 480}
	c := NewSpectrumBars()
	require.NoError(t, c.Init(surface, testSettings()))

	hot := loudVector()
	mel := make([]float64, 16)
	for i := range mel {
		mel[i] = 2 // loud across all bands
	}
	hot.Values["frequency.log_mel"] = features.VectorValue(mel)

	require.NoError(t, c.Update(hot, 0.033))
	peak := c.levels[0]
	require.Greater(t, peak, 0.0)

	require.NoError(t, c.Update(nil, 0.033))
	assert.Less(t, c.levels[0], peak)
}
