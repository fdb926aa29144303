package particles

import (
	"math"
	"math/rand"

	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/features"
)

// EmissionPattern selects how continuous emission places new particles.
type EmissionPattern int

const (
	// Radial emits outward from the center in random directions.
	Radial EmissionPattern = iota

	// Spiral emits along a rotating arm that advances each spawn.
	Spiral

	// Wave emits along a horizontal sine band sweeping the area.
	Wave
)

// Engine owns a particle pool and drives it from feature vectors. Emission
// rate and particle energy follow loudness, hue follows the spectral
// centroid, and detected beats trigger a burst. Update cost is linear in the
// pool capacity regardless of emission pressure.
type Engine struct {
	pool *Pool
	grid *Grid
	bus  *events.Bus
	rng  *rand.Rand

	width, height float64
	emitRate      float64 // particles per second at full loudness
	sizeMin       float64
	sizeMax       float64
	speedMin      float64
	speedMax      float64

	pattern      EmissionPattern
	emitScale    float64 // style preset multiplier on emitRate
	beatResponse float64 // style preset multiplier on burst size
	spiralAngle  float64
	wavePhase    float64
	emitDebt     float64 // fractional spawns carried between updates
}

// EngineConfig holds particle engine tuning.
type EngineConfig struct {
	Width, Height float64
	Settings      conf.ParticleSettings
	Pattern       EmissionPattern
	Bus           *events.Bus
	Seed          int64 // 0 means unseeded deterministic default
}

// NewEngine creates an engine with a preallocated pool sized from settings.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		bus:          cfg.Bus,
		rng:          rand.New(rand.NewSource(cfg.Seed + 1)),
		width:        cfg.Width,
		height:       cfg.Height,
		emitRate:     cfg.Settings.EmitRate,
		sizeMin:      cfg.Settings.SizeMin,
		sizeMax:      cfg.Settings.SizeMax,
		speedMin:     cfg.Settings.SpeedMin,
		speedMax:     cfg.Settings.SpeedMax,
		pattern:      cfg.Pattern,
		emitScale:    1,
		beatResponse: 1,
	}
	e.pool = NewPool(cfg.Settings.PoolSize, e.onEvict)
	e.grid = NewGrid(cfg.Width, cfg.Height, cfg.Settings.GridCellSize)
	return e
}

// Pool exposes the underlying pool for inspection.
func (e *Engine) Pool() *Pool { return e.pool }

// Grid exposes the spatial index as of the last Update.
func (e *Engine) Grid() *Grid { return e.grid }

// SetPattern switches the continuous emission pattern.
func (e *Engine) SetPattern(pattern EmissionPattern) { e.pattern = pattern }

// SetEmitScale scales the configured emission rate, for style presets.
// Non-positive values reset to 1.
func (e *Engine) SetEmitScale(scale float64) {
	if scale <= 0 {
		scale = 1
	}
	e.emitScale = scale
}

// SetBeatResponse scales beat burst sizing, for style presets. Non-positive
// values reset to 1.
func (e *Engine) SetBeatResponse(response float64) {
	if response <= 0 {
		response = 1
	}
	e.beatResponse = response
}

// Update advances the simulation by dt seconds under the given features. A
// nil vector freezes emission but still ages and moves live particles.
func (e *Engine) Update(dt float64, v *features.Vector) {
	if dt <= 0 {
		return
	}

	loudness := v.Scalar("temporal.rms", 0)
	centroid := v.Scalar("timbre.centroid", 0)

	// Age, move and recycle in one linear pass.
	e.pool.ReleaseIf(func(p *Particle) bool {
		p.Age += dt
		if p.Age >= p.TTL {
			return true
		}
		p.X += p.VX * dt
		p.Y += p.VY * dt
		p.Alpha = 1 - p.Age/p.TTL
		return false
	})

	if v != nil {
		e.emit(dt, loudness, centroid)
		if v.Scalar("rhythm.is_beat", 0) > 0.5 {
			e.burst(v.Scalar("rhythm.beat_strength", 0), centroid)
		}
	}

	e.grid.Reset()
	e.pool.ForEach(func(slot int, p *Particle) {
		e.grid.Insert(slot, p.X, p.Y)
	})
}

// emit spawns the continuous stream, scaling the rate by loudness and
// carrying fractional spawns across updates so low rates still emit.
func (e *Engine) emit(dt, loudness, centroid float64) {
	e.emitDebt += e.emitRate * e.emitScale * loudness * dt
	count := int(e.emitDebt)
	if count == 0 {
		return
	}
	e.emitDebt -= float64(count)

	hue := centroidHue(centroid)
	for i := 0; i < count; i++ {
		switch e.pattern {
		case Spiral:
			e.spawnSpiral(hue, loudness)
		case Wave:
			e.spawnWave(hue, loudness)
		default:
			e.spawnRadial(hue, loudness)
		}
	}
}

// burst spawns a ring of particles on a detected beat, sized by strength.
func (e *Engine) burst(strength, centroid float64) {
	count := 8 + int(strength*24*e.beatResponse)
	hue := centroidHue(centroid)
	cx, cy := e.width/2, e.height/2

	for i := 0; i < count; i++ {
		angle := 2 * math.Pi * float64(i) / float64(count)
		speed := e.speedMax * (0.8 + 0.4*strength)
		e.pool.Spawn(func(p *Particle) {
			p.X, p.Y = cx, cy
			p.VX = math.Cos(angle) * speed
			p.VY = math.Sin(angle) * speed
			p.Size = e.sizeMax
			p.TTL = 0.6 + 0.6*strength
			p.Hue = hue
			p.Alpha = 1
		})
	}
}

func (e *Engine) spawnRadial(hue, loudness float64) {
	angle := e.rng.Float64() * 2 * math.Pi
	e.spawnAt(e.width/2, e.height/2, angle, hue, loudness)
}

func (e *Engine) spawnSpiral(hue, loudness float64) {
	e.spiralAngle += 0.35
	e.spawnAt(e.width/2, e.height/2, e.spiralAngle, hue, loudness)
}

func (e *Engine) spawnWave(hue, loudness float64) {
	e.wavePhase += 0.15
	x := e.rng.Float64() * e.width
	y := e.height/2 + math.Sin(x/e.width*4*math.Pi+e.wavePhase)*e.height/6
	// Wave particles drift upward.
	e.spawnAt(x, y, -math.Pi/2+e.rng.Float64()*0.6-0.3, hue, loudness)
}

func (e *Engine) spawnAt(x, y, angle, hue, loudness float64) {
	speed := e.speedMin + e.rng.Float64()*(e.speedMax-e.speedMin)*(0.5+loudness)
	e.pool.Spawn(func(p *Particle) {
		p.X, p.Y = x, y
		p.VX = math.Cos(angle) * speed
		p.VY = math.Sin(angle) * speed
		p.Size = e.sizeMin + e.rng.Float64()*(e.sizeMax-e.sizeMin)
		p.TTL = 1 + e.rng.Float64()*2
		p.Hue = hue
		p.Alpha = 1
	})
}

// onEvict publishes forced expiries so operators can see sustained
// over-capacity emission.
func (e *Engine) onEvict(p *Particle) {
	if e.bus == nil {
		return
	}
	e.bus.Emit(events.New(events.ParticleEvicted, map[string]any{ //nolint:errcheck
		"age":       p.Age,
		"ttl":       p.TTL,
		"remaining": p.RemainingLife(),
	}))
}

// centroidHue maps the spectral centroid onto a hue sweep from warm reds for
// dark timbres to violets for bright ones.
func centroidHue(centroid float64) float64 {
	const brightest = 8000.0
	n := centroid / brightest
	if n > 1 {
		n = 1
	}
	if n < 0 {
		n = 0
	}
	return n * 300
}
