// Package particles implements a bounded particle engine with preallocated
// storage and a uniform spatial index for density queries.
package particles

import (
	"math"
)

// Particle is one pooled particle. Slots are reused, so a Handle is the only
// safe way to refer to a particle across frames.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Size   float64
	Age    float64 // seconds alive
	TTL    float64 // seconds to live
	Hue    float64 // 0..360
	Alpha  float64 // 0..1

	alive      bool
	generation uint32
}

// RemainingLife returns the seconds this particle has left.
func (p *Particle) RemainingLife() float64 {
	return p.TTL - p.Age
}

// Handle identifies a particle across frames. A stale handle, one whose slot
// was recycled, resolves to nil rather than someone else's particle.
type Handle struct {
	slot       int
	generation uint32
}

// Pool is a fixed-capacity particle store. No allocation happens after
// construction; spawning at capacity evicts the particle closest to natural
// expiry.
type Pool struct {
	slots    []Particle
	free     []int // stack of free slot indices
	liveSize int

	evicted uint64
	onEvict func(p *Particle)
}

// NewPool creates a pool with the given capacity. Capacities below one are
// clamped to one. onEvict, if non-nil, is called for each forced eviction.
func NewPool(capacity int, onEvict func(p *Particle)) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool{
		slots:   make([]Particle, capacity),
		free:    make([]int, 0, capacity),
		onEvict: onEvict,
	}
	for i := capacity - 1; i >= 0; i-- {
		p.free = append(p.free, i)
	}
	return p
}

// Capacity returns the fixed slot count.
func (p *Pool) Capacity() int { return len(p.slots) }

// Live returns the number of live particles.
func (p *Pool) Live() int { return p.liveSize }

// Evicted returns the number of particles force-expired to make room.
func (p *Pool) Evicted() uint64 { return p.evicted }

// Spawn claims a slot, initializes it via init and returns its handle. At
// capacity the particle with the least remaining life is evicted first, so a
// burst can never grow the pool.
func (p *Pool) Spawn(init func(particle *Particle)) Handle {
	slot := -1
	if n := len(p.free); n > 0 {
		slot = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		slot = p.evictClosestToExpiry()
	}

	particle := &p.slots[slot]
	gen := particle.generation + 1
	*particle = Particle{alive: true, generation: gen}
	if init != nil {
		init(particle)
	}
	particle.alive = true
	particle.generation = gen

	p.liveSize++
	return Handle{slot: slot, generation: gen}
}

// Get resolves a handle to its particle, or nil when the particle has died or
// its slot was recycled.
func (p *Pool) Get(h Handle) *Particle {
	if h.slot < 0 || h.slot >= len(p.slots) {
		return nil
	}
	particle := &p.slots[h.slot]
	if !particle.alive || particle.generation != h.generation {
		return nil
	}
	return particle
}

// Release returns a particle's slot to the free list. Releasing a stale
// handle is a no-op.
func (p *Pool) Release(h Handle) {
	if p.Get(h) == nil {
		return
	}
	p.releaseSlot(h.slot)
}

func (p *Pool) releaseSlot(slot int) {
	p.slots[slot].alive = false
	p.free = append(p.free, slot)
	p.liveSize--
}

// ForEach calls fn with each live particle's slot and data. Releasing the
// current particle from within fn is allowed.
func (p *Pool) ForEach(fn func(slot int, particle *Particle)) {
	for i := range p.slots {
		if p.slots[i].alive {
			fn(i, &p.slots[i])
		}
	}
}

// ReleaseIf releases every live particle for which fn returns true and
// returns the number released.
func (p *Pool) ReleaseIf(fn func(particle *Particle) bool) int {
	released := 0
	for i := range p.slots {
		if p.slots[i].alive && fn(&p.slots[i]) {
			p.releaseSlot(i)
			released++
		}
	}
	return released
}

// evictClosestToExpiry force-expires the live particle with the smallest
// remaining life and returns its freed slot.
func (p *Pool) evictClosestToExpiry() int {
	victim := -1
	best := math.Inf(1)
	for i := range p.slots {
		if !p.slots[i].alive {
			continue
		}
		if remaining := p.slots[i].RemainingLife(); remaining < best {
			best = remaining
			victim = i
		}
	}

	p.evicted++
	if p.onEvict != nil {
		p.onEvict(&p.slots[victim])
	}
	p.slots[victim].alive = false
	p.liveSize--
	return victim
}
