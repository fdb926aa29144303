package particles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAndGetRoundTrip(t *testing.T) {
	pool := NewPool(4, nil)

	h := pool.Spawn(func(p *Particle) {
		p.X, p.Y = 10, 20
		p.TTL = 1
	})

	p := pool.Get(h)
	require.NotNil(t, p)
	assert.Equal(t, 10.0, p.X)
	assert.Equal(t, 20.0, p.Y)
	assert.Equal(t, 1, pool.Live())
}

func TestReleaseReturnsSlotToFreeList(t *testing.T) {
	pool := NewPool(2, nil)

	h := pool.Spawn(func(p *Particle) { p.TTL = 1 })
	pool.Release(h)

	assert.Equal(t, 0, pool.Live())
	assert.Nil(t, pool.Get(h))

	// Releasing again is a no-op.
	pool.Release(h)
	assert.Equal(t, 0, pool.Live())
}

func TestStaleHandleDoesNotResolveToRecycledSlot(t *testing.T) {
	pool := NewPool(1, nil)

	h1 := pool.Spawn(func(p *Particle) { p.TTL = 1 })
	pool.Release(h1)
	h2 := pool.Spawn(func(p *Particle) { p.TTL = 2 })

	assert.Nil(t, pool.Get(h1))
	require.NotNil(t, pool.Get(h2))
	assert.Equal(t, 2.0, pool.Get(h2).TTL)
}

func TestSpawnAtCapacityEvictsClosestToExpiry(t *testing.T) {
	var evictedTTL []float64
	pool := NewPool(3, func(p *Particle) {
		evictedTTL = append(evictedTTL, p.TTL)
	})

	hLong := pool.Spawn(func(p *Particle) { p.TTL = 10 })
	hShort := pool.Spawn(func(p *Particle) { p.TTL = 1 })
	hMid := pool.Spawn(func(p *Particle) { p.TTL = 5 })

	// Pool is full: the next spawn must evict the shortest-lived particle.
	hNew := pool.Spawn(func(p *Particle) { p.TTL = 7 })

	assert.Equal(t, 3, pool.Live())
	assert.Equal(t, uint64(1), pool.Evicted())
	assert.Equal(t, []float64{1}, evictedTTL)

	assert.Nil(t, pool.Get(hShort))
	assert.NotNil(t, pool.Get(hLong))
	assert.NotNil(t, pool.Get(hMid))
	assert.NotNil(t, pool.Get(hNew))
}

func TestEvictionConsidersAge(t *testing.T) {
	pool := NewPool(2, nil)

	// Same TTL, but the older particle is closer to expiry.
	hOld := pool.Spawn(func(p *Particle) { p.TTL = 5; p.Age = 4 })
	hYoung := pool.Spawn(func(p *Particle) { p.TTL = 5; p.Age = 0 })

	pool.Spawn(func(p *Particle) { p.TTL = 3 })

	assert.Nil(t, pool.Get(hOld))
	assert.NotNil(t, pool.Get(hYoung))
}

func TestLiveCountNeverExceedsCapacity(t *testing.T) {
	pool := NewPool(8, nil)

	for i := 0; i < 100; i++ {
		pool.Spawn(func(p *Particle) { p.TTL = float64(i%10) + 1 })
		assert.LessOrEqual(t, pool.Live(), pool.Capacity())
	}

	assert.Equal(t, 8, pool.Live())
	assert.Equal(t, uint64(92), pool.Evicted())
}

func TestReleaseIfDuringIteration(t *testing.T) {
	pool := NewPool(8, nil)

	for i := 0; i < 8; i++ {
		pool.Spawn(func(p *Particle) { p.TTL = float64(i) })
	}

	released := pool.ReleaseIf(func(p *Particle) bool {
		return p.TTL < 4
	})

	assert.Equal(t, 4, released)
	assert.Equal(t, 4, pool.Live())
}
