package physarum

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

// SpawnBuffer stages pointer placements for the update pass. It mirrors
// the agent surface slot for slot: a non-zero texel replaces that agent on
// the next update. Slots are handed out by a circular counter, so presses
// beyond capacity recycle the oldest slots instead of growing storage.
type SpawnBuffer struct {
	data    []float32
	slots   int
	counter int
	toClear int
	dirty   bool
}

// NewSpawnBuffer returns an empty buffer for an n×n agent surface.
func NewSpawnBuffer(n int) *SpawnBuffer {
	return &SpawnBuffer{data: make([]float32, n*n*4), slots: n * n, dirty: true}
}

// Capacity returns the number of slots.
func (b *SpawnBuffer) Capacity() int {
	return b.slots
}

// Counter returns the next slot to be written.
func (b *SpawnBuffer) Counter() int {
	return b.counter
}

// SetCounter moves the next slot, wrapping into range, and forgets any
// pending clear.
func (b *SpawnBuffer) SetCounter(c int) {
	if b.slots == 0 {
		b.counter = 0
	} else {
		b.counter = ((c % b.slots) + b.slots) % b.slots
	}
	b.toClear = 0
}

// Place writes amount agents scattered within radius of pos. species -1
// picks a species per agent with equal odds.
func (b *SpawnBuffer) Place(pos mgl32.Vec2, radius float32, amount, species int, rng *rand.Rand) {
	if b.slots == 0 || amount <= 0 {
		return
	}
	amount = min(amount, b.slots)
	for i := b.counter; i < b.counter+amount; i++ {
		ang := rng.Float64() * 2 * math.Pi
		dist := rng.Float64() * float64(radius)
		team := species
		if team < 0 {
			team = randomSpecies(rng)
		}
		idx := (i % b.slots) * 4
		b.data[idx] = pos[0] + float32(dist*math.Cos(ang))
		b.data[idx+1] = pos[1] + float32(dist*math.Sin(ang))
		b.data[idx+2] = float32(ang)
		b.data[idx+3] = float32(team)
		if ang == 0 {
			// An all-zero texel reads as an empty slot.
			b.data[idx+2] = 2 * math.Pi
		}
	}
	b.toClear += amount
	b.counter = (b.counter + amount) % b.slots
	b.dirty = true
}

func randomSpecies(rng *rand.Rand) int {
	r := rng.Float64()
	switch {
	case r < 1.0/3:
		return 0
	case r < 2.0/3:
		return 1
	}
	return 2
}

// Clear zeroes the slots written since the last clear. Call it after the
// update pass has consumed them.
func (b *SpawnBuffer) Clear() {
	if b.toClear == 0 {
		return
	}
	n := min(b.toClear, b.slots)
	for i := b.counter - n; i < b.counter; i++ {
		idx := ((i + b.slots) % b.slots) * 4
		clear(b.data[idx : idx+4])
	}
	b.toClear = 0
	b.dirty = true
}

// Pending reports whether any slot holds an unconsumed placement.
func (b *SpawnBuffer) Pending() bool {
	return b.toClear > 0
}

// Data returns the texel data. It is only valid until the next Place or Clear.
func (b *SpawnBuffer) Data() []float32 {
	return b.data
}

// Dirty reports whether Data changed since the last MarkClean.
func (b *SpawnBuffer) Dirty() bool {
	return b.dirty
}

// MarkClean records that Data has been uploaded.
func (b *SpawnBuffer) MarkClean() {
	b.dirty = false
}
