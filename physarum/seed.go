package physarum

import (
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/slimefield/config"
)

// SeedAgents builds the initial agent surface for an n×n grid in a w×h
// viewport. The first `active` slots (clamped to capacity) hold agents;
// the rest are inactive.
func SeedAgents(n, active int, cfg config.PhysarumConfig, w, h int, rng *rand.Rand) []float32 {
	slots := n * n
	active = max(0, min(slots, active))
	data := make([]float32, slots*4)

	extent := float64(min(w, h))
	maxRadius := extent * 0.48
	jitter := extent * 0.02

	for i := range slots {
		a := inactiveAgent()
		if i < active {
			a = seedOne(cfg, maxRadius, jitter, rng)
		}
		t := a.Texel()
		copy(data[i*4:i*4+4], t[:])
	}
	return data
}

func seedOne(cfg config.PhysarumConfig, maxRadius, jitter float64, rng *rand.Rand) Agent {
	team := cfg.SingleTeam
	if cfg.SpeciesCount > 1 {
		team = rng.IntN(3)
	}
	ang := rng.Float64() * 2 * math.Pi

	var r, heading float64
	if cfg.SeedMode == config.SeedCenter {
		r = rng.Float64() * maxRadius * 0.12
		heading = rng.Float64() * 2 * math.Pi
	} else {
		r = maxRadius + uniform(rng, -jitter, jitter)
		heading = ang + math.Pi + uniform(rng, -0.25, 0.25)
	}

	var a Agent
	a.Pos[0] = float32(math.Cos(ang) * r)
	a.Pos[1] = float32(math.Sin(ang) * r)
	a.Heading = float32(heading)
	a.Species = float32(team)
	return a
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
