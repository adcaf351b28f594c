package physarum

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/slimefield/config"
	"github.com/pthm-cable/slimefield/palette"
	"github.com/pthm-cable/slimefield/sim"
)

// ParticleWidths are the selectable agent grid widths.
var ParticleWidths = []int{64, 128, 256, 512, 1024, 2048}

// registerParams binds every tunable of cfg. Structural settings request a
// reallocation or reset that the next Step performs.
func (s *Simulation) registerParams() *sim.Registry {
	c := &s.cfg
	r := sim.NewRegistry()
	reset := func() { s.needsReset = true }
	realloc := func() { s.needsRealloc = true }

	r.Group("Setup")
	r.Enum("particle_width", "Grid Width", ParticleWidths, &c.ParticleWidth, realloc)
	r.Enum("species_count", "Species", []int{1, 3}, &c.SpeciesCount, reset)
	r.Int("single_team", "Single Species", 0, 2, &c.SingleTeam, func() {
		if c.SpeciesCount == 1 {
			s.needsReset = true
		}
	})
	r.Choice("seed_mode", "Seed", []string{config.SeedEdges, config.SeedCenter}, &c.SeedMode, reset)
	r.Int("initial_active_particles", "Initial Agents", 0, 2048*2048, &c.InitialActiveParticles, reset)

	r.Group("Pointer")
	r.Bool("mouse_push", "Push", &c.MousePush, nil)
	r.Float("mouse_radius", "Push Radius", 0, 300, 1, &c.MouseRadius, nil)
	r.Int("mouse_place_amount", "Place Amount", 1, 5000, &c.MousePlaceAmount, nil)
	r.Float("mouse_place_radius", "Place Radius", 0, 200, 1, &c.MousePlaceRadius, nil)
	r.Int("mouse_place_color", "Place Species", -1, 2, &c.MousePlaceColor, nil)

	r.Group("Growth")
	r.Float("decay", "Decay", 0.01, 1, 0.001, &c.Decay, nil)
	r.Bool("displacement", "One Per Pixel", &c.Displacement, nil)
	r.Bool("restrict_to_middle", "Restrict To Middle", &c.RestrictToMiddle, nil)

	r.Group("Rendering")
	r.Bool("monochrome", "Monochrome", &c.Monochrome, nil)
	r.Float("trail_opacity", "Trail Opacity", 0, 1, 0.01, &c.TrailOpacity, nil)
	r.Float("dot_opacity", "Dot Opacity", 0, 1, 0.01, &c.DotOpacity, nil)
	r.Bool("flat_shading", "Flat Shading", &c.FlatShading, nil)
	r.Float("color_threshold", "Color Threshold", 0, 1, 0.01, &c.ColorThreshold, nil)
	r.Bool("sobel_filter", "Edge Filter", &c.SobelFilter, nil)
	r.Bool("show_cell_count", "Show Cell Count", &c.ShowCellCount, nil)

	for i := range 3 {
		r.Group(fmt.Sprintf("Species %d", i))
		r.Float(key("move_speed", i), "Move Speed", 0, 20, 0.1, &c.MoveSpeed[i], nil)
		r.Float(key("sensor_distance", i), "Sensor Distance", 0, 100, 0.5, &c.SensorDistance[i], nil)
		r.Float(key("sensor_angle", i), "Sensor Angle", 0, math.Pi, 0.01, &c.SensorAngle[i], nil)
		r.Float(key("rotation_angle", i), "Rotation Angle", 0, math.Pi, 0.01, &c.RotationAngle[i], nil)
		r.Float(key("dot_size", i), "Dot Size", 0, 10, 0.5, &c.DotSize[i], nil)
		r.Bool(key("infectious", i), "Infectious", &c.Infectious[i], nil)
		for j := range 3 {
			r.Float(fmt.Sprintf("attract.%d.%d", i, j), fmt.Sprintf("Attract %d", j), -1, 1, 0.01, &c.Attract[i][j], nil)
		}
		r.Text(key("colors", i), "Color", &c.Colors[i], validColor, s.refreshColors)
	}
	return r
}

func key(name string, species int) string {
	return fmt.Sprintf("%s.%d", name, species)
}

func validColor(v string) error {
	_, err := palette.ParseColor(v)
	return err
}

// RandomizeSpecies draws new steering parameters for species i, or for all
// species when i is negative. Infection is switched off.
func (s *Simulation) RandomizeSpecies(i int) {
	if i < 0 {
		for j := range 3 {
			s.RandomizeSpecies(j)
		}
		return
	}
	if i > 2 {
		return
	}
	randomizeSpecies(&s.cfg, i, s.rng)
}

func randomizeSpecies(c *config.PhysarumConfig, i int, rng *rand.Rand) {
	between := func(lo, hi float64) float32 { return float32(lo + rng.Float64()*(hi-lo)) }

	c.MoveSpeed[i] = between(1, 5)
	c.SensorDistance[i] = min(50, between(1.5, 6)*c.MoveSpeed[i])
	c.RotationAngle[i] = between(0.3, 1)
	c.SensorAngle[i] = max(1, between(1, 1.5)*c.RotationAngle[i])
	c.Infectious[i] = false
	c.DotSize[i] = 1
	for j := range 3 {
		lo := -1.0
		if j == i {
			lo = 0
		}
		c.Attract[i][j] = between(lo, 1)
	}
}
