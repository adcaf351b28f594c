package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/slimefield/sim"
)

// Population is one agent census, as logged and written to population.csv.
type Population struct {
	Frame      int     `csv:"frame"`
	Simulation string  `csv:"simulation"`
	Capacity   int     `csv:"capacity"`
	Active     int     `csv:"active"`
	Inactive   int     `csv:"inactive"`
	Species0   int     `csv:"species0"`
	Species1   int     `csv:"species1"`
	Species2   int     `csv:"species2"`
	Occupancy  float64 `csv:"occupancy"`
}

// LogValue implements slog.LogValuer.
func (p Population) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", p.Frame),
		slog.Int("active", p.Active),
		slog.Int("inactive", p.Inactive),
		slog.Int("species0", p.Species0),
		slog.Int("species1", p.Species1),
		slog.Int("species2", p.Species2),
		slog.Float64("occupancy", p.Occupancy),
	)
}

// PopulationSampler reads a census every interval frames. Readbacks stall
// the GPU, so the interval is kept well above one.
type PopulationSampler struct {
	interval int
	last     int
	sampled  bool
}

// NewPopulationSampler returns a sampler, or nil when interval < 1.
func NewPopulationSampler(interval int) *PopulationSampler {
	if interval < 1 {
		return nil
	}
	return &PopulationSampler{interval: interval}
}

// Due reports whether frame should be sampled.
func (ps *PopulationSampler) Due(frame int) bool {
	if ps == nil {
		return false
	}
	return !ps.sampled || frame-ps.last >= ps.interval
}

// Sample counts c's agents at frame when a sample is due. ok is false when
// nothing was read.
func (ps *PopulationSampler) Sample(frame int, name string, c sim.Counter) (p Population, ok bool, err error) {
	if !ps.Due(frame) {
		return Population{}, false, nil
	}
	census, err := c.Census()
	if err != nil {
		return Population{}, false, fmt.Errorf("census of %s: %w", name, err)
	}
	ps.last = frame
	ps.sampled = true
	return NewPopulation(frame, name, census), true, nil
}

// NewPopulation converts a census into a population row.
func NewPopulation(frame int, name string, c sim.Census) Population {
	p := Population{
		Frame:      frame,
		Simulation: name,
		Capacity:   c.Capacity,
		Active:     c.Active,
		Inactive:   c.Inactive,
		Species0:   c.Species[0],
		Species1:   c.Species[1],
		Species2:   c.Species[2],
	}
	if c.Capacity > 0 {
		p.Occupancy = float64(c.Active) / float64(c.Capacity)
	}
	return p
}
