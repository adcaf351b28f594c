package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
	"github.com/pthm-cable/slimefield/sim"
)

// entry is one simulation and the viewport it was last sized for.
type entry struct {
	sim         sim.Simulation
	w, h        int
	initialized bool
	err         error // sticky Init failure
}

// Switcher owns the simulations and keeps exactly one active. Inactive
// simulations keep their state and are resized when they next become
// active.
type Switcher struct {
	entries []*entry
	active  int
	w, h    int
	log     *slog.Logger
}

// NewSwitcher manages sims for a w×h viewport. The first one is active.
func NewSwitcher(w, h int, sims ...sim.Simulation) *Switcher {
	s := &Switcher{w: w, h: h, log: slog.Default().With("component", "switcher")}
	for _, sm := range sims {
		s.entries = append(s.entries, &entry{sim: sm})
	}
	return s
}

// Active returns the active simulation.
func (s *Switcher) Active() sim.Simulation {
	return s.entries[s.active].sim
}

// Activate makes the named simulation active and prepares it.
func (s *Switcher) Activate(name string) error {
	for i, e := range s.entries {
		if e.sim.Name() == name {
			s.active = i
			return s.prepare()
		}
	}
	return fmt.Errorf("unknown simulation %q", name)
}

// Next activates the following simulation and prepares it.
func (s *Switcher) Next() error {
	s.active = (s.active + 1) % len(s.entries)
	return s.prepare()
}

// Ready reports whether the active simulation can step.
func (s *Switcher) Ready() bool {
	e := s.entries[s.active]
	return e.initialized && e.err == nil
}

// Err is the reason the active simulation is not ready, if any.
func (s *Switcher) Err() error {
	return s.entries[s.active].err
}

// prepare initializes the active simulation on first use and brings it
// up to the current viewport size.
func (s *Switcher) prepare() error {
	e := s.entries[s.active]
	if e.err != nil {
		return e.err
	}
	if !e.initialized {
		ok, err := e.sim.Init(s.w, s.h)
		switch {
		case err != nil:
			e.err = fmt.Errorf("init %s: %w", e.sim.Name(), err)
		case !ok:
			e.err = fmt.Errorf("init %s: %w", e.sim.Name(), gpu.ErrUnsupported)
		default:
			e.initialized = true
			e.w, e.h = s.w, s.h
		}
		return e.err
	}
	if e.w == s.w && e.h == s.h {
		return nil
	}
	if err := e.sim.Resize(s.w, s.h); err != nil {
		return fmt.Errorf("resize %s: %w", e.sim.Name(), err)
	}
	e.w, e.h = s.w, s.h
	return nil
}

// Resize records the new viewport and resizes the active simulation.
func (s *Switcher) Resize(w, h int) error {
	if w <= 0 || h <= 0 || (w == s.w && h == s.h) {
		return nil
	}
	s.w, s.h = w, h
	s.log.Info("viewport resized", "width", w, "height", h)
	if !s.Ready() {
		return nil
	}
	return s.prepare()
}

// Size returns the viewport size.
func (s *Switcher) Size() (w, h int) {
	return s.w, s.h
}

// Step advances the active simulation.
func (s *Switcher) Step(elapsedMs float64) error {
	if !s.Ready() {
		return nil
	}
	return s.Active().Step(elapsedMs)
}

// Pointer forwards a pointer sample to the active simulation.
func (s *Switcher) Pointer(pos mgl32.Vec2, pressed bool) {
	if s.Ready() {
		s.Active().OnPointerEvent(pos, pressed)
	}
}

// Reset resets the active simulation.
func (s *Switcher) Reset() error {
	if !s.Ready() {
		return nil
	}
	return s.Active().Reset()
}

// Frame is the active simulation's last frame, or nil.
func (s *Switcher) Frame() gpu.Surface {
	if !s.Ready() {
		return nil
	}
	return s.Active().Frame()
}

// Dispose releases every simulation.
func (s *Switcher) Dispose() {
	for _, e := range s.entries {
		e.sim.Dispose()
	}
}

// Each calls fn for every simulation.
func (s *Switcher) Each(fn func(sim.Simulation)) {
	for _, e := range s.entries {
		fn(e.sim)
	}
}

// unsupported reports whether err is a missing device capability.
func unsupported(err error) bool {
	return errors.Is(err, gpu.ErrUnsupported)
}
