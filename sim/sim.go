// Package sim defines the contract shared by the simulations and the
// pieces both drivers use: pointer mapping, delta-time clamping and the
// parameter registry behind SetParameter.
package sim

import (
	"errors"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
)

var (
	// ErrUnknownParameter is returned by SetParameter for unregistered names.
	ErrUnknownParameter = errors.New("sim: unknown parameter")
	// ErrParameterType is returned when a value cannot be converted to the parameter's kind.
	ErrParameterType = errors.New("sim: parameter value has wrong type")
)

// Simulation is a GPU-stepped, pointer-driven simulation.
type Simulation interface {
	Name() string

	// Init allocates resources for a w×h viewport. It returns false with a
	// nil error when the device lacks a required capability.
	Init(w, h int) (bool, error)

	// Step advances one frame and renders it. elapsedMs is the wall time
	// since the previous step.
	Step(elapsedMs float64) error

	// OnPointerEvent takes a position normalized to [0,1] with the origin
	// at the top-left of the viewport.
	OnPointerEvent(pos mgl32.Vec2, pressed bool)

	// Resize reallocates every viewport-sized surface. On error the
	// previous surfaces stay in use.
	Resize(w, h int) error

	// SetParameter stores a value that takes effect on the next Step.
	SetParameter(name string, value any) error
	Parameter(name string) (any, error)
	Params() []Param

	Reset() error

	// Frame is the surface holding the last rendered frame.
	Frame() gpu.Surface

	// Dispose releases all device resources. It is idempotent.
	Dispose()
}

// PhaseTimer receives pass boundaries for per-pass timing.
type PhaseTimer interface {
	StartPhase(name string)
}

// NopTimer discards phase boundaries.
type NopTimer struct{}

func (NopTimer) StartPhase(string) {}

// PointerToWorld maps a top-left-origin normalized position into world
// units with the origin at the viewport centre and y up.
func PointerToWorld(pos mgl32.Vec2, w, h int) mgl32.Vec2 {
	return mgl32.Vec2{
		(pos[0] - 0.5) * float32(w),
		(0.5 - pos[1]) * float32(h),
	}
}

// MaxFrameDelta bounds a single step after a stall, in seconds.
const MaxFrameDelta = 0.05

// ClampDelta converts elapsed milliseconds into seconds in [0, MaxFrameDelta].
func ClampDelta(elapsedMs float64) float32 {
	if math.IsNaN(elapsedMs) || elapsedMs <= 0 {
		return 0
	}
	return float32(min(elapsedMs/1000, MaxFrameDelta))
}

// Census counts agents by state.
type Census struct {
	Capacity int
	Active   int
	Inactive int
	Species  [3]int
}

// LogValue implements slog.LogValuer.
func (c Census) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("capacity", c.Capacity),
		slog.Int("active", c.Active),
		slog.Int("inactive", c.Inactive),
		slog.Int("species0", c.Species[0]),
		slog.Int("species1", c.Species[1]),
		slog.Int("species2", c.Species[2]),
	)
}

// Counter is implemented by simulations that can count their agents.
type Counter interface {
	Census() (Census, error)
}
