package app

import (
	"errors"
	"math/rand/v2"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/config"
	"github.com/pthm-cable/slimefield/gpu"
	"github.com/pthm-cable/slimefield/gpu/softgpu"
	"github.com/pthm-cable/slimefield/metaballs"
	"github.com/pthm-cable/slimefield/sim"
)

// fakeSim records the calls the switcher makes.
type fakeSim struct {
	name      string
	supported bool
	inits     int
	resizes   [][2]int
	steps     int
	pointer   []bool
	disposed  bool
}

func (f *fakeSim) Name() string { return f.name }

func (f *fakeSim) Init(w, h int) (bool, error) {
	f.inits++
	return f.supported, nil
}

func (f *fakeSim) Step(float64) error { f.steps++; return nil }

func (f *fakeSim) OnPointerEvent(_ mgl32.Vec2, pressed bool) {
	f.pointer = append(f.pointer, pressed)
}

func (f *fakeSim) Resize(w, h int) error {
	f.resizes = append(f.resizes, [2]int{w, h})
	return nil
}

func (f *fakeSim) SetParameter(string, any) error { return nil }
func (f *fakeSim) Parameter(string) (any, error)  { return nil, sim.ErrUnknownParameter }
func (f *fakeSim) Params() []sim.Param            { return nil }
func (f *fakeSim) Reset() error                   { return nil }
func (f *fakeSim) Frame() gpu.Surface             { return nil }
func (f *fakeSim) Dispose()                       { f.disposed = true }

func TestSwitcherInitializesLazily(t *testing.T) {
	a := &fakeSim{name: "a", supported: true}
	b := &fakeSim{name: "b", supported: true}
	s := NewSwitcher(100, 80, a, b)

	if err := s.Activate("a"); err != nil {
		t.Fatal(err)
	}
	if a.inits != 1 || b.inits != 0 {
		t.Fatalf("inits a=%d b=%d, want 1 and 0", a.inits, b.inits)
	}

	// Only the active simulation is resized.
	if err := s.Resize(200, 150); err != nil {
		t.Fatal(err)
	}
	if len(a.resizes) != 1 || len(b.resizes) != 0 {
		t.Fatalf("resizes a=%v b=%v", a.resizes, b.resizes)
	}

	// b initializes at the current size, so it needs no resize.
	if err := s.Next(); err != nil {
		t.Fatal(err)
	}
	if s.Active() != b || b.inits != 1 || len(b.resizes) != 0 {
		t.Fatalf("after switch: active=%s inits=%d resizes=%v", s.Active().Name(), b.inits, b.resizes)
	}

	// a catches up with a resize that happened while it was inactive.
	if err := s.Resize(300, 200); err != nil {
		t.Fatal(err)
	}
	if err := s.Next(); err != nil {
		t.Fatal(err)
	}
	if a.inits != 1 {
		t.Errorf("a re-initialized")
	}
	if got := a.resizes[len(a.resizes)-1]; got != [2]int{300, 200} {
		t.Errorf("a last resized to %v, want 300x200", got)
	}

	if err := s.Step(16); err != nil || a.steps != 1 || b.steps != 0 {
		t.Errorf("step went to the wrong simulation: a=%d b=%d err=%v", a.steps, b.steps, err)
	}

	s.Dispose()
	if !a.disposed || !b.disposed {
		t.Error("Dispose skipped a simulation")
	}
}

func TestSwitcherUnsupportedSimulation(t *testing.T) {
	a := &fakeSim{name: "a"}
	s := NewSwitcher(100, 80, a)

	err := s.Activate("a")
	if !errors.Is(err, gpu.ErrUnsupported) || !unsupported(err) {
		t.Fatalf("Activate = %v, want ErrUnsupported", err)
	}
	if s.Ready() {
		t.Error("unsupported simulation reported ready")
	}
	if err := s.Step(16); err != nil || a.steps != 0 {
		t.Errorf("stepped an unsupported simulation")
	}
	s.Pointer(mgl32.Vec2{}, true)
	if len(a.pointer) != 0 {
		t.Error("pointer forwarded to an unsupported simulation")
	}
	// The failure is sticky; Init is not retried.
	s.Next()
	if a.inits != 1 {
		t.Errorf("Init called %d times", a.inits)
	}
	if err := s.Activate("nope"); err == nil {
		t.Error("unknown simulation activated")
	}
}

func TestSwitcherIgnoresDegenerateResize(t *testing.T) {
	a := &fakeSim{name: "a", supported: true}
	s := NewSwitcher(100, 80, a)
	if err := s.Activate("a"); err != nil {
		t.Fatal(err)
	}
	for _, size := range [][2]int{{0, 80}, {100, 0}, {100, 80}} {
		if err := s.Resize(size[0], size[1]); err != nil {
			t.Fatal(err)
		}
	}
	if len(a.resizes) != 0 {
		t.Errorf("resizes = %v, want none", a.resizes)
	}
}

func TestSwitcherDrivesMetaballs(t *testing.T) {
	cfg := config.Defaults().Metaballs
	cfg.GridSize = 32
	mb, err := metaballs.New(softgpu.New(), cfg, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatal(err)
	}
	s := NewSwitcher(64, 48, mb)
	t.Cleanup(s.Dispose)
	if err := s.Activate(metaballs.Name); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(16); err != nil {
		t.Fatal(err)
	}
	if err := s.Resize(32, 32); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(16); err != nil {
		t.Fatal(err)
	}
	if w, h := s.Frame().Size(); w != 32 || h != 32 {
		t.Errorf("frame %dx%d after resize, want 32x32", w, h)
	}
}

func TestNormalizePointer(t *testing.T) {
	if got := normalizePointer(rl.Vector2{X: 50, Y: 20}, 200, 80); got != (mgl32.Vec2{0.25, 0.25}) {
		t.Errorf("normalizePointer = %v", got)
	}
	if got := normalizePointer(rl.Vector2{X: 5, Y: 5}, 0, 0); got != (mgl32.Vec2{}) {
		t.Errorf("zero viewport = %v", got)
	}
}
