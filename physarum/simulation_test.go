package physarum

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/config"
	"github.com/pthm-cable/slimefield/gpu"
	"github.com/pthm-cable/slimefield/gpu/softgpu"
	"github.com/pthm-cable/slimefield/sim"
)

var _ sim.Simulation = (*Simulation)(nil)
var _ sim.Counter = (*Simulation)(nil)

func testConfig() config.PhysarumConfig {
	cfg := config.Defaults().Physarum
	cfg.ParticleWidth = 16
	cfg.InitialActiveParticles = 100
	return cfg
}

func newTestSim(t *testing.T, cfg config.PhysarumConfig, w, h int) (*Simulation, *softgpu.Device) {
	t.Helper()
	dev := softgpu.New()
	s, err := New(dev, cfg, rand.New(rand.NewPCG(11, 12)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ok, err := s.Init(w, h)
	if err != nil || !ok {
		t.Fatalf("Init = %v, %v", ok, err)
	}
	t.Cleanup(s.Dispose)
	return s, dev
}

func census(t *testing.T, s *Simulation) sim.Census {
	t.Helper()
	c, err := s.Census()
	if err != nil {
		t.Fatalf("Census: %v", err)
	}
	return c
}

func TestInitReportsMissingCapability(t *testing.T) {
	dev := softgpu.NewWithCapabilities(gpu.Capabilities{ShaderLevel: 330, FloatRenderTargets: false, MaxTextureSize: 4096})
	s, err := New(dev, testConfig(), rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	ok, err := s.Init(64, 64)
	if ok || err != nil {
		t.Errorf("Init = %v, %v; want false, nil", ok, err)
	}
	if err := s.Step(16); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Step after failed Init = %v, want ErrNotInitialized", err)
	}
}

func TestInitReportsAllocationFailure(t *testing.T) {
	dev := softgpu.NewWithCapabilities(gpu.Capabilities{ShaderLevel: 330, FloatRenderTargets: true, MaxTextureSize: 32})
	s, _ := New(dev, testConfig(), rand.New(rand.NewPCG(1, 1)))
	ok, err := s.Init(64, 64)
	if ok || !errors.Is(err, gpu.ErrAllocation) {
		t.Errorf("Init = %v, %v; want false, ErrAllocation", ok, err)
	}
}

func TestResetActivatesExactlyK(t *testing.T) {
	s, _ := newTestSim(t, testConfig(), 64, 64)
	for _, k := range []int{0, 1, 100, 256, 1000} {
		if err := s.SetParameter("initial_active_particles", k); err != nil {
			t.Fatal(err)
		}
		if err := s.Reset(); err != nil {
			t.Fatal(err)
		}
		want := min(k, 256)
		c := census(t, s)
		if c.Active != want || c.Inactive != 256-want {
			t.Errorf("K=%d: census %+v, want %d active", k, c, want)
		}
		if s.CellCount() != want {
			t.Errorf("K=%d: CellCount = %d", k, s.CellCount())
		}
	}
}

func TestStepRunsPassesInOrder(t *testing.T) {
	cfg := testConfig()
	cfg.SobelFilter = true
	s, dev := newTestSim(t, cfg, 32, 32)
	dev.ResetTrace()
	if err := s.Step(16); err != nil {
		t.Fatalf("Step: %v", err)
	}
	want := []string{PassUpdate, PassRaster, PassDiffuse, PassComposite, PassSobel}
	if got := dev.Trace(); !slices.Equal(got, want) {
		t.Errorf("passes = %v, want %v", got, want)
	}
	if s.Frame() != s.view.edges {
		t.Error("Frame is not the edge filter output")
	}
}

func TestAgentsStayOnTorusAndInactiveStayPut(t *testing.T) {
	cfg := testConfig()
	cfg.MoveSpeed = [3]float32{4, 4, 4}
	s, dev := newTestSim(t, cfg, 40, 30)
	for range 25 {
		if err := s.Step(16); err != nil {
			t.Fatal(err)
		}
	}
	data, _ := dev.Download(s.agents.state.Current())
	for i := 0; i < len(data); i += 4 {
		a := AgentFromTexel(mgl32.Vec4{data[i], data[i+1], data[i+2], data[i+3]})
		if !a.Active() {
			if a != inactiveAgent() {
				t.Fatalf("inactive slot %d changed to %+v", i/4, a)
			}
			continue
		}
		if a.Pos[0] < -20 || a.Pos[0] >= 20 || a.Pos[1] < -15 || a.Pos[1] >= 15 {
			t.Fatalf("agent %d at %v left the torus", i/4, a.Pos)
		}
	}
	if c := census(t, s); c.Active != 100 {
		t.Errorf("active = %d, want 100", c.Active)
	}
}

func TestThreeSpeciesWithoutInfectionKeepPopulations(t *testing.T) {
	cfg := config.Defaults().Physarum
	cfg.ParticleWidth = 32
	cfg.SpeciesCount = 3
	cfg.SeedMode = config.SeedEdges
	cfg.InitialActiveParticles = 900
	cfg.Decay = 0.995
	cfg.Attract = [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	cfg.Infectious = [3]bool{false, false, false}
	s, _ := newTestSim(t, cfg, 160, 160)

	before := census(t, s)
	if before.Active != 900 {
		t.Fatalf("seeded %d active, want 900", before.Active)
	}
	for range 20 {
		if err := s.Step(16); err != nil {
			t.Fatal(err)
		}
	}
	after := census(t, s)
	if after != before {
		t.Errorf("census changed from %+v to %+v", before, after)
	}
	for sp, n := range after.Species {
		if n == 0 {
			t.Errorf("species %d missing from a three-species seed", sp)
		}
	}
}

func TestInfectionConvertsSpecies(t *testing.T) {
	cfg := testConfig()
	cfg.SpeciesCount = 3
	cfg.Infectious = [3]bool{true, true, true}
	cfg.Displacement = false
	s, dev := newTestSim(t, cfg, 32, 32)

	// Flood the trail with species 0 and make every agent species 2.
	w, h := 32, 32
	trail := make([]float32, w*h*4)
	for i := 0; i < len(trail); i += 4 {
		trail[i], trail[i+3] = 1, 1
	}
	if err := dev.Upload(s.view.trail.Current(), trail); err != nil {
		t.Fatal(err)
	}
	state, _ := dev.Download(s.agents.state.Current())
	for i := 0; i < len(state); i += 4 {
		if state[i+3] > -0.5 {
			state[i+3] = 2
		}
	}
	if err := s.agents.state.Reseed(state); err != nil {
		t.Fatal(err)
	}

	if err := s.Step(16); err != nil {
		t.Fatal(err)
	}
	c := census(t, s)
	if c.Species[0] != 100 || c.Species[2] != 0 {
		t.Errorf("census %+v, want all 100 converted to species 0", c)
	}
}

func TestPointerSpawnFillsInactiveSlots(t *testing.T) {
	cfg := testConfig()
	cfg.MousePlaceAmount = 60
	s, _ := newTestSim(t, cfg, 64, 64)

	s.OnPointerEvent(mgl32.Vec2{0.5, 0.5}, true)
	if err := s.Step(16); err != nil {
		t.Fatal(err)
	}
	s.OnPointerEvent(mgl32.Vec2{0.5, 0.5}, false)
	if err := s.Step(16); err != nil {
		t.Fatal(err)
	}
	c := census(t, s)
	if c.Active != 160 {
		t.Errorf("active = %d, want 160", c.Active)
	}
	if s.CellCount() != 160 {
		t.Errorf("CellCount = %d, want 160", s.CellCount())
	}
	if s.spawn.Pending() {
		t.Error("spawn buffer not cleared after the update pass")
	}
}

func TestPointerSpawnBeyondCapacityRecycles(t *testing.T) {
	cfg := testConfig()
	cfg.MousePlaceAmount = 90
	s, _ := newTestSim(t, cfg, 64, 64)

	s.OnPointerEvent(mgl32.Vec2{0.3, 0.7}, true)
	for range 6 {
		if err := s.Step(16); err != nil {
			t.Fatal(err)
		}
	}
	c := census(t, s)
	if c.Capacity != 256 || c.Active+c.Inactive != 256 {
		t.Errorf("census %+v: total changed", c)
	}
	if c.Active != 256 {
		t.Errorf("active = %d, want every slot filled", c.Active)
	}
	if s.CellCount() != s.MaxCells() {
		t.Errorf("CellCount = %d, want saturated at %d", s.CellCount(), s.MaxCells())
	}
}

func TestResizeReallocatesViewSurfaces(t *testing.T) {
	s, dev := newTestSim(t, testConfig(), 32, 32)
	old := s.Frame()
	if err := s.Resize(48, 24); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := s.Frame().Size(); w != 48 || h != 24 {
		t.Errorf("frame size = %dx%d, want 48x24", w, h)
	}
	if _, err := dev.Download(old); err == nil {
		t.Error("old frame surface still live after resize")
	}
	if err := s.Step(16); err != nil {
		t.Fatalf("Step after resize: %v", err)
	}
}

func TestResizeFailureKeepsPreviousSurfaces(t *testing.T) {
	dev := softgpu.NewWithCapabilities(gpu.Capabilities{ShaderLevel: 330, FloatRenderTargets: true, MaxTextureSize: 64})
	s, _ := New(dev, testConfig(), rand.New(rand.NewPCG(1, 1)))
	if ok, err := s.Init(32, 32); !ok || err != nil {
		t.Fatalf("Init = %v, %v", ok, err)
	}
	defer s.Dispose()
	frame := s.Frame()
	if err := s.Resize(128, 32); !errors.Is(err, gpu.ErrAllocation) {
		t.Errorf("Resize = %v, want ErrAllocation", err)
	}
	if s.Frame() != frame {
		t.Error("failed resize replaced the frame surface")
	}
	if err := s.Step(16); err != nil {
		t.Errorf("Step after failed resize: %v", err)
	}
}

func TestParticleWidthChangeReallocates(t *testing.T) {
	s, _ := newTestSim(t, testConfig(), 32, 32)
	if err := s.SetParameter("particle_width", 64); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(16); err != nil {
		t.Fatal(err)
	}
	if s.MaxCells() != 64*64 {
		t.Errorf("MaxCells = %d, want %d", s.MaxCells(), 64*64)
	}
	if c := census(t, s); c.Capacity != 64*64 || c.Active != 100 {
		t.Errorf("census %+v", c)
	}
	if err := s.SetParameter("particle_width", 100); err == nil {
		t.Error("particle_width accepted a width outside the selectable set")
	}
}

func TestSetParameter(t *testing.T) {
	s, _ := newTestSim(t, testConfig(), 16, 16)
	if err := s.SetParameter("move_speed.2", 3.5); err != nil {
		t.Fatal(err)
	}
	if s.Config().MoveSpeed[2] != 3.5 {
		t.Errorf("move speed = %v", s.Config().MoveSpeed)
	}
	if err := s.SetParameter("attract.0.1", -2); err != nil {
		t.Fatal(err)
	}
	if s.Config().Attract[0][1] != -1 {
		t.Errorf("attract not clamped: %v", s.Config().Attract[0])
	}
	if err := s.SetParameter("colors.1", "#00ff00"); err != nil {
		t.Fatal(err)
	}
	if s.colors[1] != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("colour = %v", s.colors[1])
	}
	if err := s.SetParameter("colors.1", "nonsense"); err == nil {
		t.Error("invalid colour accepted")
	}
	if err := s.SetParameter("warp_drive", 1); !errors.Is(err, sim.ErrUnknownParameter) {
		t.Errorf("unknown name = %v", err)
	}
	if v, err := s.Parameter("decay"); err != nil || v.(float32) != 0.995 {
		t.Errorf("Parameter(decay) = %v, %v", v, err)
	}
}

func TestRandomizeSpeciesRanges(t *testing.T) {
	s, _ := newTestSim(t, testConfig(), 16, 16)
	for range 20 {
		s.RandomizeSpecies(-1)
		c := s.Config()
		for i := range 3 {
			if c.MoveSpeed[i] < 1 || c.MoveSpeed[i] > 5 {
				t.Fatalf("move speed %v", c.MoveSpeed[i])
			}
			if c.SensorDistance[i] > 50 {
				t.Fatalf("sensor distance %v", c.SensorDistance[i])
			}
			if c.SensorAngle[i] < 1 {
				t.Fatalf("sensor angle %v", c.SensorAngle[i])
			}
			if c.Attract[i][i] < 0 {
				t.Fatalf("self attraction %v", c.Attract[i][i])
			}
			if c.Infectious[i] {
				t.Fatal("randomize enabled infection")
			}
		}
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	s, _ := newTestSim(t, testConfig(), 16, 16)
	s.Dispose()
	s.Dispose()
	if s.Frame() != nil {
		t.Error("Frame after Dispose is not nil")
	}
	if err := s.Step(16); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Step after Dispose = %v", err)
	}
}
