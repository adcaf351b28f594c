// Package physarum is a slime-mould agent simulation. Agents live one per
// texel of a state surface, sense a decaying trail field they deposit
// into, and are drawn as points.
package physarum

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/config"
	"github.com/pthm-cable/slimefield/gpu"
	"github.com/pthm-cable/slimefield/palette"
	"github.com/pthm-cable/slimefield/sim"
)

// ErrNotInitialized is returned by Step and Resize before a successful Init.
var ErrNotInitialized = errors.New("physarum: not initialized")

// Name identifies the simulation.
const Name = "physarum"

// agentSet is everything sized by the agent grid.
type agentSet struct {
	n      int
	state  *gpu.PingPong
	spawn  gpu.Surface
	raster *gpu.Stage
}

func (a *agentSet) release() {
	if a == nil {
		return
	}
	a.raster.Release()
	if a.spawn != nil {
		a.spawn.Release()
	}
	a.state.Release()
}

// viewSet is everything sized by the viewport.
type viewSet struct {
	w, h  int
	trail *gpu.PingPong
	dots  gpu.Surface
	scene gpu.Surface
	edges gpu.Surface
}

func (v *viewSet) release() {
	if v == nil {
		return
	}
	v.trail.Release()
	for _, s := range []gpu.Surface{v.dots, v.scene, v.edges} {
		if s != nil {
			s.Release()
		}
	}
}

// Simulation drives the physarum passes. Each step runs, in order:
// agent update, raster, diffuse/decay, composite and the optional edge
// filter.
type Simulation struct {
	dev    gpu.Device
	cfg    config.PhysarumConfig
	params *sim.Registry
	rng    *rand.Rand
	timer  sim.PhaseTimer
	log    *slog.Logger

	colors  [3]mgl32.Vec3
	time    float32
	pointer mgl32.Vec2
	pressed bool

	agents *agentSet
	view   *viewSet
	spawn  *SpawnBuffer

	update, diffuse, composite, sobel *gpu.Stage

	activeCells  int
	needsReset   bool
	needsRealloc bool
	ready        bool
}

// New creates an uninitialized simulation. cfg is copied.
func New(dev gpu.Device, cfg config.PhysarumConfig, rng *rand.Rand) (*Simulation, error) {
	s := &Simulation{
		dev:     dev,
		cfg:     cfg,
		rng:     rng,
		timer:   sim.NopTimer{},
		log:     slog.Default().With("component", Name),
		pointer: mgl32.Vec2{1e6, 1e6},
	}
	for i, c := range cfg.Colors {
		col, err := palette.ParseColor(c)
		if err != nil {
			return nil, fmt.Errorf("physarum colors[%d]: %w", i, err)
		}
		s.colors[i] = col
	}
	s.params = s.registerParams()
	return s, nil
}

func (s *Simulation) Name() string { return Name }

// SetPhaseTimer installs a per-pass timer.
func (s *Simulation) SetPhaseTimer(t sim.PhaseTimer) {
	if t == nil {
		t = sim.NopTimer{}
	}
	s.timer = t
}

// Init compiles the passes and allocates all surfaces.
func (s *Simulation) Init(w, h int) (bool, error) {
	caps := s.dev.Capabilities()
	if !caps.Sufficient() {
		s.log.Warn("device lacks required capabilities",
			"float_targets", caps.FloatRenderTargets,
			"shader_level", caps.ShaderLevel,
		)
		return false, nil
	}
	if s.ready {
		return true, nil
	}

	var err error
	if s.update, err = gpu.NewStage(s.dev, updateProgram, nil); err != nil {
		return false, s.fail(err)
	}
	if s.diffuse, err = gpu.NewStage(s.dev, diffuseProgram, nil); err != nil {
		return false, s.fail(err)
	}
	if s.composite, err = gpu.NewStage(s.dev, compositeProgram, nil); err != nil {
		return false, s.fail(err)
	}
	if s.sobel, err = gpu.NewStage(s.dev, sobelProgram, nil); err != nil {
		return false, s.fail(err)
	}
	if s.agents, err = s.allocAgents(s.cfg.ParticleWidth); err != nil {
		return false, s.fail(err)
	}
	if s.view, err = s.allocView(w, h); err != nil {
		return false, s.fail(err)
	}
	s.spawn = NewSpawnBuffer(s.agents.n)
	s.ready = true

	if err := s.Reset(); err != nil {
		return false, s.fail(err)
	}
	s.log.Info("initialized", "width", w, "height", h, "agents", s.agents.n*s.agents.n)
	return true, nil
}

func (s *Simulation) fail(err error) error {
	s.Dispose()
	return fmt.Errorf("physarum init: %w", err)
}

func (s *Simulation) allocAgents(n int) (*agentSet, error) {
	state, err := gpu.NewPingPong(s.dev, n, n, gpu.RGBA32F, nil)
	if err != nil {
		return nil, fmt.Errorf("agent state %dx%d: %w", n, n, err)
	}
	spawn, err := s.dev.NewSurface(n, n, gpu.RGBA32F, nil)
	if err != nil {
		state.Release()
		return nil, fmt.Errorf("spawn buffer %dx%d: %w", n, n, err)
	}
	raster, err := gpu.NewPointStage(s.dev, rasterProgram, nil,
		[]gpu.Attribute{{Name: "uv", Size: 2, Data: agentUVs(n)}})
	if err != nil {
		spawn.Release()
		state.Release()
		return nil, err
	}
	return &agentSet{n: n, state: state, spawn: spawn, raster: raster}, nil
}

func (s *Simulation) allocView(w, h int) (*viewSet, error) {
	v := &viewSet{w: w, h: h}
	var err error
	if v.trail, err = gpu.NewPingPong(s.dev, w, h, gpu.RGBA32F, nil); err != nil {
		return nil, fmt.Errorf("trail field %dx%d: %w", w, h, err)
	}
	for _, dst := range []*gpu.Surface{&v.dots, &v.scene, &v.edges} {
		if *dst, err = s.dev.NewSurface(w, h, gpu.RGBA32F, nil); err != nil {
			v.release()
			return nil, fmt.Errorf("view surface %dx%d: %w", w, h, err)
		}
	}
	return v, nil
}

// Reset reseeds the agents and clears the trail.
func (s *Simulation) Reset() error {
	if !s.ready {
		return ErrNotInitialized
	}
	n := s.agents.n
	active := max(0, min(n*n, s.cfg.InitialActiveParticles))
	seed := SeedAgents(n, active, s.cfg, s.view.w, s.view.h, s.rng)
	if err := s.agents.state.Reseed(seed); err != nil {
		return fmt.Errorf("physarum reset: %w", err)
	}
	if err := s.dev.Clear(s.view.dots, mgl32.Vec4{}); err != nil {
		return fmt.Errorf("physarum reset: %w", err)
	}
	for _, t := range []gpu.Surface{s.view.trail.Current(), s.view.trail.Next()} {
		if err := s.dev.Clear(t, mgl32.Vec4{}); err != nil {
			return fmt.Errorf("physarum reset: %w", err)
		}
	}

	s.spawn = NewSpawnBuffer(n)
	s.spawn.SetCounter(active)
	s.activeCells = active
	s.needsReset = false
	s.log.Info("reset", "active", active, "capacity", n*n, "seed_mode", s.cfg.SeedMode)
	return nil
}

// reallocAgents swaps in agent surfaces for the configured grid width.
func (s *Simulation) reallocAgents() error {
	want := s.cfg.ParticleWidth
	next, err := s.allocAgents(want)
	if err != nil {
		s.cfg.ParticleWidth = s.agents.n
		s.needsRealloc = false
		return fmt.Errorf("physarum grid %d: %w", want, err)
	}
	s.agents.release()
	s.agents = next
	s.needsRealloc = false
	return s.Reset()
}

// Resize reallocates the viewport-sized surfaces. Agents keep their
// positions and wrap into the new bounds on the next update.
func (s *Simulation) Resize(w, h int) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if w == s.view.w && h == s.view.h {
		return nil
	}
	next, err := s.allocView(w, h)
	if err != nil {
		return fmt.Errorf("physarum resize: %w", err)
	}
	s.view.release()
	s.view = next
	s.log.Info("resized", "width", w, "height", h)
	return nil
}

// OnPointerEvent records the pointer for the next step.
func (s *Simulation) OnPointerEvent(pos mgl32.Vec2, pressed bool) {
	if s.view == nil {
		return
	}
	s.pointer = sim.PointerToWorld(pos, s.view.w, s.view.h)
	s.pressed = pressed
}

// Step advances and renders one frame.
func (s *Simulation) Step(elapsedMs float64) error {
	if !s.ready {
		return ErrNotInitialized
	}
	s.time += sim.ClampDelta(elapsedMs) * 60

	if s.needsRealloc {
		if err := s.reallocAgents(); err != nil {
			return err
		}
	}
	if s.needsReset {
		if err := s.Reset(); err != nil {
			return err
		}
	}

	if s.pressed {
		species := s.cfg.MousePlaceColor
		if s.cfg.SpeciesCount == 1 {
			species = s.cfg.SingleTeam
		}
		s.spawn.Place(s.pointer, s.cfg.MousePlaceRadius, s.cfg.MousePlaceAmount, species, s.rng)
		s.activeCells = min(s.MaxCells(), s.activeCells+s.cfg.MousePlaceAmount)
	}
	if err := s.flushSpawn(); err != nil {
		return err
	}
	s.syncUniforms()

	a, v := s.agents, s.view

	s.timer.StartPhase(PassUpdate)
	if err := a.state.Step(s.update, uAgents, gpu.Uniforms{
		uTrail:     v.trail.Current(),
		uOccupancy: v.dots,
		uSpawn:     a.spawn,
	}); err != nil {
		return err
	}
	s.spawn.Clear()

	s.timer.StartPhase(PassRaster)
	if err := s.dev.Clear(v.dots, mgl32.Vec4{}); err != nil {
		return err
	}
	if err := a.raster.Execute(v.dots, gpu.Uniforms{uAgents: a.state.Current()}); err != nil {
		return err
	}

	s.timer.StartPhase(PassDiffuse)
	if err := v.trail.Step(s.diffuse, uTrail, gpu.Uniforms{uDeposit: v.dots}); err != nil {
		return err
	}

	s.timer.StartPhase(PassComposite)
	if err := s.composite.Execute(v.scene, gpu.Uniforms{
		uTrail:   v.trail.Current(),
		uDeposit: v.dots,
	}); err != nil {
		return err
	}

	if s.cfg.SobelFilter {
		s.timer.StartPhase(PassSobel)
		if err := s.sobel.Execute(v.edges, gpu.Uniforms{uScene: v.scene}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) flushSpawn() error {
	if !s.spawn.Dirty() {
		return nil
	}
	if err := s.dev.Upload(s.agents.spawn, s.spawn.Data()); err != nil {
		return fmt.Errorf("uploading spawn buffer: %w", err)
	}
	s.spawn.MarkClean()
	return nil
}

// syncUniforms pushes the current settings into the stage bindings.
func (s *Simulation) syncUniforms() {
	c := &s.cfg
	res := mgl32.Vec2{float32(s.view.w), float32(s.view.h)}
	n := float32(s.agents.n)

	var infectious mgl32.Vec3
	if c.SpeciesCount > 1 {
		for i, on := range c.Infectious {
			if on {
				infectious[i] = 1
			}
		}
	}

	u := s.update
	u.SetParameter(uResolution, res)
	u.SetParameter(uAgentTexSize, mgl32.Vec2{n, n})
	u.SetParameter(uTime, s.time)
	u.SetParameter(uPointer, s.pointer)
	u.SetParameter(uPointerRadius, c.MouseRadius)
	u.SetParameter(uPointerPush, c.MousePush)
	u.SetParameter(uRestrictToMiddle, c.RestrictToMiddle)
	u.SetParameter(uDisplacement, c.Displacement)
	u.SetParameter(uMoveSpeed, mgl32.Vec3(c.MoveSpeed))
	u.SetParameter(uSensorDistance, mgl32.Vec3(c.SensorDistance))
	u.SetParameter(uSensorAngle, mgl32.Vec3(c.SensorAngle))
	u.SetParameter(uRotationAngle, mgl32.Vec3(c.RotationAngle))
	u.SetParameter(uAttract, []mgl32.Vec3{c.Attract[0], c.Attract[1], c.Attract[2]})
	u.SetParameter(uInfectious, infectious)

	half := res.Mul(0.5)
	s.agents.raster.SetParameter(uProjection, mgl32.Ortho2D(-half[0], half[0], -half[1], half[1]))
	s.agents.raster.SetParameter(uDotSize, mgl32.Vec3(c.DotSize))

	s.diffuse.SetParameter(uResolution, res)
	s.diffuse.SetParameter(uDecay, c.Decay)

	s.composite.SetParameter(uResolution, res)
	s.composite.SetParameter(uMonochrome, c.Monochrome)
	s.composite.SetParameter(uTrailOpacity, c.TrailOpacity)
	s.composite.SetParameter(uDotOpacity, c.DotOpacity)
	s.composite.SetParameter(uFlatShading, c.FlatShading)
	s.composite.SetParameter(uColorThreshold, c.ColorThreshold)
	s.composite.SetParameter(uColors, s.colors[:])

	s.sobel.SetParameter(uResolution, res)
}

func (s *Simulation) refreshColors() {
	for i, c := range s.cfg.Colors {
		if col, err := palette.ParseColor(c); err == nil {
			s.colors[i] = col
		}
	}
}

// Frame returns the last rendered frame.
func (s *Simulation) Frame() gpu.Surface {
	if s.view == nil {
		return nil
	}
	if s.cfg.SobelFilter {
		return s.view.edges
	}
	return s.view.scene
}

// SetParameter stores a setting for the next step.
func (s *Simulation) SetParameter(name string, value any) error {
	return s.params.Set(name, value)
}

func (s *Simulation) Parameter(name string) (any, error) {
	return s.params.Get(name)
}

func (s *Simulation) Params() []sim.Param {
	return s.params.Params()
}

// Config returns a copy of the current settings.
func (s *Simulation) Config() config.PhysarumConfig {
	return s.cfg
}

// CellCount is the number of agents believed active, saturating at capacity.
func (s *Simulation) CellCount() int {
	return s.activeCells
}

// MaxCells is the agent capacity.
func (s *Simulation) MaxCells() int {
	if s.agents == nil {
		return s.cfg.ParticleWidth * s.cfg.ParticleWidth
	}
	return s.agents.n * s.agents.n
}

// Census reads the agent surface back and counts agents by state.
func (s *Simulation) Census() (sim.Census, error) {
	if !s.ready {
		return sim.Census{}, ErrNotInitialized
	}
	data, err := s.dev.Download(s.agents.state.Current())
	if err != nil {
		return sim.Census{}, fmt.Errorf("reading agent state: %w", err)
	}
	c := sim.Census{Capacity: len(data) / 4}
	for i := 0; i < len(data); i += 4 {
		a := Agent{Species: data[i+3]}
		if !a.Active() {
			c.Inactive++
			continue
		}
		c.Active++
		c.Species[a.Team()]++
	}
	return c, nil
}

// Dispose releases every device resource. It is idempotent.
func (s *Simulation) Dispose() {
	s.agents.release()
	s.view.release()
	s.agents, s.view = nil, nil
	for _, st := range []*gpu.Stage{s.update, s.diffuse, s.composite, s.sobel} {
		st.Release()
	}
	s.update, s.diffuse, s.composite, s.sobel = nil, nil, nil, nil
	if s.ready {
		s.log.Info("disposed")
	}
	s.ready = false
}
