// Package app is the window shell: it drives the active simulation from
// the raylib frame loop, forwards input, and presents the result.
package app

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/config"
	"github.com/pthm-cable/slimefield/gpu/glgpu"
	"github.com/pthm-cable/slimefield/metaballs"
	"github.com/pthm-cable/slimefield/physarum"
	"github.com/pthm-cable/slimefield/sim"
	"github.com/pthm-cable/slimefield/telemetry"
	"github.com/pthm-cable/slimefield/ui"
)

// Options holds the command-line settings for an App.
type Options struct {
	Seed       uint64
	Simulation string // overrides screen.simulation when set
	LogStats   bool
	OutputDir  string
	MaxFrames  int
}

// timedSim is implemented by simulations that report pass boundaries.
type timedSim interface {
	SetPhaseTimer(sim.PhaseTimer)
}

// App holds the shell state.
type App struct {
	cfg  *config.Config
	dev  *glgpu.Device
	sims *Switcher

	hud   *ui.HUD
	panel *ui.Panel

	perf     *telemetry.PerfCollector
	lastPerf *telemetry.PerfStats
	pop      *telemetry.PopulationSampler
	output   *telemetry.OutputManager
	logStats bool

	frame       int
	maxFrames   int
	paused      bool
	pointerDown bool
	lastStep    time.Time
	failed      error // last step error; stepping halts until reset

	log *slog.Logger
}

// New builds the shell on the current window. The window and its GL
// context must already exist.
func New(cfg *config.Config, opts Options) (*App, error) {
	dev, err := glgpu.New()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		dev:       dev,
		hud:       ui.NewHUD(),
		panel:     ui.NewPanel(360),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		pop:       telemetry.NewPopulationSampler(cfg.Telemetry.PopulationInterval),
		logStats:  opts.LogStats,
		maxFrames: opts.MaxFrames,
		log:       slog.Default().With("component", "app"),
	}

	phys, err := physarum.New(dev, cfg.Physarum, rand.New(rand.NewPCG(opts.Seed, 1)))
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("physarum: %w", err)
	}
	balls, err := metaballs.New(dev, cfg.Metaballs, rand.New(rand.NewPCG(opts.Seed, 2)))
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("metaballs: %w", err)
	}
	for _, s := range []timedSim{phys, balls} {
		s.SetPhaseTimer(a.perf)
	}

	a.sims = NewSwitcher(rl.GetScreenWidth(), rl.GetScreenHeight(), phys, balls)

	a.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		a.sims.Dispose()
		dev.Close()
		return nil, err
	}
	if err := a.output.WriteConfig(cfg); err != nil {
		a.log.Error("failed to write config snapshot", "error", err)
	}

	start := cfg.Screen.Simulation
	if opts.Simulation != "" {
		start = opts.Simulation
	}
	if err := a.sims.Activate(start); err != nil {
		if !unsupported(err) {
			a.Unload()
			return nil, err
		}
		a.log.Warn("simulation unavailable", "sim", start, "error", err)
	}
	a.lastStep = time.Now()
	return a, nil
}

// Run drives the frame loop until the window closes or the frame limit
// is reached.
func (a *App) Run() {
	for !rl.WindowShouldClose() {
		a.Update()
		a.Draw()

		if a.maxFrames > 0 && a.frame >= a.maxFrames {
			a.log.Info("max frames reached", "frame", a.frame)
			return
		}
	}
}

// Update handles input and steps the active simulation.
func (a *App) Update() {
	a.handleInput()
	a.handlePointer()

	now := time.Now()
	elapsed := float64(now.Sub(a.lastStep)) / float64(time.Millisecond)
	a.lastStep = now
	if a.paused || a.failed != nil || !a.sims.Ready() {
		return
	}

	a.perf.StartFrame()
	err := a.sims.Step(elapsed)
	a.perf.EndFrame()
	if err != nil {
		a.failed = err
		a.log.Error("step failed", "sim", a.sims.Active().Name(), "frame", a.frame, "error", err)
		return
	}
	a.frame++
	a.flushTelemetry()
}

// Draw presents the active frame and draws the overlays.
func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	if frame := a.sims.Frame(); frame != nil {
		rl.DrawRenderBatchActive()
		if err := a.dev.Present(frame, rl.GetRenderWidth(), rl.GetRenderHeight()); err != nil {
			a.log.Error("present failed", "error", err)
		}
	}

	w, h := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	a.hud.Draw(a.hudData())
	if err := a.statusError(); err != nil {
		rl.DrawText(err.Error(), 10, h/2, 18, rl.Red)
	}
	if a.panel.Draw(a.sims.Active(), w, h) {
		a.reset()
	}
	if !a.panel.IsVisible() {
		a.hud.DrawControls(h, "[Tab] switch  [R] reset  [X] randomize  [Space] pause  [H] panel  [F11] fullscreen")
	}

	rl.EndDrawing()
}

func (a *App) statusError() error {
	if err := a.sims.Err(); err != nil {
		return err
	}
	return a.failed
}

// cellCounter is implemented by simulations with a live agent count.
type cellCounter interface {
	CellCount() int
	MaxCells() int
}

func (a *App) hudData() ui.HUDData {
	active := a.sims.Active()
	d := ui.HUDData{
		Simulation: active.Name(),
		FPS:        rl.GetFPS(),
		Frame:      a.frame,
		Paused:     a.paused,
	}
	if c, ok := active.(cellCounter); ok {
		if show, _ := active.Parameter("show_cell_count"); show == true {
			d.ShowCells = true
			d.Cells = c.CellCount()
			d.MaxCells = c.MaxCells()
		}
	}
	if a.logStats {
		d.Perf = a.lastPerf
	}
	return d
}

// randomizer is implemented by simulations with random species presets.
type randomizer interface {
	RandomizeSpecies(i int)
}

// randomize draws new steering parameters for every species of the
// active simulation, when it has species.
func (a *App) randomize() {
	r, ok := a.sims.Active().(randomizer)
	if !ok {
		return
	}
	r.RandomizeSpecies(-1)
	a.log.Info("randomized species", "sim", a.sims.Active().Name())
}

// reset resets the active simulation and clears a halted step error.
func (a *App) reset() {
	if err := a.sims.Reset(); err != nil {
		a.log.Error("reset failed", "sim", a.sims.Active().Name(), "error", err)
		return
	}
	a.failed = nil
}

// switchSim activates the next simulation with a fresh perf window.
func (a *App) switchSim() {
	if err := a.sims.Next(); err != nil {
		a.log.Warn("simulation unavailable", "sim", a.sims.Active().Name(), "error", err)
	}
	a.perf = telemetry.NewPerfCollector(a.cfg.Telemetry.PerfWindow)
	a.sims.Each(func(s sim.Simulation) {
		if t, ok := s.(timedSim); ok {
			t.SetPhaseTimer(a.perf)
		}
	})
	a.lastPerf = nil
	a.failed = nil
	a.pointerDown = false
	a.log.Info("switched simulation", "sim", a.sims.Active().Name())
}

// Unload releases the simulations, the device and the output files.
func (a *App) Unload() {
	a.sims.Dispose()
	a.dev.Close()
	if err := a.output.Close(); err != nil {
		a.log.Error("failed to close output", "error", err)
	}
}

// Active returns the name of the active simulation.
func (a *App) Active() string {
	return a.sims.Active().Name()
}

// Frame returns the number of frames stepped.
func (a *App) Frame() int {
	return a.frame
}

// normalizePointer maps a window position to [0,1] with the origin at
// the top-left.
func normalizePointer(pos rl.Vector2, w, h int) mgl32.Vec2 {
	if w <= 0 || h <= 0 {
		return mgl32.Vec2{}
	}
	return mgl32.Vec2{pos.X / float32(w), pos.Y / float32(h)}
}
