// Package metaballs renders a field of bouncing disks as an iso-surface.
// The scalar field is evaluated per texel, contoured with marching squares
// and optionally bloomed.
package metaballs

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
var ErrNotInitialized = errors.New("metaballs: not initialized")

// Name identifies the simulation.
const Name = "metaballs"

// viewSet is everything sized by the viewport and the grid size.
type viewSet struct {
	w, h   int
	fw, fh int
	field  gpu.Surface
	scene  gpu.Surface
	final  gpu.Surface
	bloom  *gpu.PingPong
}

func (v *viewSet) release() {
	if v == nil {
		return
	}
	v.bloom.Release()
	for _, s := range []gpu.Surface{v.field, v.scene, v.final} {
		if s != nil {
			s.Release()
		}
	}
}

// Simulation drives the metaballs passes: field (only when the balls
// changed), contour, then bloom mask, two blur passes and overlay.
type Simulation struct {
	dev    gpu.Device
	cfg    config.MetaballsConfig
	params *sim.Registry
	rng    *rand.Rand
	timer  sim.PhaseTimer
	log    *slog.Logger

	blob, bg mgl32.Vec3
	pal      palette.Palette

	balls   BallList
	pointer mgl32.Vec2
	pressed bool
	clicks  []mgl32.Vec2

	view  *viewSet
	frame gpu.Surface

	field, contour, mask, blur, overlay *gpu.Stage

	fieldDirty   bool
	needsReset   bool
	needsRealloc bool
	ready        bool
}

// New creates an uninitialized simulation. cfg is copied.
func New(dev gpu.Device, cfg config.MetaballsConfig, rng *rand.Rand) (*Simulation, error) {
	s := &Simulation{
		dev:   dev,
		cfg:   cfg,
		rng:   rng,
		timer: sim.NopTimer{},
		log:   slog.Default().With("component", Name),
	}
	var err error
	if s.blob, err = palette.ParseColor(cfg.BlobColor); err != nil {
		return nil, fmt.Errorf("metaballs blob_color: %w", err)
	}
	if s.bg, err = palette.ParseColor(cfg.Background); err != nil {
		return nil, fmt.Errorf("metaballs background: %w", err)
	}
	s.pal, _ = palette.Lookup(cfg.Palette)
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

// Init compiles the passes, allocates the surfaces and scatters the balls.
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

	stages := []struct {
		dst  **gpu.Stage
		spec gpu.ProgramSpec
	}{
		{&s.field, fieldProgram},
		{&s.contour, contourProgram},
		{&s.mask, bloomMaskProgram},
		{&s.blur, blurProgram},
		{&s.overlay, overlayProgram},
	}
	for _, st := range stages {
		stage, err := gpu.NewStage(s.dev, st.spec, nil)
		if err != nil {
			return false, s.fail(err)
		}
		*st.dst = stage
	}
	s.blur.SetParameter(uWeights, blurWeights)

	view, err := s.allocView(w, h, s.cfg.GridSize)
	if err != nil {
		return false, s.fail(err)
	}
	s.view = view
	s.frame = view.scene
	s.ready = true

	if err := s.Reset(); err != nil {
		return false, s.fail(err)
	}
	s.log.Info("initialized", "width", w, "height", h, "field_width", view.fw, "field_height", view.fh)
	return true, nil
}

func (s *Simulation) fail(err error) error {
	s.Dispose()
	return fmt.Errorf("metaballs init: %w", err)
}

func (s *Simulation) allocView(w, h, grid int) (*viewSet, error) {
	fw, fh := FieldSize(grid, w, h)
	v := &viewSet{w: w, h: h, fw: fw, fh: fh}
	var err error
	if v.field, err = s.dev.NewSurface(fw, fh, gpu.RGBA32F, nil); err != nil {
		return nil, fmt.Errorf("scalar field %dx%d: %w", fw, fh, err)
	}
	for _, dst := range []*gpu.Surface{&v.scene, &v.final} {
		if *dst, err = s.dev.NewSurface(w, h, gpu.RGBA32F, nil); err != nil {
			v.release()
			return nil, fmt.Errorf("view surface %dx%d: %w", w, h, err)
		}
	}
	bw, bh := max(1, w/2), max(1, h/2)
	if v.bloom, err = gpu.NewPingPong(s.dev, bw, bh, gpu.RGBA32F, nil); err != nil {
		v.release()
		return nil, fmt.Errorf("bloom buffers %dx%d: %w", bw, bh, err)
	}
	return v, nil
}

// swapView installs next and releases the previous surfaces.
func (s *Simulation) swapView(next *viewSet) {
	s.view.release()
	s.view = next
	s.frame = next.scene
	s.fieldDirty = true
}

// Reset scatters a fresh set of balls.
func (s *Simulation) Reset() error {
	if !s.ready {
		return ErrNotInitialized
	}
	s.balls.Reset(s.cfg.BallCount, s.view.w, s.view.h, s.rng)
	s.clicks = s.clicks[:0]
	s.fieldDirty = true
	s.needsReset = false
	s.log.Info("reset", "balls", s.balls.Len())
	return nil
}

// Resize reallocates the viewport-sized surfaces and the scalar field.
// Balls keep their positions and bounce back inside on the next tick.
func (s *Simulation) Resize(w, h int) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if w == s.view.w && h == s.view.h {
		return nil
	}
	next, err := s.allocView(w, h, s.cfg.GridSize)
	if err != nil {
		return fmt.Errorf("metaballs resize: %w", err)
	}
	s.swapView(next)
	s.log.Info("resized", "width", w, "height", h, "field_width", next.fw, "field_height", next.fh)
	return nil
}

// reallocField rebuilds the surfaces for a new grid size.
func (s *Simulation) reallocField() error {
	s.needsRealloc = false
	next, err := s.allocView(s.view.w, s.view.h, s.cfg.GridSize)
	if err != nil {
		want := s.cfg.GridSize
		s.cfg.GridSize = min(s.view.fw, s.view.fh)
		return fmt.Errorf("metaballs grid %d: %w", want, err)
	}
	s.swapView(next)
	return nil
}

// OnPointerEvent queues a ball on each press edge.
func (s *Simulation) OnPointerEvent(pos mgl32.Vec2, pressed bool) {
	if s.view == nil {
		return
	}
	s.pointer = sim.PointerToWorld(pos, s.view.w, s.view.h)
	if pressed && !s.pressed {
		s.clicks = append(s.clicks, s.pointer)
	}
	s.pressed = pressed
}

// Step advances the balls and renders one frame.
func (s *Simulation) Step(elapsedMs float64) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if s.needsRealloc {
		if err := s.reallocField(); err != nil {
			return err
		}
	}
	if s.needsReset {
		if err := s.Reset(); err != nil {
			return err
		}
	}

	if s.cfg.Click.AddOnClick {
		for _, p := range s.clicks {
			if s.balls.Add(ClickBall(p, s.cfg.Click, s.rng), s.cfg.Click.ReplaceOldest) {
				s.fieldDirty = true
			}
		}
	}
	s.clicks = s.clicks[:0]

	var dt float32
	if s.cfg.Animate {
		dt = sim.ClampDelta(elapsedMs) * s.cfg.Speed
	}
	v := s.view
	if s.balls.Tick(dt, v.w, v.h) {
		s.fieldDirty = true
	}
	s.syncUniforms()

	if s.fieldDirty {
		s.timer.StartPhase(PassField)
		if err := s.field.Execute(v.field, nil); err != nil {
			return err
		}
		s.fieldDirty = false
	}

	s.timer.StartPhase(PassContour)
	if err := s.contour.Execute(v.scene, gpu.Uniforms{uField: v.field}); err != nil {
		return err
	}
	s.frame = v.scene
	if !s.cfg.Bloom.Enabled {
		return nil
	}

	s.timer.StartPhase(PassBloomMask)
	if err := s.mask.Execute(v.bloom.Next(), gpu.Uniforms{uField: v.field}); err != nil {
		return err
	}
	v.bloom.Swap()

	s.timer.StartPhase(PassBlur)
	for _, dir := range []mgl32.Vec2{{1, 0}, {0, 1}} {
		if err := v.bloom.Step(s.blur, uSource, gpu.Uniforms{uDirection: dir}); err != nil {
			return err
		}
	}

	s.timer.StartPhase(PassOverlay)
	if err := s.overlay.Execute(v.final, gpu.Uniforms{
		uScene: v.scene,
		uBloom: v.bloom.Current(),
	}); err != nil {
		return err
	}
	s.frame = v.final
	return nil
}

// syncUniforms pushes the current settings into the stage bindings.
func (s *Simulation) syncUniforms() {
	c := &s.cfg
	v := s.view
	res := mgl32.Vec2{float32(v.w), float32(v.h)}
	fs := mgl32.Vec2{float32(v.fw), float32(v.fh)}
	bw, bh := v.bloom.Size()

	s.field.SetParameter(uWorldSize, res)
	s.field.SetParameter(uFieldSize, fs)
	s.field.SetParameter(uBalls, s.balls.Uniforms())
	s.field.SetParameter(uBallCount, int32(s.balls.Len()))

	for _, st := range []*gpu.Stage{s.contour, s.mask} {
		st.SetParameter(uFieldSize, fs)
		st.SetParameter(uThreshold, c.Threshold)
		st.SetParameter(uSoftness, c.Softness)
		st.SetParameter(uLineWidthPx, c.LineWidthPx)
		st.SetParameter(uShowContours, c.ShowContours)
		st.SetParameter(uPaletteMode, c.ColorMode == config.ColorModePalette)
		st.SetParameter(uPaletteBg, c.UsePaletteBackground)
		st.SetParameter(uPalette, s.pal.Colors[:])
		st.SetParameter(uBlobColor, s.blob)
		st.SetParameter(uBgColor, s.bg)
	}
	s.contour.SetParameter(uResolution, res)
	s.mask.SetParameter(uResolution, mgl32.Vec2{float32(bw), float32(bh)})
	s.mask.SetParameter(uShowContours, false)
	s.mask.SetParameter(uBloomThreshold, c.Bloom.Threshold)

	s.blur.SetParameter(uResolution, mgl32.Vec2{float32(bw), float32(bh)})
	s.blur.SetParameter(uSpread, BloomSpread(c.Bloom.Radius))

	s.overlay.SetParameter(uResolution, res)
	s.overlay.SetParameter(uStrength, c.Bloom.Strength)
}

func (s *Simulation) refreshColors() {
	if col, err := palette.ParseColor(s.cfg.BlobColor); err == nil {
		s.blob = col
	}
	if col, err := palette.ParseColor(s.cfg.Background); err == nil {
		s.bg = col
	}
	s.pal, _ = palette.Lookup(s.cfg.Palette)
}

// Frame returns the last rendered frame.
func (s *Simulation) Frame() gpu.Surface {
	if s.view == nil {
		return nil
	}
	return s.frame
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
func (s *Simulation) Config() config.MetaballsConfig {
	return s.cfg
}

// Balls returns a copy of the ball list, oldest first.
func (s *Simulation) Balls() []Ball {
	return append([]Ball(nil), s.balls.Balls()...)
}

// FieldSize returns the scalar field dimensions.
func (s *Simulation) FieldSize() (w, h int) {
	if s.view == nil {
		return 0, 0
	}
	return s.view.fw, s.view.fh
}

// Dispose releases every device resource. It is idempotent.
func (s *Simulation) Dispose() {
	s.view.release()
	s.view, s.frame = nil, nil
	for _, st := range []*gpu.Stage{s.field, s.contour, s.mask, s.blur, s.overlay} {
		st.Release()
	}
	s.field, s.contour, s.mask, s.blur, s.overlay = nil, nil, nil, nil, nil
	if s.ready {
		s.log.Info("disposed")
	}
	s.ready = false
}
