// Package softgpu is a reference gpu.Device that runs each program's Go
// kernel once per texel. It exists for tests and offline inspection.
package softgpu

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
)

// Device executes programs on the CPU.
type Device struct {
	caps  gpu.Capabilities
	trace []string
}

// New returns a device that reports full capabilities.
func New() *Device {
	return &Device{caps: gpu.Capabilities{
		Renderer:           "softgpu",
		Version:            "reference",
		ShaderLevel:        gpu.MinShaderLevel,
		FloatRenderTargets: true,
		MaxTextureSize:     8192,
	}}
}

// NewWithCapabilities returns a device that reports caps.
func NewWithCapabilities(caps gpu.Capabilities) *Device {
	return &Device{caps: caps}
}

func (d *Device) Capabilities() gpu.Capabilities {
	return d.caps
}

// Trace returns the names of the programs drawn so far, in order.
func (d *Device) Trace() []string {
	return d.trace
}

// ResetTrace clears the draw log.
func (d *Device) ResetTrace() {
	d.trace = d.trace[:0]
}

// Surface is a CPU texel buffer.
type Surface struct {
	w, h     int
	pix      []float32
	released bool
}

func (s *Surface) Size() (w, h int) {
	return s.w, s.h
}

// Texel returns the texel at (x, y), clamped to the edges.
func (s *Surface) Texel(x, y int) mgl32.Vec4 {
	x = max(0, min(s.w-1, x))
	y = max(0, min(s.h-1, y))
	i := (y*s.w + x) * 4
	return mgl32.Vec4{s.pix[i], s.pix[i+1], s.pix[i+2], s.pix[i+3]}
}

func (s *Surface) set(x, y int, v mgl32.Vec4) {
	i := (y*s.w + x) * 4
	copy(s.pix[i:i+4], v[:])
}

func (s *Surface) Release() {
	s.released = true
	s.pix = nil
}

func (d *Device) surface(s gpu.Surface) (*Surface, error) {
	ss, ok := s.(*Surface)
	if !ok {
		return nil, fmt.Errorf("softgpu: foreign surface %T", s)
	}
	if ss.released {
		return nil, fmt.Errorf("softgpu: %w", gpu.ErrReleased)
	}
	return ss, nil
}

func (d *Device) NewSurface(w, h int, format gpu.Format, seed []float32) (gpu.Surface, error) {
	if format != gpu.RGBA32F {
		return nil, fmt.Errorf("softgpu: format %d: %w", format, gpu.ErrUnsupported)
	}
	if w <= 0 || h <= 0 || w > d.caps.MaxTextureSize || h > d.caps.MaxTextureSize {
		return nil, fmt.Errorf("softgpu: surface %dx%d: %w", w, h, gpu.ErrAllocation)
	}
	s := &Surface{w: w, h: h, pix: make([]float32, gpu.TexelCount(w, h, format))}
	if seed != nil {
		if err := d.Upload(s, seed); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (d *Device) Upload(s gpu.Surface, data []float32) error {
	ss, err := d.surface(s)
	if err != nil {
		return err
	}
	if len(data) != len(ss.pix) {
		return fmt.Errorf("softgpu: upload of %d floats into %dx%d surface", len(data), ss.w, ss.h)
	}
	copy(ss.pix, data)
	return nil
}

func (d *Device) Download(s gpu.Surface) ([]float32, error) {
	ss, err := d.surface(s)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(ss.pix))
	copy(out, ss.pix)
	return out, nil
}

func (d *Device) Clear(s gpu.Surface, c mgl32.Vec4) error {
	ss, err := d.surface(s)
	if err != nil {
		return err
	}
	for i := 0; i < len(ss.pix); i += 4 {
		copy(ss.pix[i:i+4], c[:])
	}
	return nil
}

type program struct {
	spec gpu.ProgramSpec
}

func (p *program) Name() string { return p.spec.Name }
func (p *program) Release()     {}

func (d *Device) NewProgram(spec gpu.ProgramSpec) (gpu.Program, error) {
	if spec.Shade == nil && spec.Place == nil {
		return nil, fmt.Errorf("softgpu: program %s has no kernel: %w", spec.Name, gpu.ErrUnsupported)
	}
	return &program{spec: spec}, nil
}

type mesh struct {
	attrs []gpu.Attribute
	n     int
}

func (m *mesh) Count() int { return m.n }
func (m *mesh) Release()   {}

func (d *Device) NewMesh(attrs []gpu.Attribute) (gpu.Mesh, error) {
	if len(attrs) == 0 {
		return nil, gpu.ErrMissingVertexData
	}
	return &mesh{attrs: attrs, n: attrs[0].Vertices()}, nil
}

func (d *Device) DrawFullscreen(p gpu.Program, target gpu.Surface, u gpu.Uniforms) error {
	prog, ok := p.(*program)
	if !ok || prog.spec.Shade == nil {
		return fmt.Errorf("softgpu: %s is not a full-screen program", p.Name())
	}
	t, err := d.surface(target)
	if err != nil {
		return err
	}
	d.trace = append(d.trace, prog.spec.Name)
	env := gpu.NewEnv(u)
	for y := 0; y < t.h; y++ {
		for x := 0; x < t.w; x++ {
			fc := mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}
			t.set(x, y, prog.spec.Shade(env, fc))
		}
	}
	return nil
}

// DrawPoints rasterizes each vertex as a square of Size pixels centred on
// its projected position. Later vertices overwrite earlier ones.
func (d *Device) DrawPoints(p gpu.Program, target gpu.Surface, m gpu.Mesh, u gpu.Uniforms) error {
	prog, ok := p.(*program)
	if !ok || prog.spec.Place == nil {
		return fmt.Errorf("softgpu: %s is not a point program", p.Name())
	}
	mm, ok := m.(*mesh)
	if !ok {
		return fmt.Errorf("softgpu: foreign mesh %T", m)
	}
	t, err := d.surface(target)
	if err != nil {
		return err
	}
	d.trace = append(d.trace, prog.spec.Name)
	env := gpu.NewEnv(u)
	for i := 0; i < mm.n; i++ {
		v := prog.spec.Place(env, gpu.NewVertexInput(i, mm.attrs))
		if v.Size <= 0 || v.Position[3] == 0 {
			continue
		}
		ndcX := v.Position[0] / v.Position[3]
		ndcY := v.Position[1] / v.Position[3]
		cx := (ndcX + 1) * 0.5 * float32(t.w)
		cy := (ndcY + 1) * 0.5 * float32(t.h)
		half := v.Size * 0.5
		x0 := int(math.Ceil(float64(cx - half - 0.5)))
		x1 := int(math.Ceil(float64(cx+half-0.5))) - 1
		y0 := int(math.Ceil(float64(cy - half - 0.5)))
		y1 := int(math.Ceil(float64(cy+half-0.5))) - 1
		for y := max(0, y0); y <= min(t.h-1, y1); y++ {
			for x := max(0, x0); x <= min(t.w-1, x1); x++ {
				t.set(x, y, v.Color)
			}
		}
	}
	return nil
}
