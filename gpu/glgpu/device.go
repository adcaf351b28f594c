// Package glgpu runs passes on an OpenGL 3.3 core context. The context
// belongs to the window; every draw saves the bindings it touches and
// restores them afterwards so the window's own renderer is unaffected.
package glgpu

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
)

// Device implements gpu.Device on the current GL context.
type Device struct {
	caps     gpu.Capabilities
	emptyVAO uint32
	present  *program
	log      *slog.Logger
}

// New loads GL entry points for the current context and probes it. A
// context that cannot run the passes is still returned; check
// Capabilities().Sufficient().
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("glgpu: loading GL: %w: %v", gpu.ErrUnsupported, err)
	}
	d := &Device{log: slog.Default().With("component", "glgpu")}
	d.caps = probe()
	d.log.Info("context",
		"renderer", d.caps.Renderer,
		"version", d.caps.Version,
		"shader_level", d.caps.ShaderLevel,
		"float_targets", d.caps.FloatRenderTargets,
		"max_texture", d.caps.MaxTextureSize,
	)
	if !d.caps.Sufficient() {
		return d, nil
	}

	gl.GenVertexArrays(1, &d.emptyVAO)
	p, err := d.NewProgram(gpu.ProgramSpec{Name: "present", FragmentSource: presentFragmentShader})
	if err != nil {
		d.Close()
		return nil, err
	}
	d.present = p.(*program)
	return d, nil
}

func probe() gpu.Capabilities {
	caps := gpu.Capabilities{
		Renderer: gl.GoStr(gl.GetString(gl.RENDERER)),
		Version:  gl.GoStr(gl.GetString(gl.VERSION)),
	}
	caps.ShaderLevel = parseShaderLevel(gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)))
	var maxTex int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTex)
	caps.MaxTextureSize = int(maxTex)

	st := saveState()
	defer st.restore()
	s, err := newSurface(4, 4, nil)
	if err == nil {
		caps.FloatRenderTargets = true
		s.Release()
	}
	return caps
}

func (d *Device) Capabilities() gpu.Capabilities {
	return d.caps
}

// state is the slice of GL state a pass may change.
type state struct {
	fbo, program, vao, buffer, active int32
	textures                          [maxSamplers]int32
	viewport                          [4]int32
	clearColor                        [4]float32
	blend, pointSize                  bool
}

func saveState() state {
	var s state
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &s.fbo)
	gl.GetIntegerv(gl.CURRENT_PROGRAM, &s.program)
	gl.GetIntegerv(gl.VERTEX_ARRAY_BINDING, &s.vao)
	gl.GetIntegerv(gl.ARRAY_BUFFER_BINDING, &s.buffer)
	gl.GetIntegerv(gl.ACTIVE_TEXTURE, &s.active)
	for i := range s.textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.GetIntegerv(gl.TEXTURE_BINDING_2D, &s.textures[i])
	}
	gl.GetIntegerv(gl.VIEWPORT, &s.viewport[0])
	gl.GetFloatv(gl.COLOR_CLEAR_VALUE, &s.clearColor[0])
	s.blend = gl.IsEnabled(gl.BLEND)
	s.pointSize = gl.IsEnabled(gl.PROGRAM_POINT_SIZE)
	gl.ActiveTexture(gl.TEXTURE0)
	return s
}

func (s state) restore() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(s.fbo))
	gl.UseProgram(uint32(s.program))
	gl.BindVertexArray(uint32(s.vao))
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(s.buffer))
	for i, tex := range s.textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	}
	gl.ActiveTexture(uint32(s.active))
	gl.Viewport(s.viewport[0], s.viewport[1], s.viewport[2], s.viewport[3])
	gl.ClearColor(s.clearColor[0], s.clearColor[1], s.clearColor[2], s.clearColor[3])
	setEnabled(gl.BLEND, s.blend)
	setEnabled(gl.PROGRAM_POINT_SIZE, s.pointSize)
}

func setEnabled(cap uint32, on bool) {
	if on {
		gl.Enable(cap)
	} else {
		gl.Disable(cap)
	}
}

func (d *Device) NewSurface(w, h int, format gpu.Format, seed []float32) (gpu.Surface, error) {
	if format != gpu.RGBA32F {
		return nil, fmt.Errorf("glgpu: format %d: %w", format, gpu.ErrUnsupported)
	}
	if w <= 0 || h <= 0 || w > d.caps.MaxTextureSize || h > d.caps.MaxTextureSize {
		return nil, fmt.Errorf("glgpu: surface %dx%d: %w", w, h, gpu.ErrAllocation)
	}
	if seed != nil && len(seed) != gpu.TexelCount(w, h, format) {
		return nil, fmt.Errorf("glgpu: seed of %d floats for %dx%d surface", len(seed), w, h)
	}
	st := saveState()
	defer st.restore()
	return newSurface(w, h, seed)
}

func (d *Device) Upload(s gpu.Surface, data []float32) error {
	ss, err := surfaceOf(s)
	if err != nil {
		return err
	}
	if len(data) != gpu.TexelCount(ss.w, ss.h, gpu.RGBA32F) {
		return fmt.Errorf("glgpu: upload of %d floats into %dx%d surface", len(data), ss.w, ss.h)
	}
	st := saveState()
	defer st.restore()
	gl.BindTexture(gl.TEXTURE_2D, ss.tex)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(ss.w), int32(ss.h), gl.RGBA, gl.FLOAT, gl.Ptr(data))
	return nil
}

func (d *Device) Download(s gpu.Surface) ([]float32, error) {
	ss, err := surfaceOf(s)
	if err != nil {
		return nil, err
	}
	out := make([]float32, gpu.TexelCount(ss.w, ss.h, gpu.RGBA32F))
	st := saveState()
	defer st.restore()
	gl.BindFramebuffer(gl.FRAMEBUFFER, ss.fbo)
	gl.ReadPixels(0, 0, int32(ss.w), int32(ss.h), gl.RGBA, gl.FLOAT, gl.Ptr(out))
	return out, nil
}

func (d *Device) Clear(s gpu.Surface, c mgl32.Vec4) error {
	ss, err := surfaceOf(s)
	if err != nil {
		return err
	}
	st := saveState()
	defer st.restore()
	ss.clear(c)
	return nil
}

func (d *Device) NewProgram(spec gpu.ProgramSpec) (gpu.Program, error) {
	vs := spec.VertexSource
	if vs == "" {
		vs = fullscreenVertexShader
	}
	st := saveState()
	defer st.restore()
	id, err := linkProgram(vs, spec.FragmentSource)
	if err != nil {
		return nil, fmt.Errorf("glgpu: program %s: %w", spec.Name, err)
	}
	return &program{name: spec.Name, id: id, points: spec.Points(), locs: make(map[string]int32)}, nil
}

func (d *Device) NewMesh(attrs []gpu.Attribute) (gpu.Mesh, error) {
	if len(attrs) == 0 || attrs[0].Vertices() == 0 {
		return nil, gpu.ErrMissingVertexData
	}
	st := saveState()
	defer st.restore()
	return newMesh(attrs), nil
}

// bind makes target the render target with a matching viewport.
func bind(target *surface) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, target.fbo)
	gl.Viewport(0, 0, int32(target.w), int32(target.h))
	gl.Disable(gl.BLEND)
}

func (d *Device) DrawFullscreen(p gpu.Program, target gpu.Surface, u gpu.Uniforms) error {
	prog, ok := p.(*program)
	if !ok || prog.points {
		return fmt.Errorf("glgpu: %s is not a full-screen program", p.Name())
	}
	t, err := surfaceOf(target)
	if err != nil {
		return err
	}
	st := saveState()
	defer st.restore()

	bind(t)
	gl.UseProgram(prog.id)
	if err := prog.setUniforms(u); err != nil {
		return err
	}
	gl.BindVertexArray(d.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	return nil
}

func (d *Device) DrawPoints(p gpu.Program, target gpu.Surface, m gpu.Mesh, u gpu.Uniforms) error {
	prog, ok := p.(*program)
	if !ok || !prog.points {
		return fmt.Errorf("glgpu: %s is not a point program", p.Name())
	}
	mm, ok := m.(*mesh)
	if !ok || mm.released {
		return fmt.Errorf("glgpu: unusable mesh %T", m)
	}
	t, err := surfaceOf(target)
	if err != nil {
		return err
	}
	st := saveState()
	defer st.restore()

	bind(t)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.UseProgram(prog.id)
	if err := prog.setUniforms(u); err != nil {
		return err
	}
	gl.BindVertexArray(mm.vao)
	gl.DrawArrays(gl.POINTS, 0, int32(mm.count))
	return nil
}

// Present draws s over the whole default framebuffer of a w×h window.
func (d *Device) Present(s gpu.Surface, w, h int) error {
	if d.present == nil {
		return fmt.Errorf("glgpu: present: %w", gpu.ErrUnsupported)
	}
	ss, err := surfaceOf(s)
	if err != nil {
		return err
	}
	st := saveState()
	defer st.restore()

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(w), int32(h))
	gl.Disable(gl.BLEND)
	gl.UseProgram(d.present.id)
	if err := d.present.setUniforms(gpu.Uniforms{"frame": ss}); err != nil {
		return err
	}
	gl.BindVertexArray(d.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	return nil
}

// Close releases the device's own objects.
func (d *Device) Close() {
	if d.present != nil {
		d.present.Release()
		d.present = nil
	}
	if d.emptyVAO != 0 {
		gl.DeleteVertexArrays(1, &d.emptyVAO)
		d.emptyVAO = 0
	}
}
