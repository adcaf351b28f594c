package glgpu

import (
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
)

// maxSamplers is the number of texture units a single pass may bind.
const maxSamplers = 4

type surface struct {
	tex, fbo uint32
	w, h     int
	released bool
}

func newSurface(w, h int, seed []float32) (*surface, error) {
	s := &surface{w: w, h: h}
	gl.GenTextures(1, &s.tex)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, s.tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	drainErrors()
	if seed != nil {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(w), int32(h), 0, gl.RGBA, gl.FLOAT, gl.Ptr(seed))
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(w), int32(h), 0, gl.RGBA, gl.FLOAT, nil)
	}
	if code := gl.GetError(); code != gl.NO_ERROR {
		s.Release()
		return nil, fmt.Errorf("glgpu: texture %dx%d: GL error 0x%x: %w", w, h, code, gpu.ErrAllocation)
	}

	gl.GenFramebuffers(1, &s.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, s.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, s.tex, 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		s.Release()
		return nil, fmt.Errorf("glgpu: framebuffer %dx%d incomplete (0x%x): %w", w, h, status, gpu.ErrAllocation)
	}
	if seed == nil {
		s.clear(mgl32.Vec4{})
	}
	return s, nil
}

func drainErrors() {
	for range 16 {
		if gl.GetError() == gl.NO_ERROR {
			return
		}
	}
}

func (s *surface) Size() (w, h int) {
	return s.w, s.h
}

func (s *surface) Release() {
	if s.released {
		return
	}
	s.released = true
	if s.fbo != 0 {
		gl.DeleteFramebuffers(1, &s.fbo)
		s.fbo = 0
	}
	if s.tex != 0 {
		gl.DeleteTextures(1, &s.tex)
		s.tex = 0
	}
}

func (s *surface) clear(c mgl32.Vec4) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, s.fbo)
	gl.Viewport(0, 0, int32(s.w), int32(s.h))
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func surfaceOf(s gpu.Surface) (*surface, error) {
	ss, ok := s.(*surface)
	if !ok {
		return nil, fmt.Errorf("glgpu: foreign surface %T", s)
	}
	if ss.released {
		return nil, gpu.ErrReleased
	}
	return ss, nil
}

type program struct {
	name     string
	id       uint32
	points   bool
	locs     map[string]int32
	released bool
}

func (p *program) Name() string {
	return p.name
}

func (p *program) Release() {
	if p.released {
		return
	}
	p.released = true
	gl.DeleteProgram(p.id)
}

func (p *program) location(name string) int32 {
	if loc, ok := p.locs[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locs[name] = loc
	return loc
}

// setUniforms uploads u to the bound program. Names the linker dropped
// are skipped.
func (p *program) setUniforms(u gpu.Uniforms) error {
	if p.released {
		return gpu.ErrReleased
	}
	unit := int32(0)
	for name, v := range u {
		loc := p.location(name)
		if loc < 0 {
			continue
		}
		switch v := v.(type) {
		case float32:
			gl.Uniform1f(loc, v)
		case int32:
			gl.Uniform1i(loc, v)
		case bool:
			gl.Uniform1i(loc, boolInt(v))
		case mgl32.Vec2:
			gl.Uniform2f(loc, v[0], v[1])
		case mgl32.Vec3:
			gl.Uniform3f(loc, v[0], v[1], v[2])
		case mgl32.Vec4:
			gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
		case mgl32.Mat4:
			gl.UniformMatrix4fv(loc, 1, false, &v[0])
		case []float32:
			if len(v) > 0 {
				gl.Uniform1fv(loc, int32(len(v)), &v[0])
			}
		case []mgl32.Vec3:
			if len(v) > 0 {
				gl.Uniform3fv(loc, int32(len(v)), &v[0][0])
			}
		case []mgl32.Vec4:
			if len(v) > 0 {
				gl.Uniform4fv(loc, int32(len(v)), &v[0][0])
			}
		case gpu.Surface:
			s, err := surfaceOf(v)
			if err != nil {
				return fmt.Errorf("glgpu: %s.%s: %w", p.name, name, err)
			}
			if unit >= maxSamplers {
				return fmt.Errorf("glgpu: %s binds more than %d textures", p.name, maxSamplers)
			}
			gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
			gl.BindTexture(gl.TEXTURE_2D, s.tex)
			gl.Uniform1i(loc, unit)
			unit++
		default:
			return gpu.CheckValue(name, v)
		}
	}
	return nil
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

type mesh struct {
	vao      uint32
	vbos     []uint32
	count    int
	released bool
}

func newMesh(attrs []gpu.Attribute) *mesh {
	m := &mesh{count: attrs[0].Vertices(), vbos: make([]uint32, len(attrs))}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)
	gl.GenBuffers(int32(len(attrs)), &m.vbos[0])
	for i, a := range attrs {
		gl.BindBuffer(gl.ARRAY_BUFFER, m.vbos[i])
		if len(a.Data) > 0 {
			gl.BufferData(gl.ARRAY_BUFFER, len(a.Data)*4, gl.Ptr(a.Data), gl.STATIC_DRAW)
		}
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointerWithOffset(uint32(i), int32(a.Size), gl.FLOAT, false, 0, 0)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return m
}

func (m *mesh) Count() int {
	return m.count
}

func (m *mesh) Release() {
	if m.released {
		return
	}
	m.released = true
	gl.DeleteBuffers(int32(len(m.vbos)), &m.vbos[0])
	gl.DeleteVertexArrays(1, &m.vao)
}
