package gpu

import "github.com/go-gl/mathgl/mgl32"

// FragmentKernel computes one output texel. fragCoord is the texel centre
// in target pixels, (x+0.5, y+0.5), matching gl_FragCoord.
type FragmentKernel func(env *Env, fragCoord mgl32.Vec2) mgl32.Vec4

// PointKernel positions one vertex of a point pass.
type PointKernel func(env *Env, in VertexInput) Vertex

// Vertex is the output of a PointKernel. Position is in clip space.
type Vertex struct {
	Position mgl32.Vec4
	Size     float32
	Color    mgl32.Vec4
}

// VertexInput exposes the attributes of one vertex.
type VertexInput struct {
	Index int
	attrs []Attribute
}

// NewVertexInput binds vertex index i of attrs.
func NewVertexInput(i int, attrs []Attribute) VertexInput {
	return VertexInput{Index: i, attrs: attrs}
}

// Vec2 reads a two-component attribute; missing components are zero.
func (in VertexInput) Vec2(name string) mgl32.Vec2 {
	for _, a := range in.attrs {
		if a.Name != name {
			continue
		}
		var v mgl32.Vec2
		base := in.Index * a.Size
		for c := 0; c < a.Size && c < 2; c++ {
			v[c] = a.Data[base+c]
		}
		return v
	}
	return mgl32.Vec2{}
}

// Env is the uniform environment a kernel runs in. Unset uniforms read as
// zero values, as they do in GLSL.
type Env struct {
	u Uniforms
}

// NewEnv wraps a uniform set for kernel execution.
func NewEnv(u Uniforms) *Env {
	return &Env{u: u}
}

func (e *Env) Float(name string) float32 {
	v, _ := e.u[name].(float32)
	return v
}

func (e *Env) Int(name string) int32 {
	v, _ := e.u[name].(int32)
	return v
}

func (e *Env) Bool(name string) bool {
	v, _ := e.u[name].(bool)
	return v
}

func (e *Env) Vec2(name string) mgl32.Vec2 {
	v, _ := e.u[name].(mgl32.Vec2)
	return v
}

func (e *Env) Vec3(name string) mgl32.Vec3 {
	v, _ := e.u[name].(mgl32.Vec3)
	return v
}

func (e *Env) Vec4(name string) mgl32.Vec4 {
	v, _ := e.u[name].(mgl32.Vec4)
	return v
}

func (e *Env) Mat4(name string) mgl32.Mat4 {
	v, _ := e.u[name].(mgl32.Mat4)
	return v
}

func (e *Env) Floats(name string) []float32 {
	v, _ := e.u[name].([]float32)
	return v
}

func (e *Env) Vec3s(name string) []mgl32.Vec3 {
	v, _ := e.u[name].([]mgl32.Vec3)
	return v
}

func (e *Env) Vec4s(name string) []mgl32.Vec4 {
	v, _ := e.u[name].([]mgl32.Vec4)
	return v
}

// Texture returns the sampler bound to name, or nil when the bound surface
// cannot be read on the CPU.
func (e *Env) Texture(name string) Sampler {
	s, _ := e.u[name].(Sampler)
	return s
}
