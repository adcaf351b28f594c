// Package gpu is the device-neutral pass engine shared by the simulations.
//
// A pass is a Program bound to named uniforms and executed into a Surface.
// Programs carry two bodies: GLSL source for the OpenGL device and a Go
// kernel that computes the same result per texel, which the reference
// device runs. Surfaces are RGBA float32 with the origin at the bottom-left
// texel and nearest, clamp-to-edge sampling.
package gpu

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrUnsupported reports a missing device capability.
	ErrUnsupported = errors.New("gpu: capability not supported")
	// ErrAllocation reports a failed surface or buffer allocation.
	ErrAllocation = errors.New("gpu: allocation failed")
	// ErrMissingVertexData is returned when a point stage is built without vertex attributes.
	ErrMissingVertexData = errors.New("gpu: point stage requires vertex data")
	// ErrFeedbackLoop is returned when a stage would sample the surface it renders into.
	ErrFeedbackLoop = errors.New("gpu: stage samples its own render target")
	// ErrReleased is the panic value for use of a released buffer.
	ErrReleased = errors.New("gpu: buffer used after release")
)

// Format is the texel format of a surface.
type Format int

const (
	// RGBA32F is four float32 channels per texel.
	RGBA32F Format = iota
)

// Channels returns the number of float32 values per texel.
func (f Format) Channels() int {
	return 4
}

// Capabilities describes what a device can do.
type Capabilities struct {
	Renderer           string
	Version            string
	ShaderLevel        int // GLSL version number, e.g. 330
	FloatRenderTargets bool
	MaxTextureSize     int
}

// MinShaderLevel is the lowest shader level the simulations target.
const MinShaderLevel = 330

// Sufficient reports whether the device can run the simulations.
func (c Capabilities) Sufficient() bool {
	return c.FloatRenderTargets && c.ShaderLevel >= MinShaderLevel
}

// Surface is a 2D render target that can also be sampled.
type Surface interface {
	Size() (w, h int)
	Release()
}

// Program is a compiled pass.
type Program interface {
	Name() string
	Release()
}

// Mesh is a set of per-vertex attributes for point passes.
type Mesh interface {
	Count() int
	Release()
}

// Attribute is one per-vertex input. Attribute i of a mesh is bound to
// vertex shader location i.
type Attribute struct {
	Name string
	Size int // components per vertex, 1..4
	Data []float32
}

// Vertices returns the number of vertices the attribute describes.
func (a Attribute) Vertices() int {
	if a.Size <= 0 {
		return 0
	}
	return len(a.Data) / a.Size
}

// ProgramSpec describes a pass. Point programs set Place; full-screen
// programs set Shade.
type ProgramSpec struct {
	Name           string
	VertexSource   string // empty selects the built-in full-screen vertex shader
	FragmentSource string
	Shade          FragmentKernel
	Place          PointKernel
}

// Points reports whether the program draws a point cloud.
func (s ProgramSpec) Points() bool {
	return s.Place != nil
}

// Device allocates surfaces and runs passes.
type Device interface {
	Capabilities() Capabilities
	NewSurface(w, h int, format Format, seed []float32) (Surface, error)
	Upload(s Surface, data []float32) error
	Download(s Surface) ([]float32, error)
	NewProgram(spec ProgramSpec) (Program, error)
	NewMesh(attrs []Attribute) (Mesh, error)
	Clear(s Surface, color mgl32.Vec4) error
	DrawFullscreen(p Program, target Surface, uniforms Uniforms) error
	DrawPoints(p Program, target Surface, mesh Mesh, uniforms Uniforms) error
}

// TexelCount returns the float32 length of a w×h surface in format f.
func TexelCount(w, h int, f Format) int {
	return w * h * f.Channels()
}
