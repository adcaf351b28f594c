package physarum

import (
	_ "embed"

	"github.com/pthm-cable/slimefield/gpu"
)

var (
	//go:embed shaders/update.frag
	updateFrag string
	//go:embed shaders/diffuse.frag
	diffuseFrag string
	//go:embed shaders/dots.vert
	dotsVert string
	//go:embed shaders/dots.frag
	dotsFrag string
	//go:embed shaders/composite.frag
	compositeFrag string
	//go:embed shaders/sobel.frag
	sobelFrag string
)

// Pass names, also used as telemetry phase names.
const (
	PassUpdate    = "physarum_update"
	PassRaster    = "physarum_raster"
	PassDiffuse   = "physarum_diffuse"
	PassComposite = "physarum_composite"
	PassSobel     = "physarum_sobel"
)

var (
	updateProgram    = gpu.ProgramSpec{Name: PassUpdate, FragmentSource: updateFrag, Shade: updateKernel}
	rasterProgram    = gpu.ProgramSpec{Name: PassRaster, VertexSource: dotsVert, FragmentSource: dotsFrag, Place: rasterKernel}
	diffuseProgram   = gpu.ProgramSpec{Name: PassDiffuse, FragmentSource: diffuseFrag, Shade: diffuseKernel}
	compositeProgram = gpu.ProgramSpec{Name: PassComposite, FragmentSource: compositeFrag, Shade: compositeKernel}
	sobelProgram     = gpu.ProgramSpec{Name: PassSobel, FragmentSource: sobelFrag, Shade: sobelKernel}
)

// agentUVs returns the per-vertex texel centre of each agent slot in an
// n×n state surface.
func agentUVs(n int) []float32 {
	uv := make([]float32, 0, n*n*2)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			uv = append(uv, (float32(x)+0.5)/float32(n), (float32(y)+0.5)/float32(n))
		}
	}
	return uv
}
