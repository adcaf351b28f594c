package metaballs

import (
	_ "embed"

	"github.com/pthm-cable/slimefield/gpu"
)

var (
	//go:embed shaders/field.frag
	fieldFrag string
	//go:embed shaders/contour_lib.glsl
	contourLib string
	//go:embed shaders/contour.frag
	contourMain string
	//go:embed shaders/bloom_mask.frag
	bloomMaskMain string
	//go:embed shaders/blur.frag
	blurFrag string
	//go:embed shaders/overlay.frag
	overlayFrag string
)

// Pass names, also used as telemetry phase names.
const (
	PassField     = "metaballs_field"
	PassContour   = "metaballs_contour"
	PassBloomMask = "metaballs_bloom_mask"
	PassBlur      = "metaballs_blur"
	PassOverlay   = "metaballs_overlay"
)

var (
	fieldProgram     = gpu.ProgramSpec{Name: PassField, FragmentSource: fieldFrag, Shade: fieldKernel}
	contourProgram   = gpu.ProgramSpec{Name: PassContour, FragmentSource: contourLib + contourMain, Shade: contourKernel}
	bloomMaskProgram = gpu.ProgramSpec{Name: PassBloomMask, FragmentSource: contourLib + bloomMaskMain, Shade: bloomMaskKernel}
	blurProgram      = gpu.ProgramSpec{Name: PassBlur, FragmentSource: blurFrag, Shade: blurKernel}
	overlayProgram   = gpu.ProgramSpec{Name: PassOverlay, FragmentSource: overlayFrag, Shade: overlayKernel}
)
