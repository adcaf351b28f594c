package metaballs

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
)

// Uniform names shared by the GLSL programs and the Go kernels.
const (
	uField          = "field"
	uBalls          = "balls"
	uBallCount      = "ballCount"
	uWorldSize      = "worldSize"
	uFieldSize      = "fieldSize"
	uResolution     = "resolution"
	uThreshold      = "threshold"
	uSoftness       = "softness"
	uLineWidthPx    = "lineWidthPx"
	uShowContours   = "showContours"
	uPaletteMode    = "paletteMode"
	uPaletteBg      = "usePaletteBg"
	uPalette        = "palette"
	uBlobColor      = "blobColor"
	uBgColor        = "bgColor"
	uBloomThreshold = "bloomThreshold"
	uSource         = "source"
	uDirection      = "direction"
	uSpread         = "spread"
	uWeights        = "weights"
	uScene          = "scene"
	uBloom          = "bloom"
	uStrength       = "strength"
)

// fieldKernel sums r²/max(d², ε) over the active balls.
func fieldKernel(env *gpu.Env, fc mgl32.Vec2) mgl32.Vec4 {
	fs := env.Vec2(uFieldSize)
	world := env.Vec2(uWorldSize)
	p := mgl32.Vec2{(fc[0]/fs[0] - 0.5) * world[0], (fc[1]/fs[1] - 0.5) * world[1]}
	return mgl32.Vec4{Potential(p, env.Vec4s(uBalls), int(env.Int(uBallCount))), 0, 0, 1}
}

// Potential is the field value at p for the first n packed balls.
func Potential(p mgl32.Vec2, balls []mgl32.Vec4, n int) float32 {
	var sum float32
	for i := 0; i < n && i < len(balls) && i < MaxBalls; i++ {
		b := balls[i]
		d := p.Sub(b.Vec2())
		sum += b[2] * b[2] / max(d.Dot(d), 1e-4)
	}
	return sum
}

var lightDir = mgl32.Vec3{0.35, 0.55, 1}.Normalize()

// ContourShader shades display pixels from the sampled scalar field.
type ContourShader struct {
	Field        gpu.Sampler
	Resolution   mgl32.Vec2
	FieldSize    mgl32.Vec2
	Threshold    float32
	Softness     float32
	LineWidthPx  float32
	ShowContours bool
	PaletteMode  bool
	PaletteBg    bool
	Palette      [3]mgl32.Vec3
	Blob         mgl32.Vec3
	Background   mgl32.Vec3
}

// Shading is the result for one pixel.
type Shading struct {
	Cell   int
	Inside float32 // soft fill coverage
	Line   float32 // contour coverage
	Glow   float32
	Blob   mgl32.Vec3
	Color  mgl32.Vec3
}

func contourFromEnv(env *gpu.Env) *ContourShader {
	c := &ContourShader{
		Field:        env.Texture(uField),
		Resolution:   env.Vec2(uResolution),
		FieldSize:    env.Vec2(uFieldSize),
		Threshold:    env.Float(uThreshold),
		Softness:     env.Float(uSoftness),
		LineWidthPx:  env.Float(uLineWidthPx),
		ShowContours: env.Bool(uShowContours),
		PaletteMode:  env.Bool(uPaletteMode),
		PaletteBg:    env.Bool(uPaletteBg),
		Blob:         env.Vec3(uBlobColor),
		Background:   env.Vec3(uBgColor),
	}
	copy(c.Palette[:], env.Vec3s(uPalette))
	return c
}

func (c *ContourShader) sample(i, j float32) float32 {
	uv := mgl32.Vec2{(i + 0.5) / c.FieldSize[0], (j + 0.5) / c.FieldSize[1]}
	return gpu.Sample(c.Field, uv)[0]
}

// Cell maps a display pixel to its field cell and the position inside it.
func (c *ContourShader) Cell(fc mgl32.Vec2) (Corners, mgl32.Vec2) {
	var local mgl32.Vec2
	var cell [2]float32
	for k := range 2 {
		uv := gpu.Clamp(fc[k]/c.Resolution[k], 0, 0.999999)
		// uv 0..1 spans texel centres 0..fs-1, a slight stretch against sample().
		g := uv * (c.FieldSize[k] - 1)
		cell[k] = min(float32(math.Floor(float64(g))), c.FieldSize[k]-2)
		local[k] = g - cell[k]
	}
	x, y := cell[0], cell[1]
	return Corners{
		SW: c.sample(x, y),
		SE: c.sample(x+1, y),
		NE: c.sample(x+1, y+1),
		NW: c.sample(x, y+1),
	}, local
}

// blobColor picks the body colour. Palette mode ramps from the second to
// the third palette colour as v rises above iso.
func (c *ContourShader) blobColor(v float32) mgl32.Vec3 {
	if !c.PaletteMode {
		return c.Blob
	}
	t := gpu.Clamp((v-c.Threshold)/max(c.Threshold, 1e-3), 0, 1)
	return mixVec3(c.Palette[1], c.Palette[2], t)
}

func (c *ContourShader) background() mgl32.Vec3 {
	if c.PaletteMode && c.PaletteBg {
		return c.Palette[0]
	}
	return c.Background
}

// Shade computes the fill, contour and glow of the pixel at fc.
func (c *ContourShader) Shade(fc mgl32.Vec2) Shading {
	corners, local := c.Cell(fc)
	iso := c.Threshold
	soft := max(1e-6, c.Softness)
	v := corners.Bilinear(local)

	sh := Shading{Cell: CellType(corners, iso)}
	sh.Inside = gpu.Smoothstep(iso-soft, iso+soft, v)
	sh.Blob = c.blobColor(v)

	g := corners.Gradient(local)
	n := mgl32.Vec3{-g[0], -g[1], 1}.Normalize()
	lit := gpu.Clamp(n.Dot(lightDir), 0, 1)
	base := sh.Blob.Mul(0.55 + 0.45*lit)
	col := mixVec3(c.background(), base, sh.Inside)

	if c.ShowContours && sh.Cell != 0 && sh.Cell != 15 {
		cellPx := mgl32.Vec2{c.Resolution[0] / (c.FieldSize[0] - 1), c.Resolution[1] / (c.FieldSize[1] - 1)}
		w := c.LineWidthPx / max(1, min(cellPx[0], cellPx[1]))
		segs, count := CellSegments(corners, iso)
		for _, s := range segs[:count] {
			sh.Line = max(sh.Line, lineCoverage(local, s, w))
		}
		lineCol := mixVec3(sh.Blob, mgl32.Vec3{1, 1, 1}, 0.35)
		col = mixVec3(col, lineCol, sh.Line)
	}

	sh.Glow = gpu.Smoothstep(iso-soft*6, iso-soft*0.5, v) - gpu.Smoothstep(iso-soft*0.5, iso+soft, v)
	sh.Color = col.Add(sh.Blob.Mul(sh.Glow * 0.25))
	return sh
}

func contourKernel(env *gpu.Env, fc mgl32.Vec2) mgl32.Vec4 {
	return contourFromEnv(env).Shade(fc).Color.Vec4(1)
}

// bloomMaskKernel keeps the lit body of the blobs whose luminance clears
// the bloom threshold.
func bloomMaskKernel(env *gpu.Env, fc mgl32.Vec2) mgl32.Vec4 {
	sh := contourFromEnv(env).Shade(fc)
	return BloomMask(sh, env.Float(uBloomThreshold)).Vec4(1)
}

// BloomMask is the bright-pass colour of a shaded pixel.
func BloomMask(sh Shading, threshold float32) mgl32.Vec3 {
	m := sh.Blob.Mul(sh.Inside + sh.Glow*0.25)
	l := m.Dot(mgl32.Vec3{0.2126, 0.7152, 0.0722})
	return m.Mul(gpu.Smoothstep(threshold, threshold+0.01, l))
}

// blurWeights are the normalized 9-tap Gaussian weights, sigma 2 taps.
var blurWeights = func() []float32 {
	w := make([]float32, 9)
	var sum float32
	for i := range w {
		x := float64(i - 4)
		w[i] = float32(math.Exp(-x * x / 8))
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}()

// blurKernel is one direction of the separable Gaussian. Taps are spread
// texels apart along direction.
func blurKernel(env *gpu.Env, fc mgl32.Vec2) mgl32.Vec4 {
	res := env.Vec2(uResolution)
	dir := env.Vec2(uDirection).Mul(env.Float(uSpread))
	src := env.Texture(uSource)
	var sum mgl32.Vec4
	for i, w := range env.Floats(uWeights) {
		o := dir.Mul(float32(i - 4))
		at := mgl32.Vec2{(fc[0] + o[0]) / res[0], (fc[1] + o[1]) / res[1]}
		sum = sum.Add(gpu.Sample(src, at).Mul(w))
	}
	return sum
}

// overlayKernel adds the blurred mask onto the contour frame.
func overlayKernel(env *gpu.Env, fc mgl32.Vec2) mgl32.Vec4 {
	res := env.Vec2(uResolution)
	uv := mgl32.Vec2{fc[0] / res[0], fc[1] / res[1]}
	scene := gpu.Sample(env.Texture(uScene), uv).Vec3()
	glow := gpu.Sample(env.Texture(uBloom), uv).Vec3()
	return scene.Add(glow.Mul(env.Float(uStrength))).Vec4(1)
}

// BloomSpread maps the 0..1 radius setting to the blur tap spacing.
func BloomSpread(radius float32) float32 {
	return 1 + 3*gpu.Clamp(radius, 0, 1)
}

func mixVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
