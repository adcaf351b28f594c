package metaballs

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
	"github.com/pthm-cable/slimefield/gpu/softgpu"
	"github.com/pthm-cable/slimefield/palette"
)

// singleBallShader renders the field of one ball of radius 50 at the
// origin on a 256×256 grid and returns a shader over a 256×256 view.
func singleBallShader(t *testing.T) *ContourShader {
	t.Helper()
	dev := softgpu.New()
	field, err := dev.NewSurface(256, 256, gpu.RGBA32F, nil)
	if err != nil {
		t.Fatal(err)
	}
	var balls BallList
	balls.Add(Ball{Radius: 50}, false)
	stage, err := gpu.NewStage(dev, fieldProgram, gpu.Uniforms{
		uWorldSize: mgl32.Vec2{256, 256},
		uFieldSize: mgl32.Vec2{256, 256},
		uBalls:     balls.Uniforms(),
		uBallCount: int32(balls.Len()),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := stage.Execute(field, nil); err != nil {
		t.Fatal(err)
	}
	return &ContourShader{
		Field:        field.(gpu.Sampler),
		Resolution:   mgl32.Vec2{256, 256},
		FieldSize:    mgl32.Vec2{256, 256},
		Threshold:    1,
		Softness:     0.06,
		LineWidthPx:  1.5,
		ShowContours: true,
		Blob:         mgl32.Vec3{0.2, 0.6, 0.6},
		Background:   mgl32.Vec3{0.02, 0.02, 0.02},
	}
}

// pixelAt is the display pixel whose interpolated field position is the
// world point p, for a 256 grid shown on 256 pixels.
func pixelAt(p mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{(p[0] + 127.5) * 256 / 255, (p[1] + 127.5) * 256 / 255}
}

func TestSingleBallFillsDisk(t *testing.T) {
	c := singleBallShader(t)
	inside := 0
	for y := range 256 {
		for x := range 256 {
			if c.Shade(mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}).Inside > 0.5 {
				inside++
			}
		}
	}
	// The disk has radius 50 world units; pixels are 255/256 of a unit.
	want := math.Pi * 50 * 50 * (256.0 / 255) * (256.0 / 255)
	if rel := math.Abs(float64(inside)-want) / want; rel > 0.03 {
		t.Errorf("filled %d pixels, want about %.0f", inside, want)
	}
}

func TestSingleBallContourIsRing(t *testing.T) {
	c := singleBallShader(t)
	for deg := 0; deg < 360; deg += 15 {
		a := float64(deg) * math.Pi / 180
		dir := mgl32.Vec2{float32(math.Cos(a)), float32(math.Sin(a))}

		on := c.Shade(pixelAt(dir.Mul(50)))
		if on.Line < 0.5 {
			t.Errorf("%d°: line coverage at r=50 is %v", deg, on.Line)
		}
		if math.Abs(float64(on.Inside-0.5)) > 0.15 {
			t.Errorf("%d°: fill at r=50 is %v, want the middle of the band", deg, on.Inside)
		}
		if in := c.Shade(pixelAt(dir.Mul(40))); in.Line != 0 || in.Inside < 0.999 {
			t.Errorf("%d°: r=40 shading %+v, want filled without line", deg, in)
		}
		if out := c.Shade(pixelAt(dir.Mul(60))); out.Line != 0 || out.Inside > 0.001 {
			t.Errorf("%d°: r=60 shading %+v, want empty without line", deg, out)
		}
	}
}

func TestContoursOffDrawNoLine(t *testing.T) {
	c := singleBallShader(t)
	c.ShowContours = false
	if sh := c.Shade(pixelAt(mgl32.Vec2{50, 0})); sh.Line != 0 {
		t.Errorf("line coverage %v with contours off", sh.Line)
	}
}

func TestFarPixelsShowBackground(t *testing.T) {
	c := singleBallShader(t)
	sh := c.Shade(mgl32.Vec2{0.5, 0.5})
	if sh.Color != c.Background {
		t.Errorf("corner colour = %v, want background %v", sh.Color, c.Background)
	}
}

func TestPaletteMode(t *testing.T) {
	p, _ := palette.Lookup("Biolab")
	c := &ContourShader{Threshold: 1, PaletteMode: true, Palette: p.Colors, Background: mgl32.Vec3{1, 1, 1}}

	if got := c.blobColor(1); !got.ApproxEqual(p.Colors[1]) {
		t.Errorf("blob at iso = %v, want %v", got, p.Colors[1])
	}
	if got := c.blobColor(5); !got.ApproxEqual(p.Colors[2]) {
		t.Errorf("blob far above iso = %v, want %v", got, p.Colors[2])
	}
	if got := c.background(); got != c.Background {
		t.Errorf("background without palette bg = %v", got)
	}
	c.PaletteBg = true
	if got := c.background(); got != p.Colors[0] {
		t.Errorf("palette background = %v, want %v", got, p.Colors[0])
	}
	c.PaletteMode = false
	c.Blob = mgl32.Vec3{0.1, 0.2, 0.3}
	if got := c.blobColor(5); got != c.Blob {
		t.Errorf("single mode blob = %v", got)
	}
}

func TestBloomMask(t *testing.T) {
	sh := Shading{Inside: 1, Blob: mgl32.Vec3{0.2, 0.4, 0.2}}
	if got := BloomMask(sh, 0); !got.ApproxEqual(sh.Blob) {
		t.Errorf("mask at threshold 0 = %v, want %v", got, sh.Blob)
	}
	if got := BloomMask(sh, 0.9); got != (mgl32.Vec3{}) {
		t.Errorf("dim blob passed threshold 0.9: %v", got)
	}
	if got := BloomMask(Shading{Blob: mgl32.Vec3{1, 1, 1}}, 0); got != (mgl32.Vec3{}) {
		t.Errorf("empty pixel produced mask %v", got)
	}
}

func TestBlurPreservesUniformImage(t *testing.T) {
	dev := softgpu.New()
	seed := make([]float32, gpu.TexelCount(8, 6, gpu.RGBA32F))
	for i := range seed {
		seed[i] = 0.5
	}
	src, err := dev.NewSurface(8, 6, gpu.RGBA32F, seed)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := dev.NewSurface(8, 6, gpu.RGBA32F, nil)
	if err != nil {
		t.Fatal(err)
	}
	stage, err := gpu.NewStage(dev, blurProgram, gpu.Uniforms{
		uWeights:    blurWeights,
		uResolution: mgl32.Vec2{8, 6},
		uSpread:     BloomSpread(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, dir := range []mgl32.Vec2{{1, 0}, {0, 1}} {
		if err := stage.Execute(dst, gpu.Uniforms{uSource: src, uDirection: dir}); err != nil {
			t.Fatal(err)
		}
		out, err := dev.Download(dst)
		if err != nil {
			t.Fatal(err)
		}
		for i, v := range out {
			if math.Abs(float64(v)-0.5) > 1e-5 {
				t.Fatalf("direction %v: texel value %d = %v, want 0.5", dir, i, v)
			}
		}
	}
}

func TestBlurWeightsAreNormalized(t *testing.T) {
	var sum float32
	for i, w := range blurWeights {
		sum += w
		if w != blurWeights[len(blurWeights)-1-i] {
			t.Errorf("weights not symmetric at %d", i)
		}
	}
	if math.Abs(float64(sum)-1) > 1e-6 {
		t.Errorf("weights sum to %v", sum)
	}
	if BloomSpread(-1) != 1 || BloomSpread(2) != 4 {
		t.Errorf("BloomSpread clamps to [1, 4], got %v and %v", BloomSpread(-1), BloomSpread(2))
	}
}
