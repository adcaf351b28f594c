package gpu_test

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
	"github.com/pthm-cable/slimefield/gpu/softgpu"
)

func fill(env *gpu.Env, _ mgl32.Vec2) mgl32.Vec4 {
	return env.Vec4("color")
}

func TestStageExecuteUsesParametersAndOverrides(t *testing.T) {
	dev := softgpu.New()
	target, _ := dev.NewSurface(2, 2, gpu.RGBA32F, nil)

	st, err := gpu.NewStage(dev, gpu.ProgramSpec{Name: "fill", Shade: fill},
		gpu.Uniforms{"color": mgl32.Vec4{1, 0, 0, 1}})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}

	if err := st.Execute(target, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got, _ := dev.Download(target)
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("texel = %v, want red", got[:4])
	}

	if err := st.Execute(target, gpu.Uniforms{"color": mgl32.Vec4{0, 1, 0, 1}}); err != nil {
		t.Fatalf("Execute with override: %v", err)
	}
	got, _ = dev.Download(target)
	if got[1] != 1 {
		t.Errorf("override not applied: %v", got[:4])
	}

	// Overrides are one-shot.
	if v, _ := st.Parameter("color"); v.(mgl32.Vec4) != (mgl32.Vec4{1, 0, 0, 1}) {
		t.Errorf("override persisted into parameters: %v", v)
	}
}

func TestStageSetParameterCreatesUnknownNames(t *testing.T) {
	dev := softgpu.New()
	st, err := gpu.NewStage(dev, gpu.ProgramSpec{Name: "fill", Shade: fill}, nil)
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}
	st.SetParameter("brandNew", float32(2))
	v, ok := st.Parameter("brandNew")
	if !ok || v.(float32) != 2 {
		t.Errorf("Parameter(brandNew) = %v, %v", v, ok)
	}
}

func TestStageRejectsFeedbackLoop(t *testing.T) {
	dev := softgpu.New()
	target, _ := dev.NewSurface(2, 2, gpu.RGBA32F, nil)
	st, err := gpu.NewStage(dev, gpu.ProgramSpec{Name: "fill", Shade: fill}, nil)
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}
	err = st.Execute(target, gpu.Uniforms{"input": target})
	if !errors.Is(err, gpu.ErrFeedbackLoop) {
		t.Errorf("Execute = %v, want ErrFeedbackLoop", err)
	}
}

func TestStageRejectsUnsupportedValue(t *testing.T) {
	dev := softgpu.New()
	target, _ := dev.NewSurface(1, 1, gpu.RGBA32F, nil)
	st, _ := gpu.NewStage(dev, gpu.ProgramSpec{Name: "fill", Shade: fill}, nil)
	st.SetParameter("bad", 1.5) // float64 is not a uniform type
	if err := st.Execute(target, nil); err == nil {
		t.Error("Execute accepted a float64 uniform")
	}
}

func TestPointStageRequiresVertexData(t *testing.T) {
	dev := softgpu.New()
	spec := gpu.ProgramSpec{
		Name:  "dots",
		Place: func(*gpu.Env, gpu.VertexInput) gpu.Vertex { return gpu.Vertex{} },
	}
	tests := []struct {
		name  string
		attrs []gpu.Attribute
	}{
		{"nil", nil},
		{"empty", []gpu.Attribute{{Name: "uv", Size: 2}}},
		{"mismatched", []gpu.Attribute{
			{Name: "uv", Size: 2, Data: []float32{0, 0, 1, 1}},
			{Name: "id", Size: 1, Data: []float32{0}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gpu.NewPointStage(dev, spec, nil, tt.attrs)
			if !errors.Is(err, gpu.ErrMissingVertexData) {
				t.Errorf("NewPointStage = %v, want ErrMissingVertexData", err)
			}
		})
	}
}

func TestPointStageRasterizesSquares(t *testing.T) {
	dev := softgpu.New()
	target, _ := dev.NewSurface(8, 8, gpu.RGBA32F, nil)
	spec := gpu.ProgramSpec{
		Name: "dots",
		Place: func(env *gpu.Env, in gpu.VertexInput) gpu.Vertex {
			p := in.Vec2("pos")
			return gpu.Vertex{
				Position: mgl32.Vec4{p[0], p[1], 0, 1},
				Size:     env.Float("size"),
				Color:    mgl32.Vec4{1, 1, 1, 1},
			}
		},
	}
	// Clip (0,0) is the centre of an 8x8 target: pixel corner (4,4).
	st, err := gpu.NewPointStage(dev, spec, gpu.Uniforms{"size": float32(2)},
		[]gpu.Attribute{{Name: "pos", Size: 2, Data: []float32{0, 0}}})
	if err != nil {
		t.Fatalf("NewPointStage: %v", err)
	}
	if err := st.Execute(target, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	px, _ := dev.Download(target)
	lit := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if px[(y*8+x)*4] > 0 {
				lit++
				if x < 3 || x > 4 || y < 3 || y > 4 {
					t.Errorf("pixel (%d,%d) lit outside the 2x2 square", x, y)
				}
			}
		}
	}
	if lit != 4 {
		t.Errorf("lit pixels = %d, want 4", lit)
	}
}

func TestSampleClampsToEdge(t *testing.T) {
	dev := softgpu.New()
	s, _ := dev.NewSurface(2, 1, gpu.RGBA32F, []float32{1, 0, 0, 0, 2, 0, 0, 0})
	samp := s.(gpu.Sampler)
	tests := []struct {
		u    float32
		want float32
	}{
		{-1, 1}, {0.1, 1}, {0.6, 2}, {5, 2},
	}
	for _, tt := range tests {
		if got := gpu.Sample(samp, mgl32.Vec2{tt.u, 0.5})[0]; got != tt.want {
			t.Errorf("Sample(u=%v) = %v, want %v", tt.u, got, tt.want)
		}
	}
	if got := gpu.Sample(nil, mgl32.Vec2{}); got != (mgl32.Vec4{}) {
		t.Errorf("nil sampler = %v, want zero", got)
	}
}
