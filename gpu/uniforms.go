package gpu

import (
	"fmt"
	"maps"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Uniforms maps uniform names to values. Supported value types are
// float32, int32, bool, mgl32.Vec2, mgl32.Vec3, mgl32.Vec4, mgl32.Mat4,
// []float32, []mgl32.Vec3, []mgl32.Vec4 and Surface (a sampled texture).
type Uniforms map[string]any

// Merge returns a copy of u with the entries of over applied on top.
func (u Uniforms) Merge(over Uniforms) Uniforms {
	out := make(Uniforms, len(u)+len(over))
	maps.Copy(out, u)
	maps.Copy(out, over)
	return out
}

// CheckValue reports whether v is a supported uniform value.
func CheckValue(name string, v any) error {
	switch v.(type) {
	case float32, int32, bool,
		mgl32.Vec2, mgl32.Vec3, mgl32.Vec4, mgl32.Mat4,
		[]float32, []mgl32.Vec3, []mgl32.Vec4, Surface:
		return nil
	case nil:
		return fmt.Errorf("uniform %q: nil value", name)
	default:
		return fmt.Errorf("uniform %q: unsupported type %T", name, v)
	}
}

// Sampler reads texels from a surface.
type Sampler interface {
	Size() (w, h int)
	Texel(x, y int) mgl32.Vec4
}

// Sample reads s at normalized coordinate uv with nearest filtering and
// clamp-to-edge addressing. A nil sampler reads as zero.
func Sample(s Sampler, uv mgl32.Vec2) mgl32.Vec4 {
	if s == nil {
		return mgl32.Vec4{}
	}
	w, h := s.Size()
	return s.Texel(clampIndex(uv[0], w), clampIndex(uv[1], h))
}

func clampIndex(u float32, n int) int {
	i := int(math.Floor(float64(u) * float64(n)))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
