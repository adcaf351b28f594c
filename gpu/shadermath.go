package gpu

import "math"

// GLSL built-ins used by the Go kernels.

func Clamp(x, lo, hi float32) float32 {
	return max(lo, min(hi, x))
}

func Mix(a, b, t float32) float32 {
	return a + (b-a)*t
}

func Fract(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

// Mod follows GLSL: x - y*floor(x/y).
func Mod(x, y float32) float32 {
	return x - y*float32(math.Floor(float64(x/y)))
}

func Smoothstep(e0, e1, x float32) float32 {
	t := Clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

func Step(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}
