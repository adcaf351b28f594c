package physarum

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
)

// Uniform names shared by the GLSL programs and the Go kernels.
const (
	uAgents           = "agents"
	uSpawn            = "spawn"
	uTrail            = "trail"
	uOccupancy        = "occupancy"
	uDeposit          = "deposit"
	uScene            = "scene"
	uResolution       = "resolution"
	uAgentTexSize     = "agentTexSize"
	uTime             = "time"
	uPointer          = "pointer"
	uPointerRadius    = "pointerRadius"
	uPointerPush      = "pointerPush"
	uRestrictToMiddle = "restrictToMiddle"
	uDisplacement     = "displacement"
	uMoveSpeed        = "moveSpeed"
	uSensorDistance   = "sensorDistance"
	uSensorAngle      = "sensorAngle"
	uRotationAngle    = "rotationAngle"
	uAttract          = "attract"
	uInfectious       = "infectious"
	uDecay            = "decay"
	uProjection       = "projection"
	uDotSize          = "dotSize"
	uMonochrome       = "monochrome"
	uTrailOpacity     = "trailOpacity"
	uDotOpacity       = "dotOpacity"
	uFlatShading      = "flatShading"
	uColorThreshold   = "colorThreshold"
	uColors           = "colors"
)

// speciesColor is the raster colour of each species: one channel each.
var speciesColor = [3]mgl32.Vec4{
	{1, 0, 0, 1},
	{0, 1, 0, 1},
	{0, 0, 1, 1},
}

func steeringFromEnv(env *gpu.Env) *Steering {
	s := &Steering{
		Resolution:       env.Vec2(uResolution),
		Time:             env.Float(uTime),
		Pointer:          env.Vec2(uPointer),
		PointerRadius:    env.Float(uPointerRadius),
		PointerPush:      env.Bool(uPointerPush),
		RestrictToMiddle: env.Bool(uRestrictToMiddle),
		Displacement:     env.Bool(uDisplacement),
		MoveSpeed:        env.Vec3(uMoveSpeed),
		SensorDistance:   env.Vec3(uSensorDistance),
		SensorAngle:      env.Vec3(uSensorAngle),
		RotationAngle:    env.Vec3(uRotationAngle),
		Infectious:       env.Vec3(uInfectious),
		Trail:            env.Texture(uTrail),
		Occupancy:        env.Texture(uOccupancy),
	}
	copy(s.Attract[:], env.Vec3s(uAttract))
	return s
}

func updateKernel(env *gpu.Env, fc mgl32.Vec2) mgl32.Vec4 {
	size := env.Vec2(uAgentTexSize)
	uv := mgl32.Vec2{fc[0] / size[0], fc[1] / size[1]}
	a := AgentFromTexel(gpu.Sample(env.Texture(uAgents), uv))
	spawn := gpu.Sample(env.Texture(uSpawn), uv)
	return steeringFromEnv(env).Update(a, spawn, fc).Texel()
}

// diffuseKernel blurs the trail over a 3×3 box, decays it and adds the
// current deposit, clamping each channel to [0,1].
func diffuseKernel(env *gpu.Env, fc mgl32.Vec2) mgl32.Vec4 {
	res := env.Vec2(uResolution)
	trail := env.Texture(uTrail)
	var sum mgl32.Vec3
	for j := -1; j <= 1; j++ {
		for i := -1; i <= 1; i++ {
			at := mgl32.Vec2{(fc[0] + float32(i)) / res[0], (fc[1] + float32(j)) / res[1]}
			sum = sum.Add(gpu.Sample(trail, at).Vec3())
		}
	}
	dep := gpu.Sample(env.Texture(uDeposit), mgl32.Vec2{fc[0] / res[0], fc[1] / res[1]}).Vec3()
	decay := env.Float(uDecay)
	var out mgl32.Vec4
	for c := range 3 {
		out[c] = gpu.Clamp(sum[c]/9*decay+dep[c], 0, 1)
	}
	out[3] = 1
	return out
}

// offClip is outside every viewport; inactive agents are sent there.
var offClip = mgl32.Vec4{2, 2, 0, 1}

func rasterKernel(env *gpu.Env, in gpu.VertexInput) gpu.Vertex {
	a := AgentFromTexel(gpu.Sample(env.Texture(uAgents), in.Vec2("uv")))
	if !a.Active() {
		return gpu.Vertex{Position: offClip}
	}
	team := a.Team()
	return gpu.Vertex{
		Position: env.Mat4(uProjection).Mul4x1(mgl32.Vec4{a.Pos[0], a.Pos[1], 0, 1}),
		Size:     env.Vec3(uDotSize)[team],
		Color:    speciesColor[team],
	}
}

// Composite inputs, decoded once per pixel.
type compositeParams struct {
	monochrome     bool
	trailOpacity   float32
	dotOpacity     float32
	flatShading    bool
	colorThreshold float32
	colors         [3]mgl32.Vec3
}

func compositeFromEnv(env *gpu.Env) compositeParams {
	p := compositeParams{
		monochrome:     env.Bool(uMonochrome),
		trailOpacity:   env.Float(uTrailOpacity),
		dotOpacity:     env.Float(uDotOpacity),
		flatShading:    env.Bool(uFlatShading),
		colorThreshold: env.Float(uColorThreshold),
	}
	copy(p.colors[:], env.Vec3s(uColors))
	return p
}

func grey(v mgl32.Vec4) mgl32.Vec4 {
	m := (v[0] + v[1] + v[2] + v[3]) / 4
	return mgl32.Vec4{m, m, m, v[3]}
}

// Shade blends one trail texel and one raster texel into an output colour.
func (p compositeParams) Shade(trail, dots mgl32.Vec4) mgl32.Vec3 {
	if p.monochrome {
		trail, dots = grey(trail), grey(dots)
	}
	mixed := trail.Mul(p.trailOpacity).Add(dots.Mul(p.dotOpacity))
	var col mgl32.Vec3
	if p.monochrome {
		col = mixed.Vec3()
	} else {
		col = p.colors[0].Mul(mixed[0]).Add(p.colors[1].Mul(mixed[1])).Add(p.colors[2].Mul(mixed[2]))
	}
	if p.flatShading {
		if c := dominantAbove(mixed.Vec3(), p.colorThreshold); c >= 0 {
			col = p.colors[c]
		}
	}
	return col
}

func compositeKernel(env *gpu.Env, fc mgl32.Vec2) mgl32.Vec4 {
	res := env.Vec2(uResolution)
	uv := mgl32.Vec2{fc[0] / res[0], fc[1] / res[1]}
	col := compositeFromEnv(env).Shade(
		gpu.Sample(env.Texture(uTrail), uv),
		gpu.Sample(env.Texture(uDeposit), uv),
	)
	return col.Vec4(1)
}

// sobelKernel replaces the scene with its luminance gradient magnitude.
func sobelKernel(env *gpu.Env, fc mgl32.Vec2) mgl32.Vec4 {
	res := env.Vec2(uResolution)
	scene := env.Texture(uScene)
	luma := func(i, j int) float32 {
		at := mgl32.Vec2{(fc[0] + float32(i)) / res[0], (fc[1] + float32(j)) / res[1]}
		return gpu.Sample(scene, at).Vec3().Dot(mgl32.Vec3{0.299, 0.587, 0.114})
	}
	gx := -luma(-1, 1) - 2*luma(-1, 0) - luma(-1, -1) + luma(1, 1) + 2*luma(1, 0) + luma(1, -1)
	gy := -luma(-1, -1) - 2*luma(0, -1) - luma(1, -1) + luma(-1, 1) + 2*luma(0, 1) + luma(1, 1)
	g := float32(mgl32.Vec2{gx, gy}.Len())
	return mgl32.Vec4{g, g, g, 1}
}
