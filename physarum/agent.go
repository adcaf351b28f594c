package physarum

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
)

// InactiveSpecies marks an agent slot that has not been spawned.
const InactiveSpecies = -1

// Agent is one texel of the agent state surface: position in world units
// (origin at the viewport centre) in RG, heading in B, species in A.
type Agent struct {
	Pos     mgl32.Vec2
	Heading float32
	Species float32
}

// AgentFromTexel decodes a state texel.
func AgentFromTexel(v mgl32.Vec4) Agent {
	return Agent{Pos: mgl32.Vec2{v[0], v[1]}, Heading: v[2], Species: v[3]}
}

// Texel encodes the agent as a state texel.
func (a Agent) Texel() mgl32.Vec4 {
	return mgl32.Vec4{a.Pos[0], a.Pos[1], a.Heading, a.Species}
}

// Active reports whether the slot holds a live agent.
func (a Agent) Active() bool {
	return a.Species > -0.5
}

// Team returns the species index, 0..2.
func (a Agent) Team() int {
	return max(0, min(2, int(a.Species+0.5)))
}

func inactiveAgent() Agent {
	return Agent{Species: InactiveSpecies}
}

// infector[s] is the species whose trail converts species s.
// 0 converts 2, 1 converts 0, 2 converts 1.
var infector = [3]int{1, 2, 0}

// InfectionThreshold is the trail level a dominant channel must exceed.
const InfectionThreshold = 0.5

// Steering holds the uniforms of the agent update pass.
type Steering struct {
	Resolution       mgl32.Vec2
	Time             float32
	Pointer          mgl32.Vec2
	PointerRadius    float32
	PointerPush      bool
	RestrictToMiddle bool
	Displacement     bool

	MoveSpeed      mgl32.Vec3
	SensorDistance mgl32.Vec3
	SensorAngle    mgl32.Vec3
	RotationAngle  mgl32.Vec3
	Attract        [3]mgl32.Vec3
	Infectious     mgl32.Vec3 // per infecting species, > 0.5 enables

	Trail     gpu.Sampler // diffusion field
	Occupancy gpu.Sampler // agent raster
}

// Update advances one agent by one step. fragCoord is the agent's texel
// centre and feeds the turn jitter.
func (s *Steering) Update(a Agent, spawn mgl32.Vec4, fragCoord mgl32.Vec2) Agent {
	// A pending spawn wins over everything, including the inactive check;
	// it is how empty slots come back to life.
	if spawn != (mgl32.Vec4{}) {
		return AgentFromTexel(spawn)
	}
	if !a.Active() {
		return a
	}

	team := a.Team()
	p, d := a.Pos, a.Heading
	theta := s.SensorAngle[team]
	reach := s.SensorDistance[team]

	left := s.Sense(p.Add(direction(d-theta).Mul(reach)), team)
	mid := s.Sense(p.Add(direction(d).Mul(reach)), team)
	right := s.Sense(p.Add(direction(d+theta).Mul(reach)), team)
	d = Turn(d, left, mid, right, s.RotationAngle[team], Hash(p.Add(fragCoord)))

	if s.RestrictToMiddle && p.Len() > BreathingRadius(s.Time) {
		d = float32(math.Atan2(float64(p[1]), float64(p[0]))) - math.Pi
	}

	next := p.Add(direction(d).Mul(s.MoveSpeed[team]))
	if s.Displacement && s.occupied(next) {
		next = p
		d += math.Pi
	}
	if s.PointerPush {
		next = PushFromPointer(next, s.Pointer, s.PointerRadius)
	}
	next = Wrap(next, s.Resolution)

	species := Infect(team, gpu.Sample(s.Trail, s.worldUV(p)), s.Infectious)
	return Agent{Pos: next, Heading: gpu.Mod(d, 2*math.Pi), Species: float32(species)}
}

func (s *Steering) worldUV(p mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{p[0]/s.Resolution[0] + 0.5, p[1]/s.Resolution[1] + 0.5}
}

// Sense averages the attraction-weighted trail over the 3×3 texel
// neighbourhood of world point p.
func (s *Steering) Sense(p mgl32.Vec2, team int) float32 {
	uv := s.worldUV(p)
	weights := s.Attract[team]
	var sum float32
	for j := -1; j <= 1; j++ {
		for i := -1; i <= 1; i++ {
			at := mgl32.Vec2{uv[0] + float32(i)/s.Resolution[0], uv[1] + float32(j)/s.Resolution[1]}
			sum += gpu.Sample(s.Trail, at).Vec3().Dot(weights)
		}
	}
	return sum / 9
}

func (s *Steering) occupied(p mgl32.Vec2) bool {
	px := gpu.Sample(s.Occupancy, s.worldUV(p))
	return px[0]+px[1]+px[2] > 0
}

func direction(angle float32) mgl32.Vec2 {
	sin, cos := math.Sincos(float64(angle))
	return mgl32.Vec2{float32(cos), float32(sin)}
}

// Turn applies the sensor comparison: hold when the middle reading is the
// strict maximum, turn randomly by the rotation angle when it is the
// strict minimum, otherwise turn toward the larger side reading. Right is
// the positive angular direction. jitter in [0,1) picks the random sign.
func Turn(heading, left, mid, right, rot, jitter float32) float32 {
	switch {
	case mid > left && mid > right:
		return heading
	case mid < left && mid < right:
		if jitter < 0.5 {
			return heading - rot
		}
		return heading + rot
	case right > left:
		return heading + rot
	case left > right:
		return heading - rot
	}
	return heading
}

// Hash is the shader-style hash fract(sin(dot(co, k)) * 43758.5453).
func Hash(co mgl32.Vec2) float32 {
	d := co.Dot(mgl32.Vec2{12.9898, 78.233})
	return gpu.Fract(float32(math.Sin(float64(d))) * 43758.5453)
}

// BreathingRadius is the restrict-to-middle radius at time t. It swings
// between 155 and 310 world units every 1000 time units.
func BreathingRadius(t float32) float32 {
	return 155 * (1 + float32(math.Abs(float64(gpu.Mod(t*0.01, 10)-5)))/5)
}

// PushFromPointer moves p radially away from the pointer when it lies
// inside radius.
func PushFromPointer(p, pointer mgl32.Vec2, radius float32) mgl32.Vec2 {
	seg := p.Sub(pointer)
	dist := seg.Len()
	if dist >= radius || dist == 0 {
		return p
	}
	strength := 3 * (50 + radius - dist) / (50 + radius/5)
	return p.Add(seg.Mul(strength / dist))
}

// Wrap maps p onto the torus [-W/2, W/2) × [-H/2, H/2).
func Wrap(p, res mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{wrapAxis(p[0], res[0]), wrapAxis(p[1], res[1])}
}

func wrapAxis(x, size float32) float32 {
	half := size / 2
	v := gpu.Fract((x+half)/size)*size - half
	if v >= half {
		v = -half
	}
	return v
}

// Dominant returns the channel of trail that is strictly greatest and
// above InfectionThreshold, or -1.
func Dominant(trail mgl32.Vec4) int {
	return dominantAbove(trail.Vec3(), InfectionThreshold)
}

func dominantAbove(v mgl32.Vec3, threshold float32) int {
	r, g, b := v[0], v[1], v[2]
	switch {
	case r > threshold && r > g && r > b:
		return 0
	case g > threshold && g > r && g > b:
		return 1
	case b > threshold && b > r && b > g:
		return 2
	}
	return -1
}

// Infect returns the species of an agent of team after standing on trail.
func Infect(team int, trail mgl32.Vec4, infectious mgl32.Vec3) int {
	src := infector[team]
	if Dominant(trail) == src && infectious[src] > 0.5 {
		return src
	}
	return team
}
