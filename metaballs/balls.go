package metaballs

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/config"
)

// MaxBalls is the size of the ball uniform array.
const MaxBalls = 32

// ballSpeed scales velocity into world units per second.
const ballSpeed = 140

// Ball is one disk of the field. Position is in world units with the origin
// at the viewport centre.
type Ball struct {
	Pos    mgl32.Vec2
	Vel    mgl32.Vec2
	Radius float32
}

// BallList is the ordered ball set, oldest first.
type BallList struct {
	balls []Ball
}

// Len returns the number of balls.
func (l *BallList) Len() int {
	return len(l.balls)
}

// Balls returns the balls, oldest first. The slice aliases the list.
func (l *BallList) Balls() []Ball {
	return l.balls
}

func randRange(rng *rand.Rand, lo, hi float32) float32 {
	return lo + (hi-lo)*rng.Float32()
}

// Reset replaces the list with n random balls inside a w×h box. n is
// clamped to [1, MaxBalls].
func (l *BallList) Reset(n, w, h int, rng *rand.Rand) {
	n = max(1, min(MaxBalls, n))
	bx, by := float32(w)/2, float32(h)/2
	l.balls = l.balls[:0]
	for range n {
		r := randRange(rng, 24, 64)
		l.balls = append(l.balls, Ball{
			Pos:    mgl32.Vec2{randRange(rng, -bx+r, bx-r), randRange(rng, -by+r, by-r)},
			Vel:    mgl32.Vec2{randRange(rng, -1, 1), randRange(rng, -1, 1)},
			Radius: r,
		})
	}
}

// ClickBall builds a ball at pos with a radius and velocity drawn from the
// click settings.
func ClickBall(pos mgl32.Vec2, c config.ClickConfig, rng *rand.Rand) Ball {
	lo, hi := min(c.MinRadius, c.MaxRadius), max(c.MinRadius, c.MaxRadius)
	return Ball{
		Pos:    pos,
		Vel:    mgl32.Vec2{randRange(rng, -1, 1) * c.Motion, randRange(rng, -1, 1) * c.Motion},
		Radius: randRange(rng, lo, hi),
	}
}

// Add appends b. At capacity the oldest ball is dropped when replaceOldest
// is set, otherwise b is ignored. Add reports whether the list changed.
func (l *BallList) Add(b Ball, replaceOldest bool) bool {
	if len(l.balls) >= MaxBalls {
		if !replaceOldest {
			return false
		}
		copy(l.balls, l.balls[1:])
		l.balls[len(l.balls)-1] = b
		return true
	}
	l.balls = append(l.balls, b)
	return true
}

// Tick integrates every ball over dt seconds and reflects it off the w×h
// box. It reports whether anything moved.
func (l *BallList) Tick(dt float32, w, h int) bool {
	if dt <= 0 || len(l.balls) == 0 {
		return false
	}
	bounds := mgl32.Vec2{float32(w) / 2, float32(h) / 2}
	for i := range l.balls {
		b := &l.balls[i]
		b.Pos = b.Pos.Add(b.Vel.Mul(ballSpeed * dt))
		for axis := range 2 {
			switch {
			case b.Pos[axis]+b.Radius > bounds[axis]:
				b.Pos[axis] = bounds[axis] - b.Radius
				b.Vel[axis] = -abs32(b.Vel[axis])
			case b.Pos[axis]-b.Radius < -bounds[axis]:
				b.Pos[axis] = -bounds[axis] + b.Radius
				b.Vel[axis] = abs32(b.Vel[axis])
			}
		}
	}
	return true
}

// Uniforms packs the list as (x, y, radius, 0) into a MaxBalls array.
// Unused slots have radius 0.
func (l *BallList) Uniforms() []mgl32.Vec4 {
	out := make([]mgl32.Vec4, MaxBalls)
	for i, b := range l.balls {
		out[i] = mgl32.Vec4{b.Pos[0], b.Pos[1], b.Radius, 0}
	}
	return out
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
