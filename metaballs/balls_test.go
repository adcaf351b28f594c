package metaballs

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/config"
)

func TestResetClampsCountAndPlacesInside(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	var l BallList
	for _, tt := range []struct{ n, want int }{{0, 1}, {8, 8}, {99, MaxBalls}} {
		l.Reset(tt.n, 800, 600, rng)
		if l.Len() != tt.want {
			t.Errorf("Reset(%d) left %d balls, want %d", tt.n, l.Len(), tt.want)
		}
		for _, b := range l.Balls() {
			if b.Radius < 24 || b.Radius > 64 {
				t.Errorf("radius %v outside [24, 64]", b.Radius)
			}
			if b.Pos[0]-b.Radius < -400 || b.Pos[0]+b.Radius > 400 ||
				b.Pos[1]-b.Radius < -300 || b.Pos[1]+b.Radius > 300 {
				t.Errorf("ball %v does not fit the box", b)
			}
			if math.Abs(float64(b.Vel[0])) > 1 || math.Abs(float64(b.Vel[1])) > 1 {
				t.Errorf("velocity %v outside [-1, 1]", b.Vel)
			}
		}
	}
}

func fillList(n int) *BallList {
	var l BallList
	for i := range n {
		l.Add(Ball{Pos: mgl32.Vec2{float32(i), 0}, Radius: 1}, false)
	}
	return &l
}

func TestAddAtCapacity(t *testing.T) {
	l := fillList(MaxBalls)
	if l.Add(Ball{Radius: 99}, false) {
		t.Error("Add without replace at capacity reported a change")
	}
	if l.Len() != MaxBalls || l.Balls()[0].Pos[0] != 0 {
		t.Fatalf("ignored Add changed the list")
	}

	if !l.Add(Ball{Radius: 99}, true) {
		t.Fatal("Add with replace at capacity reported no change")
	}
	balls := l.Balls()
	if len(balls) != MaxBalls {
		t.Fatalf("len = %d, want %d", len(balls), MaxBalls)
	}
	if balls[0].Pos[0] != 1 {
		t.Errorf("oldest ball not dropped: first is %v", balls[0])
	}
	if balls[MaxBalls-1].Radius != 99 {
		t.Errorf("new ball not last: %v", balls[MaxBalls-1])
	}
	for i := 1; i < MaxBalls-1; i++ {
		if balls[i].Pos[0] != float32(i+1) {
			t.Fatalf("order broken at %d: %v", i, balls[i])
		}
	}
}

func TestTickMovesAndBounces(t *testing.T) {
	var l BallList
	l.Add(Ball{Pos: mgl32.Vec2{0, 0}, Vel: mgl32.Vec2{1, -0.5}, Radius: 10}, false)
	l.Add(Ball{Pos: mgl32.Vec2{95, 0}, Vel: mgl32.Vec2{1, 0}, Radius: 10}, false)
	l.Add(Ball{Pos: mgl32.Vec2{0, -45}, Vel: mgl32.Vec2{0, -1}, Radius: 10}, false)

	if !l.Tick(0.05, 400, 100) {
		t.Fatal("Tick reported no movement")
	}
	b := l.Balls()
	if want := (mgl32.Vec2{7, -3.5}); !b[0].Pos.ApproxEqual(want) {
		t.Errorf("free ball at %v, want %v", b[0].Pos, want)
	}
	// 102 + 10 is still inside the right wall.
	if !b[1].Pos.ApproxEqual(mgl32.Vec2{102, 0}) || b[1].Vel[0] != 1 {
		t.Errorf("ball 1 = %+v", b[1])
	}
	// -45 - 7 - 10 < -50: reflected onto the floor.
	if b[2].Pos[1] != -40 || b[2].Vel[1] != 1 {
		t.Errorf("ball 2 = %+v, want y -40 moving up", b[2])
	}

	l.Add(Ball{Pos: mgl32.Vec2{185, 0}, Vel: mgl32.Vec2{2, 0}, Radius: 10}, false)
	l.Tick(0.05, 400, 100)
	if got := l.Balls()[3]; got.Pos[0] != 190 || got.Vel[0] != -2 {
		t.Errorf("wall bounce = %+v, want x 190 moving left", got)
	}
}

func TestTickWithoutTimeIsNoop(t *testing.T) {
	l := fillList(3)
	before := append([]Ball(nil), l.Balls()...)
	if l.Tick(0, 100, 100) {
		t.Error("Tick(0) reported movement")
	}
	for i, b := range l.Balls() {
		if b != before[i] {
			t.Errorf("ball %d moved: %v -> %v", i, before[i], b)
		}
	}
}

func TestUniformsPadWithZeroRadius(t *testing.T) {
	l := fillList(3)
	u := l.Uniforms()
	if len(u) != MaxBalls {
		t.Fatalf("len = %d, want %d", len(u), MaxBalls)
	}
	if u[2] != (mgl32.Vec4{2, 0, 1, 0}) {
		t.Errorf("u[2] = %v", u[2])
	}
	for i := 3; i < MaxBalls; i++ {
		if u[i][2] != 0 {
			t.Errorf("unused slot %d has radius %v", i, u[i][2])
		}
	}
}

func TestClickBall(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	c := config.ClickConfig{MinRadius: 60, MaxRadius: 18, Motion: 0}
	for range 100 {
		b := ClickBall(mgl32.Vec2{3, 4}, c, rng)
		if b.Radius < 18 || b.Radius > 60 {
			t.Fatalf("radius %v outside swapped range", b.Radius)
		}
		if b.Vel != (mgl32.Vec2{}) {
			t.Fatalf("zero motion gave velocity %v", b.Vel)
		}
		if b.Pos != (mgl32.Vec2{3, 4}) {
			t.Fatalf("position %v", b.Pos)
		}
	}
}
