package metaballs

import (
	"math"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// cornersFor builds a cell of the given type with inside corners at 2 and
// outside corners at 0, so every crossing sits at an edge midpoint for
// iso 1 and the centre equals iso.
func cornersFor(cellType int) Corners {
	v := func(bit int) float32 {
		if cellType&bit != 0 {
			return 2
		}
		return 0
	}
	return Corners{SW: v(1), SE: v(2), NE: v(4), NW: v(8)}
}

func edgeOf(p mgl32.Vec2) string {
	switch {
	case p[1] == 1:
		return "N"
	case p[1] == 0:
		return "S"
	case p[0] == 1:
		return "E"
	case p[0] == 0:
		return "W"
	}
	return ""
}

// segmentEdges returns the edge pair of each segment, each pair sorted.
func segmentEdges(segs [2]Segment, n int) [][2]string {
	var out [][2]string
	for _, s := range segs[:n] {
		pair := []string{edgeOf(s.A), edgeOf(s.B)}
		slices.Sort(pair)
		out = append(out, [2]string{pair[0], pair[1]})
	}
	slices.SortFunc(out, func(a, b [2]string) int {
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		if a[1] < b[1] {
			return -1
		}
		if a[1] > b[1] {
			return 1
		}
		return 0
	})
	return out
}

func TestCellType(t *testing.T) {
	for want := range 16 {
		if got := CellType(cornersFor(want), 1); got != want {
			t.Errorf("CellType(cornersFor(%d)) = %d", want, got)
		}
	}
	// A corner exactly at iso is outside.
	if got := CellType(Corners{SW: 1, SE: 1, NE: 1, NW: 1}, 1); got != 0 {
		t.Errorf("CellType(all at iso) = %d, want 0", got)
	}
}

func TestUniformCellsDrawNothing(t *testing.T) {
	for _, ct := range []int{0, 15} {
		if _, n := CellSegments(cornersFor(ct), 1); n != 0 {
			t.Errorf("type %d drew %d segments", ct, n)
		}
	}
}

func TestMixedCellsDrawOnEdges(t *testing.T) {
	for ct := 1; ct <= 14; ct++ {
		segs, n := CellSegments(cornersFor(ct), 1)
		if n < 1 {
			t.Errorf("type %d drew no segment", ct)
			continue
		}
		for _, s := range segs[:n] {
			ea, eb := edgeOf(s.A), edgeOf(s.B)
			if ea == "" || eb == "" {
				t.Errorf("type %d: segment %v-%v has an endpoint off the cell edges", ct, s.A, s.B)
			}
			if ea == eb {
				t.Errorf("type %d: segment %v-%v lies on a single edge", ct, s.A, s.B)
			}
		}
	}
}

func TestCellSegmentsSeparateInsideCorners(t *testing.T) {
	tests := []struct {
		cellType int
		want     [][2]string
	}{
		{1, [][2]string{{"S", "W"}}},
		{2, [][2]string{{"E", "S"}}},
		{3, [][2]string{{"E", "W"}}},
		{4, [][2]string{{"E", "N"}}},
		{6, [][2]string{{"N", "S"}}},
		{7, [][2]string{{"N", "W"}}},
		{8, [][2]string{{"N", "W"}}},
		{9, [][2]string{{"N", "S"}}},
		{11, [][2]string{{"E", "N"}}},
		{12, [][2]string{{"E", "W"}}},
		{13, [][2]string{{"E", "S"}}},
		{14, [][2]string{{"S", "W"}}},
	}
	for _, tt := range tests {
		segs, n := CellSegments(cornersFor(tt.cellType), 1)
		if got := segmentEdges(segs, n); !slices.Equal(got, tt.want) {
			t.Errorf("type %d edges = %v, want %v", tt.cellType, got, tt.want)
		}
	}
}

func TestSaddleResolution(t *testing.T) {
	tests := []struct {
		name    string
		corners Corners
		want    [][2]string
	}{
		// Type 5: SW and NE inside.
		{"5 centre below", Corners{SW: 2, SE: 0, NE: 2, NW: 0}, [][2]string{{"E", "N"}, {"S", "W"}}},
		{"5 centre above", Corners{SW: 2, SE: 0, NE: 3, NW: 0}, [][2]string{{"E", "S"}, {"N", "W"}}},
		// Type 10: SE and NW inside.
		{"10 centre below", Corners{SW: 0, SE: 2, NE: 0, NW: 2}, [][2]string{{"E", "S"}, {"N", "W"}}},
		{"10 centre above", Corners{SW: 0, SE: 3, NE: 0, NW: 2}, [][2]string{{"E", "N"}, {"S", "W"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, n := CellSegments(tt.corners, 1)
			if n != 2 {
				t.Fatalf("saddle drew %d segments, want 2", n)
			}
			got := segmentEdges(segs, n)
			if !slices.Equal(got, tt.want) {
				t.Errorf("edges = %v, want %v", got, tt.want)
			}
			again, _ := CellSegments(tt.corners, 1)
			if again != segs {
				t.Errorf("saddle resolution is not stable: %v then %v", segs, again)
			}
		})
	}
}

func TestEdgeCrossingsInterpolate(t *testing.T) {
	c := Corners{SW: 0, SE: 4, NE: 4, NW: 0}
	x := EdgeCrossings(c, 1)
	if math.Abs(float64(x.S[0]-0.25)) > 1e-6 || math.Abs(float64(x.N[0]-0.25)) > 1e-6 {
		t.Errorf("crossings S=%v N=%v, want x=0.25", x.S, x.N)
	}
	// Uncrossed edges hold their midpoint.
	if x.W != (mgl32.Vec2{0, 0.5}) || x.E != (mgl32.Vec2{1, 0.5}) {
		t.Errorf("uncrossed W=%v E=%v", x.W, x.E)
	}
	// Nearly equal ends fall back to the midpoint.
	if got := lerpEdge(1, 1+1e-8, 1); got != 0.5 {
		t.Errorf("lerpEdge on flat edge = %v, want 0.5", got)
	}
}

func TestSegmentDistance(t *testing.T) {
	tests := []struct {
		p, a, b mgl32.Vec2
		want    float32
	}{
		{mgl32.Vec2{0.5, 1}, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, 1},
		{mgl32.Vec2{2, 0}, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, 1},
		{mgl32.Vec2{0.5, 0}, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, 0},
		{mgl32.Vec2{3, 4}, mgl32.Vec2{0, 0}, mgl32.Vec2{0, 0}, 5},
	}
	for _, tt := range tests {
		if got := SegmentDistance(tt.p, tt.a, tt.b); math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("SegmentDistance(%v, %v, %v) = %v, want %v", tt.p, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFieldSizeFollowsAspect(t *testing.T) {
	tests := []struct {
		base, w, h int
		fw, fh     int
	}{
		{256, 256, 256, 256, 256},
		{512, 1600, 900, 910, 512},
		{256, 900, 1600, 256, 455},
		{2, 1, 1000, 2, 2000},
	}
	for _, tt := range tests {
		fw, fh := FieldSize(tt.base, tt.w, tt.h)
		if fw != tt.fw || fh != tt.fh {
			t.Errorf("FieldSize(%d, %d, %d) = %d, %d; want %d, %d", tt.base, tt.w, tt.h, fw, fh, tt.fw, tt.fh)
		}
	}
}

func TestPotentialMidpoint(t *testing.T) {
	const r, d = 10, 1000
	balls := []mgl32.Vec4{{-d / 2, 0, r, 0}, {d / 2, 0, r, 0}}
	got := Potential(mgl32.Vec2{}, balls, 2)
	want := 2.0 * r * r / ((d / 2) * (d / 2))
	if rel := math.Abs(float64(got)-want) / want; rel > 1e-5 {
		t.Errorf("midpoint potential = %v, want %v", got, want)
	}
	// Only the first n balls count, and unused slots are inert.
	if got := Potential(mgl32.Vec2{}, balls, 1); math.Abs(float64(got)-want/2) > want*1e-5 {
		t.Errorf("one-ball potential = %v, want %v", got, want/2)
	}
	padded := append(balls, make([]mgl32.Vec4, MaxBalls-2)...)
	if got := Potential(mgl32.Vec2{}, padded, MaxBalls); math.Abs(float64(got)-want) > want*1e-5 {
		t.Errorf("padded potential = %v, want %v", got, want)
	}
}

func TestPotentialAtCentreIsBounded(t *testing.T) {
	got := Potential(mgl32.Vec2{}, []mgl32.Vec4{{0, 0, 1, 0}}, 1)
	if math.Abs(float64(got)-1e4) > 0.01 {
		t.Errorf("potential at centre = %v, want 1e4", got)
	}
}
