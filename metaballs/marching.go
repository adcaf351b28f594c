package metaballs

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/slimefield/gpu"
)

// Corners are the four field samples of one cell. The cell spans [0,1]²
// in local coordinates with SW at the origin.
type Corners struct {
	SW, SE, NE, NW float32
}

// Center is the average of the corners, used to split saddle cells.
func (c Corners) Center() float32 {
	return (c.SW + c.SE + c.NE + c.NW) / 4
}

// Bilinear interpolates the corners at local coordinate p.
func (c Corners) Bilinear(p mgl32.Vec2) float32 {
	return gpu.Mix(gpu.Mix(c.SW, c.SE, p[0]), gpu.Mix(c.NW, c.NE, p[0]), p[1])
}

// Gradient is the derivative of Bilinear at p.
func (c Corners) Gradient(p mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		gpu.Mix(c.SE-c.SW, c.NE-c.NW, p[1]),
		gpu.Mix(c.NW-c.SW, c.NE-c.SE, p[0]),
	}
}

// CellType classifies a cell into 0..15. A corner strictly above iso sets
// its bit: SW=1, SE=2, NE=4, NW=8.
func CellType(c Corners, iso float32) int {
	t := 0
	if c.SW > iso {
		t |= 1
	}
	if c.SE > iso {
		t |= 2
	}
	if c.NE > iso {
		t |= 4
	}
	if c.NW > iso {
		t |= 8
	}
	return t
}

// lerpEdge returns where iso crosses the edge from a to b, in [0,1].
func lerpEdge(a, b, iso float32) float32 {
	d := b - a
	if math.Abs(float64(d)) < 1e-6 {
		return 0.5
	}
	return gpu.Clamp((iso-a)/d, 0, 1)
}

// Crossings are the points where the iso line meets each cell edge. An
// edge the line does not cross holds its midpoint.
type Crossings struct {
	N, E, S, W mgl32.Vec2
}

// EdgeCrossings interpolates the iso crossing along each edge.
func EdgeCrossings(c Corners, iso float32) Crossings {
	at := func(a, b float32) float32 {
		if (a > iso) == (b > iso) {
			return 0.5
		}
		return lerpEdge(a, b, iso)
	}
	return Crossings{
		N: mgl32.Vec2{at(c.NW, c.NE), 1},
		S: mgl32.Vec2{at(c.SW, c.SE), 0},
		W: mgl32.Vec2{0, at(c.SW, c.NW)},
		E: mgl32.Vec2{1, at(c.SE, c.NE)},
	}
}

// Segment is one contour piece in local cell coordinates.
type Segment struct {
	A, B mgl32.Vec2
}

// CellSegments returns the contour segments of a cell. Types 0 and 15
// have none. The saddles 5 and 10 split by the cell centre: a centre above
// iso joins the two inside corners, otherwise it separates them.
func CellSegments(c Corners, iso float32) (segs [2]Segment, n int) {
	x := EdgeCrossings(c, iso)
	one := func(a, b mgl32.Vec2) ([2]Segment, int) {
		return [2]Segment{{a, b}}, 1
	}
	two := func(a, b, p, q mgl32.Vec2) ([2]Segment, int) {
		return [2]Segment{{a, b}, {p, q}}, 2
	}
	switch CellType(c, iso) {
	case 1, 14:
		return one(x.W, x.S)
	case 2, 13:
		return one(x.E, x.S)
	case 3, 12:
		return one(x.W, x.E)
	case 4, 11:
		return one(x.N, x.E)
	case 6, 9:
		return one(x.N, x.S)
	case 7, 8:
		return one(x.N, x.W)
	case 5:
		if c.Center() > iso {
			return two(x.N, x.W, x.S, x.E)
		}
		return two(x.W, x.S, x.N, x.E)
	case 10:
		if c.Center() > iso {
			return two(x.N, x.E, x.S, x.W)
		}
		return two(x.S, x.E, x.N, x.W)
	}
	return segs, 0
}

// SegmentDistance is the distance from p to the segment a-b.
func SegmentDistance(p, a, b mgl32.Vec2) float32 {
	pa, ba := p.Sub(a), b.Sub(a)
	var h float32
	if l := ba.Dot(ba); l > 0 {
		h = gpu.Clamp(pa.Dot(ba)/l, 0, 1)
	}
	return pa.Sub(ba.Mul(h)).Len()
}

// lineCoverage is the anti-aliased coverage of a segment of width w at p.
func lineCoverage(p mgl32.Vec2, s Segment, w float32) float32 {
	return 1 - gpu.Smoothstep(w, w*1.8, SegmentDistance(p, s.A, s.B))
}

// FieldSize scales the base grid resolution to the viewport aspect. The
// short side gets base texels.
func FieldSize(base, w, h int) (fw, fh int) {
	aspect := float64(w) / float64(max(1, h))
	fw, fh = base, base
	if aspect >= 1 {
		fw = max(2, int(math.Round(float64(base)*aspect)))
	} else {
		fh = max(2, int(math.Round(float64(base)/aspect)))
	}
	return fw, fh
}
