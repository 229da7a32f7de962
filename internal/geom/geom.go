// Package geom holds the small amount of planar geometry the editor needs:
// points, canvas sizes, coordinate mapping and distance helpers for hit tests.
package geom

import "math"

// Point is a position either in pixels or in normalized [0,1] canvas space,
// depending on who holds it. Payloads always store normalized points.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Clamp limits both coordinates to [0,1].
func (p Point) Clamp() Point {
	return Point{X: clamp01(p.X), Y: clamp01(p.Y)}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Size is a canvas size in pixels (or terminal cells).
type Size struct {
	W int
	H int
}

func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// Mapper converts between pixel and normalized coordinates. The editor takes
// one as a dependency so hosts with non-trivial canvases can supply their own.
type Mapper interface {
	PixelToCoords(size Size, p Point) Point
	CoordsToPixel(size Size, p Point) Point
}

// LinearMapper scales by the canvas size.
type LinearMapper struct{}

func (LinearMapper) PixelToCoords(size Size, p Point) Point {
	if size.Empty() {
		return Point{}
	}
	return Point{X: p.X / float64(size.W), Y: p.Y / float64(size.H)}
}

func (LinearMapper) CoordsToPixel(size Size, p Point) Point {
	return Point{X: p.X * float64(size.W), Y: p.Y * float64(size.H)}
}

// Bounds returns the axis aligned bounding box of pts as (min, max).
func Bounds(pts []Point) (Point, Point) {
	if len(pts) == 0 {
		return Point{}, Point{}
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// SegmentDist returns the distance from p to the segment ab.
func SegmentDist(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(Point{X: a.X + t*ab.X, Y: a.Y + t*ab.Y})
}

// InPolygon reports whether p lies inside the closed polygon (even-odd rule).
func InPolygon(p Point, poly []Point) bool {
	in := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// Area returns the signed area of the closed polygon pts (shoelace formula).
// Counter-clockwise outlines are positive.
func Area(pts []Point) float64 {
	var a float64
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a += pts[j].X*pts[i].Y - pts[i].X*pts[j].Y
	}
	return a / 2
}

// Translate returns a copy of pts moved by d.
func Translate(pts []Point, d Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = p.Add(d)
	}
	return out
}
