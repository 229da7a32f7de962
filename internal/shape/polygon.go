package shape

import (
	"math"

	"github.com/jask/annotator/internal/annotation"
	"github.com/jask/annotator/internal/geom"
	"github.com/jask/annotator/internal/style"
)

// MinStep is the distance below which consecutive captured points collapse.
const MinStep = 0.01

// MinArea is the smallest enclosed area a polygon may have.
const MinArea = MinExtent * MinExtent

// Polygon is a closed outline traced by a freehand gesture.
type Polygon struct{}

func (Polygon) Kind() string { return "polygon" }

func (Polygon) Build(points []geom.Point) annotation.Payload {
	out := make([]geom.Point, 0, len(points))
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Dist(p) < MinStep {
			continue
		}
		out = append(out, p)
	}
	return annotation.Payload{Shape: "polygon", Points: out}
}

func (Polygon) Validate(p annotation.Payload) (annotation.Payload, error) {
	if len(p.Points) < 3 {
		return p, rejectf("polygon needs at least 3 points, got %d", len(p.Points))
	}
	out := p.Clone()
	out.Points = clampAll(p.Points)
	if math.Abs(geom.Area(out.Points)) < MinArea {
		return p, rejectf("polygon encloses no area")
	}
	return out, nil
}

func (Polygon) HitTest(p annotation.Payload, at geom.Point, tolerance float64) bool {
	n := len(p.Points)
	if n == 0 {
		return false
	}
	if n >= 3 && geom.InPolygon(at, p.Points) {
		return true
	}
	for i := range p.Points {
		if geom.SegmentDist(at, p.Points[i], p.Points[(i+1)%n]) <= tolerance {
			return true
		}
	}
	return false
}

func (Polygon) Draw(dst Surface, p annotation.Payload, s style.Style) {
	if len(p.Points) < 2 {
		return
	}
	drawClosed(dst, p.Points, s)
}
