package shape

import (
	"github.com/jask/annotator/internal/annotation"
	"github.com/jask/annotator/internal/geom"
	"github.com/jask/annotator/internal/style"
)

// MinExtent is the smallest width or height a rectangle may have.
const MinExtent = 0.005

// Rect is an axis aligned box stored as two opposite corners.
type Rect struct{}

func (Rect) Kind() string { return "rect" }

func (Rect) Build(points []geom.Point) annotation.Payload {
	p := annotation.Payload{Shape: "rect"}
	if len(points) > 0 {
		p.Points = []geom.Point{points[0], points[len(points)-1]}
	}
	return p
}

// Validate clamps the corners and orders them top-left, bottom-right.
func (Rect) Validate(p annotation.Payload) (annotation.Payload, error) {
	if len(p.Points) != 2 {
		return p, rejectf("rect needs 2 corners, got %d", len(p.Points))
	}
	lo, hi := geom.Bounds(clampAll(p.Points))
	if hi.X-lo.X < MinExtent || hi.Y-lo.Y < MinExtent {
		return p, rejectf("rect is degenerate")
	}
	out := p.Clone()
	out.Points = []geom.Point{lo, hi}
	return out, nil
}

func (Rect) HitTest(p annotation.Payload, at geom.Point, tolerance float64) bool {
	if len(p.Points) < 2 {
		return false
	}
	lo, hi := geom.Bounds(p.Points)
	return at.X >= lo.X-tolerance && at.X <= hi.X+tolerance &&
		at.Y >= lo.Y-tolerance && at.Y <= hi.Y+tolerance
}

func (Rect) Draw(dst Surface, p annotation.Payload, s style.Style) {
	if len(p.Points) < 2 {
		return
	}
	lo, hi := geom.Bounds(p.Points)
	drawClosed(dst, []geom.Point{lo, {X: hi.X, Y: lo.Y}, hi, {X: lo.X, Y: hi.Y}}, s)
}
