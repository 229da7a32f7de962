// Package shape provides per-shape strategies: how an annotation kind is
// built from a captured gesture, validated, hit-tested and drawn.
package shape

import (
	"context"
	"fmt"
	"slices"

	"github.com/jask/annotator/internal/annotation"
	"github.com/jask/annotator/internal/geom"
	"github.com/jask/annotator/internal/store"
	"github.com/jask/annotator/internal/style"
)

// Surface is the drawing target. Points are normalized; the surface maps
// them onto its own pixels or cells.
type Surface interface {
	Size() geom.Size
	Clear()
	Line(a, b geom.Point, s style.Style)
}

// Strategy is the capability set of one annotation kind.
type Strategy interface {
	Kind() string
	// Build turns the points captured during a create gesture into a payload.
	Build(points []geom.Point) annotation.Payload
	// Validate normalizes p or returns an error wrapping store.ErrValidationRejected.
	Validate(p annotation.Payload) (annotation.Payload, error)
	HitTest(p annotation.Payload, at geom.Point, tolerance float64) bool
	Draw(dst Surface, p annotation.Payload, s style.Style)
}

// Registry maps shape kinds to strategies, keeping registration order.
type Registry struct {
	kinds      []string
	strategies map[string]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: map[string]Strategy{}}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Defaults returns a registry with the rect and polygon strategies.
func Defaults() *Registry {
	return NewRegistry(Rect{}, Polygon{})
}

func (r *Registry) Register(s Strategy) {
	if _, ok := r.strategies[s.Kind()]; !ok {
		r.kinds = append(r.kinds, s.Kind())
	}
	r.strategies[s.Kind()] = s
}

func (r *Registry) Lookup(kind string) (Strategy, bool) {
	s, ok := r.strategies[kind]
	return s, ok
}

func (r *Registry) Kinds() []string { return slices.Clone(r.kinds) }

// Next returns the kind registered after kind, wrapping around.
func (r *Registry) Next(kind string) string {
	if len(r.kinds) == 0 {
		return kind
	}
	i := slices.Index(r.kinds, kind)
	return r.kinds[(i+1)%len(r.kinds)]
}

// Validate implements store.Validator by dispatching on the payload's shape.
func (r *Registry) Validate(_ context.Context, p annotation.Payload) (annotation.Payload, error) {
	s, ok := r.strategies[p.Shape]
	if !ok {
		return p, fmt.Errorf("shape %q: %w", p.Shape, store.ErrValidationRejected)
	}
	return s.Validate(p)
}

// Hit returns the id of the topmost entry under at. Later entries draw on top
// so the list is walked backwards.
func (r *Registry) Hit(entries []annotation.Entry, at geom.Point, tolerance float64) (string, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		s, ok := r.strategies[e.Payload.Shape]
		if !ok {
			continue
		}
		if s.HitTest(e.Payload, at, tolerance) {
			return e.ID, true
		}
	}
	return "", false
}

// NearestVertex returns the index of the vertex of p within tolerance of at,
// or -1.
func NearestVertex(p annotation.Payload, at geom.Point, tolerance float64) int {
	best, bestDist := -1, tolerance
	for i, v := range p.Points {
		if d := v.Dist(at); d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func rejectf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), store.ErrValidationRejected)
}

func clampAll(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = p.Clamp()
	}
	return out
}

func drawClosed(dst Surface, pts []geom.Point, s style.Style) {
	for i := range pts {
		dst.Line(pts[i], pts[(i+1)%len(pts)], s)
	}
}
