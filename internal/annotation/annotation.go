package annotation

import (
	"maps"
	"slices"

	"github.com/jask/annotator/internal/geom"
)

// Payload is the geometry and metadata of one annotation. Shape names the
// strategy that knows how to draw and hit-test it; Points are normalized.
type Payload struct {
	Shape  string            `json:"shape" yaml:"shape"`
	Points []geom.Point      `json:"points" yaml:"points"`
	Label  string            `json:"label,omitempty" yaml:"label,omitempty"`
	Meta   map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Clone returns a deep copy so callers never share point slices with the store.
func (p Payload) Clone() Payload {
	out := p
	out.Points = slices.Clone(p.Points)
	if p.Meta != nil {
		out.Meta = maps.Clone(p.Meta)
	}
	return out
}

// Equal compares payloads field by field.
func (p Payload) Equal(q Payload) bool {
	return p.Shape == q.Shape &&
		p.Label == q.Label &&
		slices.Equal(p.Points, q.Points) &&
		maps.Equal(p.Meta, q.Meta)
}

// Entry is a stored annotation.
type Entry struct {
	ID      string  `json:"id" yaml:"id"`
	Payload Payload `json:"payload" yaml:"payload"`
	Version int     `json:"version" yaml:"version"`
}
