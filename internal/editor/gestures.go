package editor

import (
	"context"
	"slices"

	"github.com/jask/annotator/internal/annotation"
	"github.com/jask/annotator/internal/geom"
	"github.com/jask/annotator/internal/mode"
	"github.com/jask/annotator/internal/render"
	"github.com/jask/annotator/internal/shape"
	"github.com/jask/annotator/internal/store"
)

type gestureKind int

const (
	gestureCreate gestureKind = iota
	gestureEdit
	gesturePick
)

// gesture is the uncommitted state of a pointer drag. Nothing in it reaches
// the store before pointer up.
type gesture struct {
	kind gestureKind
	id   string

	// create
	shape  string
	points []geom.Point

	// edit: vertex < 0 moves the whole shape
	origin  geom.Point
	base    annotation.Payload
	vertex  int
	current annotation.Payload
}

func (c *Controller) discardGesture() { c.gesture = nil }

func (c *Controller) overlay() *render.Overlay {
	g := c.gesture
	if g == nil {
		return nil
	}
	switch g.kind {
	case gestureCreate:
		s, ok := c.shapes.Lookup(g.shape)
		if !ok {
			return nil
		}
		return &render.Overlay{Payload: s.Build(g.points)}
	case gestureEdit:
		return &render.Overlay{ID: g.id, Payload: g.current}
	}
	return nil
}

func (c *Controller) hit(at geom.Point) (string, bool) {
	return c.shapes.Hit(c.store.List(), at, c.tolerance)
}

func (c *Controller) onPointerDown(ctx context.Context, at geom.Point) {
	switch c.modes.Get() {
	case mode.List:
		if id, ok := c.hit(at); ok {
			c.record("select", id, c.selectAnnotation(id))
		}
	case mode.Create:
		c.gesture = &gesture{kind: gestureCreate, shape: c.shapeKind, points: []geom.Point{at}}
		c.redraw()
	case mode.Edit:
		c.beginEdit(at)
	case mode.Delete:
		id, ok := c.hit(at)
		if !ok {
			_ = c.store.Select(store.None)
			c.redraw()
			return
		}
		_ = c.store.Select(id)
		c.gesture = &gesture{kind: gesturePick, id: id}
		c.redraw()
	}
}

func (c *Controller) beginEdit(at geom.Point) {
	if sel := c.store.SelectedID(); sel != store.None {
		p, err := c.store.Get(sel)
		if err == nil {
			vertex := shape.NearestVertex(p, at, c.tolerance)
			s, known := c.shapes.Lookup(p.Shape)
			if vertex >= 0 || (known && s.HitTest(p, at, c.tolerance)) {
				c.gesture = &gesture{
					kind:    gestureEdit,
					id:      sel,
					origin:  at,
					base:    p,
					vertex:  vertex,
					current: p.Clone(),
				}
				c.redraw()
				return
			}
		}
	}
	if id, ok := c.hit(at); ok {
		c.record("select", id, c.selectAnnotation(id))
		return
	}
	_ = c.setState(mode.List)
}

func (c *Controller) onPointerMove(at geom.Point) {
	g := c.gesture
	switch {
	case g != nil && g.kind == gestureCreate:
		g.points = append(g.points, at)
		c.redraw()
	case g != nil && g.kind == gestureEdit:
		next := g.base.Clone()
		if g.vertex >= 0 {
			next.Points[g.vertex] = at
		} else {
			next.Points = geom.Translate(g.base.Points, at.Sub(g.origin))
		}
		g.current = next
		c.redraw()
	case g == nil && (c.modes.Is(mode.List) || c.modes.Is(mode.Delete)):
		id, _ := c.hit(at)
		if id == c.store.HoverID() {
			return
		}
		_ = c.store.HoverOn(id)
		c.redraw()
	}
}

func (c *Controller) onPointerUp(ctx context.Context, at geom.Point) {
	g := c.gesture
	if g == nil {
		return
	}
	c.gesture = nil
	switch g.kind {
	case gestureCreate:
		if n := len(g.points); n == 0 || g.points[n-1] != at {
			g.points = append(g.points, at)
		}
		s, ok := c.shapes.Lookup(g.shape)
		if !ok {
			c.redraw()
			return
		}
		id, err := c.registerAnnotation(ctx, s.Build(g.points))
		c.record("create", id, err)
	case gestureEdit:
		if slices.Equal(g.current.Points, g.base.Points) {
			c.redraw()
			return
		}
		c.record("edit", g.id, c.updateAnnotation(ctx, g.id, g.current))
	case gesturePick:
		if id, ok := c.hit(at); ok && id == g.id {
			c.record("delete", id, c.deleteAnnotation(ctx, id))
			return
		}
		_ = c.store.Select(store.None)
		c.redraw()
	}
}

func (c *Controller) onKey(ctx context.Context, ev KeyEvent) bool {
	action, ok := c.keys.ActionFor(ev.Msg, ModeScope(c.modes.Get()))
	if !ok {
		return false
	}
	c.logger.Debug("key action", "key", ev.Msg.String(), "action", action)
	switch action {
	case ActionModeCreate:
		_ = c.setState(mode.Create)
	case ActionModeList:
		_ = c.setState(mode.List)
	case ActionModeDelete:
		_ = c.setState(mode.Delete)
	case ActionDeleteSelected:
		id := c.store.SelectedID()
		if id == store.None {
			return false
		}
		c.record("delete", id, c.deleteAnnotation(ctx, id))
	case ActionCancel:
		switch {
		case c.gesture != nil:
			c.discardGesture()
			c.redraw()
		case c.modes.Is(mode.Edit), c.modes.Is(mode.Delete):
			_ = c.setState(mode.List)
		}
	case ActionShapeNext:
		c.shapeKind = c.shapes.Next(c.shapeKind)
	default:
		return false
	}
	return true
}
