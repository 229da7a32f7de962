// Package render redraws the annotation layer: every stored annotation with
// its resolved style, then whatever gesture is in progress.
package render

import (
	"log/slog"

	"github.com/jask/annotator/internal/annotation"
	"github.com/jask/annotator/internal/mode"
	"github.com/jask/annotator/internal/shape"
	"github.com/jask/annotator/internal/style"
)

// Source is the read-only view of the store the dispatcher needs.
type Source interface {
	List() []annotation.Entry
	Cursors() style.Cursors
	Style(id string) style.Style
}

// Overlay is geometry of a gesture that has not been committed yet. For an
// edit, ID names the annotation being changed so its stored version is not
// drawn twice.
type Overlay struct {
	ID      string
	Payload annotation.Payload
}

func (o *Overlay) empty() bool { return o == nil || len(o.Payload.Points) == 0 }

// Dispatcher draws onto a shape.Surface. Draw never writes to the store.
type Dispatcher struct {
	src     Source
	modes   *mode.Machine
	shapes  *shape.Registry
	surface shape.Surface
	theme   style.Theme
	logger  *slog.Logger
}

func NewDispatcher(src Source, modes *mode.Machine, shapes *shape.Registry, surface shape.Surface, theme style.Theme) *Dispatcher {
	return &Dispatcher{
		src:     src,
		modes:   modes,
		shapes:  shapes,
		surface: surface,
		theme:   theme,
		logger:  slog.Default().With("component", "render"),
	}
}

// SetTheme swaps the preset table used from the next Draw on.
func (d *Dispatcher) SetTheme(t style.Theme) { d.theme = t }

func (d *Dispatcher) Theme() style.Theme { return d.theme }

// StyleFor resolves the style of one stored annotation in mode m.
func (d *Dispatcher) StyleFor(id string, m mode.Mode, c style.Cursors) style.Style {
	return d.theme.Resolve(id, m, c, d.src.Style(id))
}

// Draw clears the surface and repaints. overlay may be nil.
func (d *Dispatcher) Draw(overlay *Overlay) {
	m := d.modes.Get()
	cursors := d.src.Cursors()

	d.surface.Clear()
	for _, e := range d.src.List() {
		if m == mode.Edit && !overlay.empty() && overlay.ID == e.ID {
			continue
		}
		d.drawPayload(e.Payload, d.StyleFor(e.ID, m, cursors))
	}

	if overlay.empty() {
		return
	}
	switch m {
	case mode.Create:
		d.drawPayload(overlay.Payload, d.theme.Base.Merge(d.theme.Create))
	case mode.Edit:
		d.drawPayload(overlay.Payload, d.theme.Base.Merge(d.theme.Edit))
	}
}

func (d *Dispatcher) drawPayload(p annotation.Payload, s style.Style) {
	strategy, ok := d.shapes.Lookup(p.Shape)
	if !ok {
		d.logger.Warn("no strategy for shape", "shape", p.Shape)
		return
	}
	strategy.Draw(d.surface, p, s)
}
