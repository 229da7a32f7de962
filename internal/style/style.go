// Package style resolves the drawing attributes of an annotation from the
// editor mode and the store cursors. It knows nothing about shapes.
package style

import (
	"slices"

	"github.com/jask/annotator/internal/mode"
)

// Style is a flat set of stroke attributes. Zero values mean "unset" so that
// Merge can layer presets on top of each other.
type Style struct {
	StrokeColor string `mapstructure:"stroke_color" json:"stroke_color,omitempty" yaml:"stroke_color,omitempty"`
	LineWidth   int    `mapstructure:"line_width" json:"line_width,omitempty" yaml:"line_width,omitempty"`
	LineDash    []int  `mapstructure:"line_dash" json:"line_dash,omitempty" yaml:"line_dash,omitempty"`
}

// Merge returns s overridden by every attribute set in over.
func (s Style) Merge(over Style) Style {
	out := Style{StrokeColor: s.StrokeColor, LineWidth: s.LineWidth, LineDash: slices.Clone(s.LineDash)}
	if over.StrokeColor != "" {
		out.StrokeColor = over.StrokeColor
	}
	if over.LineWidth != 0 {
		out.LineWidth = over.LineWidth
	}
	if over.LineDash != nil {
		out.LineDash = slices.Clone(over.LineDash)
	}
	return out
}

func (s Style) Dashed() bool { return len(s.LineDash) > 0 }

func (s Style) Equal(o Style) bool {
	return s.StrokeColor == o.StrokeColor && s.LineWidth == o.LineWidth && slices.Equal(s.LineDash, o.LineDash)
}

// Theme is the full preset table.
type Theme struct {
	Base   Style `mapstructure:"base"`
	List   Style `mapstructure:"list"`
	Hover  Style `mapstructure:"hover"`
	Select Style `mapstructure:"select"`
	Create Style `mapstructure:"create"`
	Edit   Style `mapstructure:"edit"`
	Delete Style `mapstructure:"delete"`
}

// DefaultTheme returns the stock presets. Select is empty, so a selected
// annotation outside edit mode draws with the base style unless a config
// override sets it.
func DefaultTheme() Theme {
	return Theme{
		Base:   Style{StrokeColor: "yellow", LineWidth: 1},
		List:   Style{LineWidth: 1},
		Hover:  Style{StrokeColor: "cyan", LineWidth: 4},
		Select: Style{},
		Create: Style{StrokeColor: "red", LineWidth: 4, LineDash: []int{10, 15}},
		Edit:   Style{StrokeColor: "yellow", LineWidth: 6},
		Delete: Style{StrokeColor: "red", LineWidth: 4},
	}
}

// Override layers every set attribute of o on top of t, preset by preset.
func (t Theme) Override(o Theme) Theme {
	return Theme{
		Base:   t.Base.Merge(o.Base),
		List:   t.List.Merge(o.List),
		Hover:  t.Hover.Merge(o.Hover),
		Select: t.Select.Merge(o.Select),
		Create: t.Create.Merge(o.Create),
		Edit:   t.Edit.Merge(o.Edit),
		Delete: t.Delete.Merge(o.Delete),
	}
}

// Cursors is the part of the store state the resolver reads.
type Cursors struct {
	Selected string
	Hover    string
}

// Intrinsic is the store's own hint for id before any mode overlay:
// hovered, then selected, then plain list style.
func (t Theme) Intrinsic(id string, c Cursors) Style {
	switch {
	case id != "" && id == c.Hover:
		return t.Hover
	case id != "" && id == c.Selected:
		return t.Select
	}
	return t.List
}

// Resolve computes the style an annotation is drawn with. The base preset is
// merged with the store's intrinsic hint, then the first matching overlay
// wins: edit on the selected annotation, hover while browsing, hover while
// deleting.
func (t Theme) Resolve(id string, m mode.Mode, c Cursors, intrinsic Style) Style {
	s := t.Base.Merge(intrinsic)
	if id == "" {
		return s
	}
	switch {
	case m == mode.Edit && id == c.Selected:
		return s.Merge(t.Edit)
	case (m == mode.List || m == mode.Select) && id == c.Hover:
		return s.Merge(t.Hover)
	case m == mode.Delete && id == c.Hover:
		return s.Merge(t.Delete)
	}
	return s
}
