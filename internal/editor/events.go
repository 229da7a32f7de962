package editor

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/annotator/internal/geom"
	"github.com/jask/annotator/internal/mode"
)

// Event is anything the host feeds into Controller.Handle.
type Event interface{ event() }

type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
)

func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	}
	return "unknown"
}

// PointerEvent carries a position in surface pixels.
type PointerEvent struct {
	Kind PointerKind
	Pos  geom.Point
}

type KeyEvent struct {
	Msg tea.KeyMsg
}

// VisualizerUpdated is sent when the underlying visualization re-rendered.
type VisualizerUpdated struct{}

// Resized is sent when the host surface changed size.
type Resized struct{}

func (PointerEvent) event()      {}
func (KeyEvent) event()          {}
func (VisualizerUpdated) event() {}
func (Resized) event()           {}

// Visualizer is the rendering collaborator the annotation layer sits on.
type Visualizer interface {
	AdjustSize()
	Draw()
	// WaitUntilReady blocks until the first frame can be drawn.
	WaitUntilReady(ctx context.Context) error
	Size() geom.Size
}

// Toolbar observes mode and activation changes. It must not call back into
// the controller synchronously.
type Toolbar interface {
	Sync(c mode.Change)
}

type ToolbarFunc func(c mode.Change)

func (f ToolbarFunc) Sync(c mode.Change) { f(c) }

// Recorder receives the outcome of every mutating call.
type Recorder interface {
	Mutation(op, outcome string)
	Annotations(n int)
}

type nopRecorder struct{}

func (nopRecorder) Mutation(string, string) {}
func (nopRecorder) Annotations(int)         {}
