// Package editor is the interaction controller of the annotation layer. It
// turns pointer, keyboard and visualizer events into mode transitions and
// store mutations, and asks the render dispatcher to repaint afterwards.
//
// All handlers and host calls are serialized by one mutex, so a second
// gesture can never observe or interleave with a mutation that is still
// waiting on an external delegate.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jask/annotator/internal/annotation"
	"github.com/jask/annotator/internal/geom"
	"github.com/jask/annotator/internal/mode"
	"github.com/jask/annotator/internal/render"
	"github.com/jask/annotator/internal/shape"
	"github.com/jask/annotator/internal/store"
	"github.com/jask/annotator/internal/style"
)

// DefaultTolerance is the hit test slack in normalized units.
const DefaultTolerance = 0.02

type Controller struct {
	mu sync.Mutex

	store    *store.Store
	modes    *mode.Machine
	draw     *render.Dispatcher
	vis      Visualizer
	shapes   *shape.Registry
	keys     *KeyRegistry
	mapper   geom.Mapper
	toolbar  Toolbar
	recorder Recorder
	logger   *slog.Logger

	tolerance float64
	shapeKind string
	gesture   *gesture

	mounted bool
	started bool
	ready   bool
	unsubs  []func()
}

type Option func(*Controller)

func WithShapes(r *shape.Registry) Option   { return func(c *Controller) { c.shapes = r } }
func WithKeyRegistry(k *KeyRegistry) Option { return func(c *Controller) { c.keys = k } }
func WithMapper(m geom.Mapper) Option       { return func(c *Controller) { c.mapper = m } }
func WithToolbar(t Toolbar) Option          { return func(c *Controller) { c.toolbar = t } }
func WithRecorder(r Recorder) Option        { return func(c *Controller) { c.recorder = r } }
func WithLogger(l *slog.Logger) Option      { return func(c *Controller) { c.logger = l } }
func WithTolerance(tol float64) Option      { return func(c *Controller) { c.tolerance = tol } }
func WithInitialShape(kind string) Option   { return func(c *Controller) { c.shapeKind = kind } }

// New wires a controller. The dispatcher must read from st and modes.
func New(st *store.Store, modes *mode.Machine, draw *render.Dispatcher, vis Visualizer, opts ...Option) *Controller {
	c := &Controller{
		store:     st,
		modes:     modes,
		draw:      draw,
		vis:       vis,
		shapes:    shape.Defaults(),
		keys:      NewKeyRegistry(DefaultKeyBindings()),
		mapper:    geom.LinearMapper{},
		recorder:  nopRecorder{},
		logger:    slog.Default().With("component", "editor"),
		tolerance: DefaultTolerance,
		mounted:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, ok := c.shapes.Lookup(c.shapeKind); !ok {
		if kinds := c.shapes.Kinds(); len(kinds) > 0 {
			c.shapeKind = kinds[0]
		}
	}
	if c.toolbar != nil {
		c.unsubs = append(c.unsubs, modes.OnChange(c.toolbar.Sync))
	}
	return c
}

// Start adjusts the visualizer size, waits once for it to become ready, then
// resizes again and draws the visualization and the first annotation frame.
// Later calls return immediately.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.vis.AdjustSize()
	c.mu.Unlock()

	if err := c.vis.WaitUntilReady(ctx); err != nil {
		return fmt.Errorf("wait for visualizer: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = true
	if c.mounted {
		c.refit()
	}
	c.logger.Debug("editor started", "size", c.vis.Size())
	return nil
}

// Unmount detaches the controller from every event source. Once it returns,
// Handle ignores events and no toolbar notification is delivered.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	c.mounted = false
	c.gesture = nil
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
	c.logger.Debug("editor unmounted")
}

// Handle dispatches one host event. It reports whether the event was used.
func (c *Controller) Handle(ctx context.Context, ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return false
	}
	switch ev := ev.(type) {
	case VisualizerUpdated:
		c.redraw()
		return true
	case Resized:
		c.refit()
		return true
	case KeyEvent:
		if !c.modes.Active() {
			return false
		}
		return c.onKey(ctx, ev)
	case PointerEvent:
		if !c.modes.Active() {
			return false
		}
		at := c.mapper.PixelToCoords(c.vis.Size(), ev.Pos)
		switch ev.Kind {
		case PointerDown:
			c.onPointerDown(ctx, at)
		case PointerMove:
			c.onPointerMove(at)
		case PointerUp:
			c.onPointerUp(ctx, at)
		}
		return true
	}
	return false
}

func (c *Controller) Mode() mode.Mode     { return c.modes.Get() }
func (c *Controller) Active() bool        { return c.modes.Active() }
func (c *Controller) Store() *store.Store { return c.store }

// Shape is the kind new annotations are created with.
func (c *Controller) Shape() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shapeKind
}

func (c *Controller) SetShape(kind string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.shapes.Lookup(kind); !ok {
		return fmt.Errorf("unknown shape %q", kind)
	}
	c.shapeKind = kind
	return nil
}

// SetKeyBindings swaps the key registry, e.g. after a config reload.
func (c *Controller) SetKeyBindings(bindings []KeyBinding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = NewKeyRegistry(bindings)
}

func (c *Controller) KeyBindings() *KeyRegistry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys
}

func (c *Controller) SetTheme(t style.Theme) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draw.SetTheme(t)
	c.redraw()
}

func (c *Controller) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modes.Activate()
}

func (c *Controller) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modes.Deactivate()
	c.discardGesture()
	c.redraw()
}

// ToggleActivate flips the activation flag.
func (c *Controller) ToggleActivate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modes.Toggle()
	if !c.modes.Active() {
		c.discardGesture()
		c.redraw()
	}
}

// SetState changes mode. Entering list or create clears the selection first;
// the frame is drawn only after both steps.
func (c *Controller) SetState(m mode.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.modes.Active() {
		return store.ErrInactiveEditor
	}
	return c.setState(m)
}

func (c *Controller) setState(m mode.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("set state: unknown mode %q", m)
	}
	if m.ClearsSelection() {
		_ = c.store.Select(store.None)
	}
	c.discardGesture()
	if err := c.modes.Set(m); err != nil {
		return err
	}
	c.redraw()
	return nil
}

// SelectAnnotation selects id. In delete mode it only marks the target; in
// any other mode it enters edit mode, which requires edit permission.
// Selecting store.None returns to list mode.
func (c *Controller) SelectAnnotation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.selectAnnotation(id)
	c.record("select", id, err)
	return err
}

func (c *Controller) selectAnnotation(id string) error {
	if !c.modes.Active() {
		return store.ErrInactiveEditor
	}
	if id == store.None {
		return c.setState(mode.List)
	}
	if !c.store.Has(id) {
		return fmt.Errorf("select %q: %w", id, store.ErrUnknownID)
	}
	if c.modes.Is(mode.Delete) {
		if err := c.store.Select(id); err != nil {
			return err
		}
		c.redraw()
		return nil
	}
	if err := c.store.AuthorizeEdit(id); err != nil {
		return err
	}
	c.discardGesture()
	if err := c.store.Select(id); err != nil {
		return err
	}
	if err := c.modes.Set(mode.Edit); err != nil {
		return err
	}
	c.redraw()
	return nil
}

// RegisterAnnotation creates an annotation and puts it straight into edit
// mode. A rejected creation leaves mode and selection untouched.
func (c *Controller) RegisterAnnotation(ctx context.Context, p annotation.Payload) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, err := c.registerAnnotation(ctx, p)
	c.record("create", id, err)
	return id, err
}

func (c *Controller) registerAnnotation(ctx context.Context, p annotation.Payload) (string, error) {
	if !c.modes.Active() {
		return store.None, store.ErrInactiveEditor
	}
	id, err := c.store.Create(ctx, p)
	if err != nil {
		c.redraw()
		return store.None, err
	}
	c.discardGesture()
	if err := c.store.Select(id); err != nil {
		return id, err
	}
	if err := c.modes.Set(mode.Edit); err != nil {
		return id, err
	}
	c.redraw()
	return id, nil
}

func (c *Controller) UpdateAnnotation(ctx context.Context, id string, p annotation.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.updateAnnotation(ctx, id, p)
	c.record("edit", id, err)
	return err
}

func (c *Controller) updateAnnotation(ctx context.Context, id string, p annotation.Payload) error {
	if !c.modes.Active() {
		return store.ErrInactiveEditor
	}
	err := c.store.Edit(ctx, id, p)
	c.redraw()
	return err
}

// DeleteAnnotation removes id and returns to list mode on success.
func (c *Controller) DeleteAnnotation(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.deleteAnnotation(ctx, id)
	c.record("delete", id, err)
	return err
}

func (c *Controller) deleteAnnotation(ctx context.Context, id string) error {
	if !c.modes.Active() {
		return store.ErrInactiveEditor
	}
	if err := c.store.Delete(ctx, id); err != nil {
		c.redraw()
		return err
	}
	return c.setState(mode.List)
}

// DeleteSelected deletes the selected annotation, if there is one.
func (c *Controller) DeleteSelected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.store.SelectedID()
	var err error
	switch {
	case !c.modes.Active():
		err = store.ErrInactiveEditor
	case id == store.None:
		err = fmt.Errorf("delete selected: %w", store.ErrUnknownID)
	default:
		err = c.deleteAnnotation(ctx, id)
	}
	c.record("delete", id, err)
	return err
}

// HoverOnAnnotation moves the hover cursor; store.None clears it.
func (c *Controller) HoverOnAnnotation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.HoverOn(id); err != nil {
		return err
	}
	c.redraw()
	return nil
}

// refit resizes and repaints the visualization, then the annotations on top.
func (c *Controller) refit() {
	c.vis.AdjustSize()
	if !c.ready {
		return
	}
	c.vis.Draw()
	c.redraw()
}

func (c *Controller) redraw() {
	if !c.ready {
		return
	}
	c.draw.Draw(c.overlay())
}

func (c *Controller) record(op, id string, err error) {
	outcome := store.Outcome(err)
	c.recorder.Mutation(op, outcome)
	c.recorder.Annotations(c.store.Len())

	attrs := []any{"op", op, "id", id, "outcome", outcome}
	switch {
	case err == nil:
		c.logger.Debug("annotation op", attrs...)
	case errors.Is(err, store.ErrInactiveEditor):
		// silent while inactive
	case store.IsExpected(err):
		c.logger.Info("annotation op refused", append(attrs, "err", err)...)
	default:
		c.logger.Error("annotation op failed", append(attrs, "err", err)...)
	}
}
