package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/annotator/internal/annotation"
	"github.com/jask/annotator/internal/geom"
	"github.com/jask/annotator/internal/mode"
	"github.com/jask/annotator/internal/render"
	"github.com/jask/annotator/internal/shape"
	"github.com/jask/annotator/internal/store"
	"github.com/jask/annotator/internal/style"
)

type fakeVis struct {
	ready   chan struct{}
	adjusts int
	draws   int
}

func newFakeVis() *fakeVis {
	v := &fakeVis{ready: make(chan struct{})}
	close(v.ready)
	return v
}

func (v *fakeVis) AdjustSize()     { v.adjusts++ }
func (v *fakeVis) Draw()           { v.draws++ }
func (v *fakeVis) Size() geom.Size { return geom.Size{W: 100, H: 100} }
func (v *fakeVis) WaitUntilReady(ctx context.Context) error {
	select {
	case <-v.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type countingSurface struct {
	clears int
	lines  int
}

func (s *countingSurface) Size() geom.Size { return geom.Size{W: 100, H: 100} }
func (s *countingSurface) Clear()          { s.clears++; s.lines = 0 }
func (s *countingSurface) Line(_, _ geom.Point, _ style.Style) {
	s.lines++
}

type fakeRecorder struct {
	outcomes []string
	count    int
}

func (r *fakeRecorder) Mutation(op, outcome string) { r.outcomes = append(r.outcomes, op+":"+outcome) }
func (r *fakeRecorder) Annotations(n int)           { r.count = n }

type harness struct {
	ctl     *Controller
	store   *store.Store
	modes   *mode.Machine
	surface *countingSurface
	changes []mode.Change
	rec     *fakeRecorder
}

func newHarness(t *testing.T, storeOpts ...store.Option) *harness {
	t.Helper()
	shapes := shape.Defaults()
	h := &harness{
		store:   store.New(append([]store.Option{store.WithValidator(shapes)}, storeOpts...)...),
		modes:   mode.New(),
		surface: &countingSurface{},
		rec:     &fakeRecorder{},
	}
	d := render.NewDispatcher(h.store, h.modes, shapes, h.surface, style.DefaultTheme())
	h.ctl = New(h.store, h.modes, d, newFakeVis(),
		WithShapes(shapes),
		WithRecorder(h.rec),
		WithToolbar(ToolbarFunc(func(c mode.Change) { h.changes = append(h.changes, c) })),
	)
	if err := h.ctl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return h
}

func (h *harness) pointer(kind PointerKind, x, y float64) bool {
	return h.ctl.Handle(context.Background(), PointerEvent{Kind: kind, Pos: geom.Pt(x, y)})
}

func (h *harness) key(msg tea.KeyMsg) bool {
	return h.ctl.Handle(context.Background(), KeyEvent{Msg: msg})
}

func (h *harness) drag(x0, y0, x1, y1 float64) {
	h.pointer(PointerDown, x0, y0)
	h.pointer(PointerMove, (x0+x1)/2, (y0+y1)/2)
	h.pointer(PointerMove, x1, y1)
	h.pointer(PointerUp, x1, y1)
}

func rectPayload(x0, y0, x1, y1 float64) annotation.Payload {
	return annotation.Payload{Shape: "rect", Points: []geom.Point{geom.Pt(x0, y0), geom.Pt(x1, y1)}}
}

func (h *harness) mustRegister(t *testing.T, p annotation.Payload) string {
	t.Helper()
	id, err := h.ctl.RegisterAnnotation(context.Background(), p)
	if err != nil {
		t.Fatalf("RegisterAnnotation: %v", err)
	}
	return id
}

func TestRegisterEntersEditWithSelection(t *testing.T) {
	h := newHarness(t)
	id := h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
	if !h.modes.Is(mode.Edit) || h.store.SelectedID() != id {
		t.Fatalf("mode=%s selected=%q", h.modes.Get(), h.store.SelectedID())
	}
	if h.surface.lines != 4 {
		t.Fatalf("expected one annotation drawn, got %d lines", h.surface.lines)
	}
	if h.rec.outcomes[len(h.rec.outcomes)-1] != "create:ok" || h.rec.count != 1 {
		t.Fatalf("recorder = %+v", h.rec)
	}
}

func TestModeChangeClearsSelection(t *testing.T) {
	for _, target := range []mode.Mode{mode.List, mode.Create, mode.Select} {
		h := newHarness(t)
		h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
		if err := h.ctl.SetState(target); err != nil {
			t.Fatalf("SetState(%s): %v", target, err)
		}
		if h.store.SelectedID() != store.None {
			t.Fatalf("selection survived transition to %s", target)
		}
	}
}

func TestRegisterRejectedByRegistrarChangesNothing(t *testing.T) {
	h := newHarness(t, store.WithRegistrar(store.RegistrarFunc(func(context.Context, annotation.Payload) (string, error) {
		return "", nil
	})))
	_ = h.ctl.SetState(mode.Create)
	before := h.modes.Get()

	id, err := h.ctl.RegisterAnnotation(context.Background(), rectPayload(0.1, 0.1, 0.3, 0.3))
	if !errors.Is(err, store.ErrRegistrarRejected) || id != store.None {
		t.Fatalf("RegisterAnnotation = %q, %v", id, err)
	}
	if h.store.Len() != 0 || h.modes.Get() != before || h.store.SelectedID() != store.None {
		t.Fatal("rejected registration changed state")
	}
}

func TestUpdateGatedByPermission(t *testing.T) {
	h := newHarness(t, store.WithAuthorizer(store.AuthorizerFuncs{Edit: func(string) bool { return false }}))
	orig := rectPayload(0.1, 0.1, 0.3, 0.3)
	id := h.mustRegister(t, orig)
	err := h.ctl.UpdateAnnotation(context.Background(), id, rectPayload(0.5, 0.5, 0.6, 0.6))
	if !errors.Is(err, store.ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}
	got, _ := h.store.Get(id)
	if !got.Equal(orig) {
		t.Fatalf("payload changed: %+v", got)
	}
}

func TestSelectWithoutEditPermissionKeepsListMode(t *testing.T) {
	h := newHarness(t, store.WithAuthorizer(store.AuthorizerFuncs{Edit: func(string) bool { return false }}))
	h.store.Load([]annotation.Entry{{ID: "a", Payload: rectPayload(0.1, 0.1, 0.3, 0.3)}})
	if err := h.ctl.SelectAnnotation("a"); !errors.Is(err, store.ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}
	if !h.modes.Is(mode.List) || h.store.SelectedID() != store.None {
		t.Fatal("selection must stay empty outside edit/delete")
	}
	if err := h.ctl.SelectAnnotation("ghost"); !errors.Is(err, store.ErrUnknownID) {
		t.Fatalf("err = %v", err)
	}
}

func TestSelectWithFailingAuthorizerReportsDelegateFailure(t *testing.T) {
	h := newHarness(t, store.WithAuthorizer(store.AuthorizerFuncs{Edit: func(string) bool { panic("authz backend down") }}))
	h.store.Load([]annotation.Entry{{ID: "a", Payload: rectPayload(0.1, 0.1, 0.3, 0.3)}})

	err := h.ctl.SelectAnnotation("a")
	if !store.IsDelegateFailure(err) {
		t.Fatalf("err = %v, want delegate failure", err)
	}
	if !h.modes.Is(mode.List) || h.store.SelectedID() != store.None {
		t.Fatal("failed select changed state")
	}
	if got := h.rec.outcomes[len(h.rec.outcomes)-1]; got != "select:delegate_failure" {
		t.Fatalf("outcome = %s", got)
	}
}

func TestInactiveEditorIgnoresEverything(t *testing.T) {
	h := newHarness(t)
	id := h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
	_ = h.ctl.SetState(mode.List)
	h.ctl.Deactivate()

	ctx := context.Background()
	if _, err := h.ctl.RegisterAnnotation(ctx, rectPayload(0.5, 0.5, 0.7, 0.7)); !errors.Is(err, store.ErrInactiveEditor) {
		t.Fatalf("register err = %v", err)
	}
	if err := h.ctl.DeleteAnnotation(ctx, id); !errors.Is(err, store.ErrInactiveEditor) {
		t.Fatalf("delete err = %v", err)
	}
	if err := h.ctl.SetState(mode.Create); !errors.Is(err, store.ErrInactiveEditor) {
		t.Fatalf("set state err = %v", err)
	}
	if h.key(runes("A")) || h.pointer(PointerDown, 20, 20) {
		t.Fatal("inactive editor consumed input")
	}
	if h.store.Len() != 1 || h.store.SelectedID() != store.None || !h.modes.Is(mode.List) {
		t.Fatal("inactive editor changed state")
	}

	h.ctl.ToggleActivate()
	if !h.ctl.Active() {
		t.Fatal("toggle should reactivate")
	}
	if !h.key(runes("A")) || !h.modes.Is(mode.Create) {
		t.Fatal("reactivated editor should accept keys")
	}
}

func TestCreateGestureCommitsOnlyOnPointerUp(t *testing.T) {
	h := newHarness(t)
	_ = h.ctl.SetState(mode.Create)

	h.pointer(PointerDown, 10, 10)
	h.pointer(PointerMove, 20, 15)
	h.pointer(PointerMove, 40, 30)
	if h.store.Len() != 0 {
		t.Fatal("store mutated mid-gesture")
	}
	if h.surface.lines != 4 {
		t.Fatalf("expected create overlay, got %d lines", h.surface.lines)
	}
	h.pointer(PointerUp, 40, 30)

	list := h.store.List()
	if len(list) != 1 {
		t.Fatalf("List = %+v", list)
	}
	want := []geom.Point{geom.Pt(0.1, 0.1), geom.Pt(0.4, 0.3)}
	if list[0].Payload.Points[0] != want[0] || list[0].Payload.Points[1] != want[1] {
		t.Fatalf("points = %v", list[0].Payload.Points)
	}
	if !h.modes.Is(mode.Edit) || h.store.SelectedID() != list[0].ID {
		t.Fatal("new annotation should be selected in edit mode")
	}
}

func TestCreateGestureRejectedByValidator(t *testing.T) {
	h := newHarness(t)
	_ = h.ctl.SetState(mode.Create)
	h.pointer(PointerDown, 10, 10)
	h.pointer(PointerUp, 10, 10)
	if h.store.Len() != 0 || !h.modes.Is(mode.Create) {
		t.Fatal("degenerate rect should be rejected without a mode change")
	}
	if got := h.rec.outcomes[len(h.rec.outcomes)-1]; got != "create:invalid" {
		t.Fatalf("outcome = %q", got)
	}
}

func TestShapeNextKeyCyclesStrategy(t *testing.T) {
	h := newHarness(t)
	_ = h.ctl.SetState(mode.Create)
	if !h.key(tea.KeyMsg{Type: tea.KeyTab}) || h.ctl.Shape() != "polygon" {
		t.Fatalf("shape = %q", h.ctl.Shape())
	}
	h.pointer(PointerDown, 10, 10)
	h.pointer(PointerMove, 50, 10)
	h.pointer(PointerMove, 50, 50)
	h.pointer(PointerUp, 10, 50)
	list := h.store.List()
	if len(list) != 1 || list[0].Payload.Shape != "polygon" || len(list[0].Payload.Points) != 4 {
		t.Fatalf("List = %+v", list)
	}
}

func TestEditGestureMovesVertex(t *testing.T) {
	h := newHarness(t)
	id := h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))

	h.drag(30, 30, 50, 60)

	e, err := h.store.Entry(id)
	if err != nil {
		t.Fatal(err)
	}
	if e.Version != 2 || e.Payload.Points[1] != geom.Pt(0.5, 0.6) {
		t.Fatalf("entry = %+v", e)
	}
}

func TestEditGestureTranslatesWholeShape(t *testing.T) {
	h := newHarness(t)
	id := h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
	h.drag(20, 20, 30, 20)
	got, _ := h.store.Get(id)
	if d := got.Points[0].Dist(geom.Pt(0.2, 0.1)); d > 1e-9 {
		t.Fatalf("points = %v", got.Points)
	}
}

func TestEditClickOnEmptySpaceReturnsToList(t *testing.T) {
	h := newHarness(t)
	h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
	h.pointer(PointerDown, 90, 90)
	if !h.modes.Is(mode.List) || h.store.SelectedID() != store.None {
		t.Fatal("click outside should leave edit mode")
	}
}

func TestSelectingAnotherDiscardsInProgressEdit(t *testing.T) {
	h := newHarness(t)
	a := h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
	b := h.mustRegister(t, rectPayload(0.6, 0.6, 0.8, 0.8))
	_ = h.ctl.SelectAnnotation(a)

	h.pointer(PointerDown, 20, 20)
	h.pointer(PointerMove, 25, 25)
	if err := h.ctl.SelectAnnotation(b); err != nil {
		t.Fatal(err)
	}
	h.pointer(PointerUp, 25, 25)

	ea, _ := h.store.Entry(a)
	if ea.Version != 1 {
		t.Fatal("discarded edit of a was committed")
	}
	if h.store.SelectedID() != b || !h.modes.Is(mode.Edit) {
		t.Fatal("b should be the edited annotation")
	}
}

func TestListModeHoverAndClickSelects(t *testing.T) {
	h := newHarness(t)
	id := h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
	_ = h.ctl.SetState(mode.List)

	h.pointer(PointerMove, 20, 20)
	if h.store.HoverID() != id {
		t.Fatal("hover not set")
	}
	h.pointer(PointerMove, 80, 80)
	if h.store.HoverID() != store.None {
		t.Fatal("hover not cleared")
	}
	h.pointer(PointerDown, 20, 20)
	h.pointer(PointerUp, 20, 20)
	if !h.modes.Is(mode.Edit) || h.store.SelectedID() != id {
		t.Fatal("click should select for editing")
	}
}

func TestDeleteModePickAndConfirm(t *testing.T) {
	h := newHarness(t)
	a := h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
	b := h.mustRegister(t, rectPayload(0.6, 0.6, 0.8, 0.8))
	if !h.key(runes("D")) || !h.modes.Is(mode.Delete) {
		t.Fatal("D should enter delete mode")
	}

	h.pointer(PointerMove, 20, 20)
	if h.store.HoverID() != a {
		t.Fatal("hover not set in delete mode")
	}
	h.pointer(PointerDown, 20, 20)
	if h.store.SelectedID() != a {
		t.Fatal("pick should mark the target")
	}
	h.pointer(PointerUp, 70, 70)
	if h.store.Len() != 2 || h.store.SelectedID() != store.None {
		t.Fatal("releasing elsewhere must cancel the deletion")
	}

	h.pointer(PointerDown, 20, 20)
	h.pointer(PointerUp, 20, 20)
	if h.store.Has(a) || !h.store.Has(b) {
		t.Fatal("a should be deleted")
	}
	if !h.modes.Is(mode.List) || h.store.HoverID() != store.None {
		t.Fatal("delete should return to list mode with cursors cleared")
	}
}

func TestDeleteKeyRemovesSelected(t *testing.T) {
	h := newHarness(t)
	id := h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
	if !h.key(tea.KeyMsg{Type: tea.KeyDelete}) {
		t.Fatal("delete key not handled in edit mode")
	}
	if h.store.Has(id) || !h.modes.Is(mode.List) {
		t.Fatal("selected annotation not deleted")
	}
	if err := h.ctl.DeleteSelected(context.Background()); !errors.Is(err, store.ErrUnknownID) {
		t.Fatalf("DeleteSelected with no selection err = %v", err)
	}
}

func TestEscapeCancelsGestureThenMode(t *testing.T) {
	h := newHarness(t)
	h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
	h.pointer(PointerDown, 30, 30)
	h.pointer(PointerMove, 50, 50)
	esc := tea.KeyMsg{Type: tea.KeyEsc}
	h.key(esc)
	if !h.modes.Is(mode.Edit) {
		t.Fatal("first esc should only drop the gesture")
	}
	h.pointer(PointerUp, 50, 50)
	if e, _ := h.store.Entry(h.store.SelectedID()); e.Version != 1 {
		t.Fatal("cancelled gesture committed")
	}
	h.key(esc)
	if !h.modes.Is(mode.List) {
		t.Fatal("second esc should return to list")
	}
}

func TestToolbarSyncAndUnmount(t *testing.T) {
	h := newHarness(t)
	_ = h.ctl.SetState(mode.Create)
	h.ctl.Deactivate()
	want := []mode.Change{{Mode: mode.Create, Active: true}, {Mode: mode.Create, Active: false}}
	if len(h.changes) != 2 || h.changes[0] != want[0] || h.changes[1] != want[1] {
		t.Fatalf("changes = %+v", h.changes)
	}

	h.ctl.Activate()
	h.ctl.Unmount()
	n := len(h.changes)
	if h.ctl.Handle(context.Background(), VisualizerUpdated{}) {
		t.Fatal("Handle after unmount")
	}
	h.ctl.Deactivate()
	if len(h.changes) != n {
		t.Fatal("toolbar notified after unmount")
	}
	h.ctl.Unmount()
}

func TestStartWaitsForVisualizer(t *testing.T) {
	st := store.New()
	modes := mode.New()
	surf := &countingSurface{}
	vis := &fakeVis{ready: make(chan struct{})}
	ctl := New(st, modes, render.NewDispatcher(st, modes, shape.Defaults(), surf, style.DefaultTheme()), vis)

	ctl.Handle(context.Background(), VisualizerUpdated{})
	if surf.clears != 0 {
		t.Fatal("drew before the visualizer was ready")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := ctl.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start err = %v", err)
	}

	vis = newFakeVis()
	ctl = New(st, modes, render.NewDispatcher(st, modes, shape.Defaults(), surf, style.DefaultTheme()), vis)
	if err := ctl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := ctl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	// once before waiting, once when ready
	if surf.clears != 1 || vis.adjusts != 2 || vis.draws != 1 {
		t.Fatalf("clears=%d adjusts=%d draws=%d", surf.clears, vis.adjusts, vis.draws)
	}
	ctl.Handle(context.Background(), Resized{})
	if surf.clears != 2 || vis.adjusts != 3 || vis.draws != 2 {
		t.Fatalf("resize: clears=%d adjusts=%d draws=%d", surf.clears, vis.adjusts, vis.draws)
	}
}

func TestCursorsNeverDangleThroughController(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	var ids []string
	for i := range 5 {
		x := 0.05 + float64(i)*0.18
		ids = append(ids, h.mustRegister(t, rectPayload(x, 0.1, x+0.1, 0.2)))
		_ = h.ctl.HoverOnAnnotation(ids[0])
	}
	for _, id := range ids {
		if err := h.ctl.DeleteAnnotation(ctx, id); err != nil {
			t.Fatal(err)
		}
		for _, cur := range []string{h.store.SelectedID(), h.store.HoverID()} {
			if cur != store.None && !h.store.Has(cur) {
				t.Fatalf("dangling cursor %q", cur)
			}
		}
	}
	if err := h.ctl.HoverOnAnnotation(ids[0]); !errors.Is(err, store.ErrUnknownID) {
		t.Fatalf("hover on deleted id err = %v", err)
	}
}

func TestDelegateFailurePropagates(t *testing.T) {
	boom := errors.New("db locked")
	h := newHarness(t, store.WithPersister(store.PersisterFunc(func(context.Context, string, annotation.Payload) (bool, error) {
		return false, boom
	})))
	id := h.mustRegister(t, rectPayload(0.1, 0.1, 0.3, 0.3))
	err := h.ctl.UpdateAnnotation(context.Background(), id, rectPayload(0.2, 0.2, 0.4, 0.4))
	if !store.IsDelegateFailure(err) || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if got := h.rec.outcomes[len(h.rec.outcomes)-1]; got != "edit:delegate_failure" {
		t.Fatalf("outcome = %q", got)
	}
}
