// Package tui hosts the annotation editor in a terminal. The terminal cell
// grid plays the drawing surface; mouse and keyboard input are forwarded to
// the editor controller.
package tui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/annotator/internal/config"
	"github.com/jask/annotator/internal/editor"
	"github.com/jask/annotator/internal/geom"
	"github.com/jask/annotator/internal/mode"
	"github.com/jask/annotator/internal/render"
	"github.com/jask/annotator/internal/shape"
	"github.com/jask/annotator/internal/store"
	"github.com/jask/annotator/internal/style"
)

// chromeRows is toolbar + status + footer.
const chromeRows = 3

type Options struct {
	Store     *store.Store
	Modes     *mode.Machine
	Shapes    *shape.Registry
	Theme     style.Theme
	Keys      []editor.KeyBinding
	Recorder  editor.Recorder
	Shape     string
	Tolerance float64
	Logger    *slog.Logger
}

type hostKeys struct {
	Quit   key.Binding
	Toggle key.Binding
	Jump   key.Binding
	Help   key.Binding
}

func defaultHostKeys() hostKeys {
	return hostKeys{
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Toggle: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "on/off")),
		Jump:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "jump")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "keys")),
	}
}

// ConfigReloaded carries a re-read config into the program.
type ConfigReloaded struct {
	Config config.Config
}

type startedMsg struct{ err error }

type Model struct {
	ctx     context.Context
	ctl     *editor.Controller
	store   *store.Store
	canvas  *Canvas
	visual  *Backdrop
	toolbar *Toolbar
	status  *StatusRecorder
	keys    hostKeys
	logger  *slog.Logger

	jump     textinput.Model
	jumping  bool
	showHelp bool
	notice   string

	width  int
	height int
}

func New(ctx context.Context, opts Options) *Model {
	if opts.Shapes == nil {
		opts.Shapes = shape.Defaults()
	}
	if opts.Keys == nil {
		opts.Keys = editor.DefaultKeyBindings()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = editor.DefaultTolerance
	}

	canvas := NewCanvas()
	visual := NewBackdrop(canvas)
	toolbar := NewToolbar(opts.Modes.Snapshot())
	status := NewStatusRecorder(opts.Recorder)
	draw := render.NewDispatcher(opts.Store, opts.Modes, opts.Shapes, canvas, opts.Theme)

	ctl := editor.New(opts.Store, opts.Modes, draw, visual,
		editor.WithShapes(opts.Shapes),
		editor.WithKeyRegistry(editor.NewKeyRegistry(opts.Keys)),
		editor.WithToolbar(toolbar),
		editor.WithRecorder(status),
		editor.WithLogger(opts.Logger.With("component", "editor")),
		editor.WithTolerance(opts.Tolerance),
		editor.WithInitialShape(opts.Shape),
	)
	toolbar.SetShape(ctl.Shape())

	ti := textinput.New()
	ti.Prompt = "jump to label: "
	ti.CharLimit = 64

	return &Model{
		ctx:     ctx,
		ctl:     ctl,
		store:   opts.Store,
		canvas:  canvas,
		visual:  visual,
		toolbar: toolbar,
		status:  status,
		keys:    defaultHostKeys(),
		logger:  opts.Logger.With("component", "tui"),
		jump:    ti,
	}
}

// Init starts the controller; it blocks until the first window size arrives.
func (m *Model) Init() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: m.ctl.Start(m.ctx)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.visual.SetWindow(msg.Width, max(0, msg.Height-chromeRows))
		m.ctl.Handle(m.ctx, editor.Resized{})
		return m, nil
	case startedMsg:
		if msg.err != nil {
			m.logger.Error("editor start failed", "err", msg.err)
			m.notice = "start failed: " + msg.err.Error()
		}
		return m, nil
	case ConfigReloaded:
		m.ctl.SetTheme(msg.Config.ResolvedTheme())
		m.ctl.SetKeyBindings(editor.ApplyActionKeybindings(editor.DefaultKeyBindings(), msg.Config.Keys))
		m.notice = "config reloaded"
		return m, nil
	case tea.MouseMsg:
		if m.jumping {
			return m, nil
		}
		m.handleMouse(msg)
		return m, nil
	case tea.KeyMsg:
		if m.jumping {
			return m.updateJump(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctl.Unmount()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		m.ctl.ToggleActivate()
		return m, nil
	case key.Matches(msg, m.keys.Jump):
		m.jumping = true
		m.jump.SetValue("")
		return m, m.jump.Focus()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}
	m.notice = ""
	m.ctl.Handle(m.ctx, editor.KeyEvent{Msg: msg})
	m.toolbar.SetShape(m.ctl.Shape())
	return m, nil
}

func (m *Model) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.jumping = false
		m.jump.Blur()
		return m, nil
	case tea.KeyEnter:
		m.jumping = false
		m.jump.Blur()
		query := m.jump.Value()
		id, ok := ClosestLabel(m.store.List(), query)
		if !ok {
			m.notice = "no label matches " + query
			return m, nil
		}
		if err := m.ctl.SelectAnnotation(id); err != nil {
			m.notice = err.Error()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	return m, cmd
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	var kind editor.PointerKind
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		kind = editor.PointerDown
	case msg.Action == tea.MouseActionRelease:
		kind = editor.PointerUp
	case msg.Action == tea.MouseActionMotion:
		kind = editor.PointerMove
	default:
		return
	}
	size := m.canvas.Size()
	y := msg.Y - 1 // toolbar row
	if kind == editor.PointerDown && (y < 0 || y >= size.H || msg.X >= size.W) {
		return
	}
	// cell centres keep the pixel <-> coordinate mapping stable
	x := clampInt(msg.X, 0, size.W-1)
	y = clampInt(y, 0, size.H-1)
	m.ctl.Handle(m.ctx, editor.PointerEvent{Kind: kind, Pos: geom.Pt(float64(x)+0.5, float64(y)+0.5)})
}

func (m *Model) View() string {
	if m.width == 0 {
		return "loading…"
	}
	lines := make([]string, 0, m.height)
	lines = append(lines, m.toolbar.View(m.width))
	lines = append(lines, m.canvas.Render()...)
	lines = append(lines, m.statusLine(), m.footer())
	return strings.Join(lines, "\n")
}

func (m *Model) statusLine() string {
	line := m.status.View()
	if m.notice != "" {
		line += "  " + warnStyle.Render(m.notice)
	}
	return ansi.Truncate(line, m.width, "…")
}

func (m *Model) footer() string {
	if m.jumping {
		return ansi.Truncate(m.jump.View(), m.width, "…")
	}
	bindings := m.ctl.KeyBindings().HelpBindings(editor.ModeScope(m.ctl.Mode()))
	host := []key.Binding{m.keys.Toggle, m.keys.Jump, m.keys.Help, m.keys.Quit}
	if !m.showHelp {
		bindings = bindings[:min(len(bindings), 3)]
	}
	parts := make([]string, 0, len(bindings)+len(host))
	for _, b := range append(bindings, host...) {
		h := b.Help()
		parts = append(parts, footerKey.Render(h.Key)+" "+footerDesc.Render(h.Desc))
	}
	return ansi.Truncate(strings.Join(parts, "  "), m.width, "…")
}
