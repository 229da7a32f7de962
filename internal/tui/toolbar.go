package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"

	"github.com/jask/annotator/internal/mode"
)

var modeLabels = map[mode.Mode]string{
	mode.List:   "select",
	mode.Create: "create",
	mode.Edit:   "edit",
	mode.Delete: "erase",
}

// Toolbar mirrors the editor mode as a row of buttons.
type Toolbar struct {
	mu    sync.Mutex
	state mode.Change
	shape string
}

func NewToolbar(initial mode.Change) *Toolbar {
	return &Toolbar{state: initial}
}

func (t *Toolbar) Sync(c mode.Change) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = c
}

func (t *Toolbar) SetShape(kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shape = kind
}

func (t *Toolbar) State() mode.Change {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Toolbar) View(width int) string {
	t.mu.Lock()
	state, shape := t.state, t.shape
	t.mu.Unlock()

	parts := make([]string, 0, len(mode.All)+2)
	for _, m := range mode.All {
		label := modeLabels[m]
		if m == state.Mode && state.Active {
			parts = append(parts, buttonOnStyle.Render(label))
		} else {
			parts = append(parts, buttonStyle.Render(label))
		}
	}
	flag := okStyle.Render("● active")
	if !state.Active {
		flag = warnStyle.Render("○ inactive")
	}
	parts = append(parts, flag)
	if shape != "" {
		parts = append(parts, buttonStyle.Render("shape: "+shape))
	}
	line := strings.Join(parts, " ")
	return toolbarStyle.Width(width).Render(ansi.Truncate(line, width, "…"))
}
