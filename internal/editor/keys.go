package editor

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/annotator/internal/mode"
)

// Editor actions reachable from the keyboard.
const (
	ActionModeCreate     = "mode-create"
	ActionModeList       = "mode-list"
	ActionModeDelete     = "mode-delete"
	ActionDeleteSelected = "delete-selected"
	ActionCancel         = "cancel"
	ActionShapeNext      = "shape-next"
)

type KeyBinding struct {
	Keys        []string
	Action      string
	Description string
	Scopes      []string
}

type KeyRegistry struct {
	bindings []KeyBinding
}

func NewKeyRegistry(bindings []KeyBinding) *KeyRegistry {
	r := &KeyRegistry{}
	for _, b := range bindings {
		r.Register(b)
	}
	return r
}

func (r *KeyRegistry) Register(binding KeyBinding) {
	r.bindings = append(r.bindings, binding)
}

func (r *KeyRegistry) BindingsForScope(scope string) []KeyBinding {
	out := make([]KeyBinding, 0, len(r.bindings))
	for _, b := range r.bindings {
		if scopeMatch(scope, b.Scopes) {
			out = append(out, b)
		}
	}
	return out
}

// HelpBindings converts the bindings active in scope for help rendering.
func (r *KeyRegistry) HelpBindings(scope string) []key.Binding {
	items := r.BindingsForScope(scope)
	out := make([]key.Binding, 0, len(items))
	for _, b := range items {
		if len(b.Keys) == 0 {
			continue
		}
		out = append(out, key.NewBinding(key.WithKeys(b.Keys...), key.WithHelp(b.Keys[0], b.Description)))
	}
	return out
}

func (r *KeyRegistry) IsAction(msg tea.KeyMsg, action, scope string) bool {
	got, ok := r.ActionFor(msg, scope)
	return ok && got == action
}

// ActionFor returns the first action bound to msg in scope.
func (r *KeyRegistry) ActionFor(msg tea.KeyMsg, scope string) (string, bool) {
	pressed := normalizeKey(msg.String())
	for _, b := range r.bindings {
		if !scopeMatch(scope, b.Scopes) {
			continue
		}
		for _, k := range b.Keys {
			if normalizeKey(k) == pressed {
				return b.Action, true
			}
		}
	}
	return "", false
}

// ModeScope is the binding scope active while the editor is in m.
func ModeScope(m mode.Mode) string { return "mode:" + string(m) }

// normalizeKey keeps single characters case sensitive so that "A" means
// shift+a, and spells "shift+a" the same way. Named keys are case folded.
func normalizeKey(k string) string {
	k = strings.TrimSpace(k)
	if utf8.RuneCountInString(k) == 1 {
		return k
	}
	lower := strings.ToLower(k)
	if rest, ok := strings.CutPrefix(lower, "shift+"); ok && utf8.RuneCountInString(rest) == 1 {
		return strings.ToUpper(rest)
	}
	return lower
}

func scopeMatch(scope string, scopes []string) bool {
	if len(scopes) == 0 {
		return true
	}
	for _, s := range scopes {
		if s == "*" || s == scope {
			return true
		}
	}
	return false
}

func DefaultKeyBindings() []KeyBinding {
	return []KeyBinding{
		{Keys: []string{"A"}, Action: ActionModeCreate, Description: "create", Scopes: []string{"*"}},
		{Keys: []string{"S"}, Action: ActionModeList, Description: "select", Scopes: []string{"*"}},
		{Keys: []string{"D"}, Action: ActionModeDelete, Description: "erase", Scopes: []string{"*"}},
		{Keys: []string{"delete", "backspace"}, Action: ActionDeleteSelected, Description: "delete", Scopes: []string{ModeScope(mode.Edit), ModeScope(mode.Delete)}},
		{Keys: []string{"esc"}, Action: ActionCancel, Description: "cancel", Scopes: []string{ModeScope(mode.Create), ModeScope(mode.Edit), ModeScope(mode.Delete)}},
		{Keys: []string{"tab"}, Action: ActionShapeNext, Description: "next shape", Scopes: []string{ModeScope(mode.Create)}},
	}
}

func DefaultKeybindingsByAction(bindings []KeyBinding) map[string][]string {
	out := make(map[string][]string, len(bindings))
	for _, b := range bindings {
		if strings.TrimSpace(b.Action) == "" || len(b.Keys) == 0 {
			continue
		}
		if _, exists := out[b.Action]; exists {
			continue
		}
		out[b.Action] = append([]string(nil), b.Keys...)
	}
	return out
}

// ApplyActionKeybindings replaces the keys of every binding whose action is
// present in actionKeys.
func ApplyActionKeybindings(bindings []KeyBinding, actionKeys map[string][]string) []KeyBinding {
	out := make([]KeyBinding, 0, len(bindings))
	for _, b := range bindings {
		next := KeyBinding{
			Keys:        append([]string(nil), b.Keys...),
			Action:      b.Action,
			Description: b.Description,
			Scopes:      append([]string(nil), b.Scopes...),
		}
		if keys, ok := actionKeys[b.Action]; ok && len(keys) > 0 {
			next.Keys = append([]string(nil), keys...)
		}
		out = append(out, next)
	}
	return out
}
