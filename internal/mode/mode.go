// Package mode holds the editor's interaction mode and activation flag.
//
// The machine only records state and notifies observers. Side effects on the
// annotation store (clearing the selection when leaving edit) are sequenced
// by the editor controller.
package mode

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Mode is the interaction state governing what pointer and keyboard input do.
type Mode string

const (
	List   Mode = "list"
	Create Mode = "create"
	Edit   Mode = "edit"
	Delete Mode = "delete"
)

// Select is accepted as a name for the browsing mode and normalizes to List.
const Select Mode = "select"

// All lists the canonical modes in toolbar order.
var All = []Mode{List, Create, Edit, Delete}

// ClearsSelection reports whether entering m must drop the selected annotation.
func (m Mode) ClearsSelection() bool {
	m = m.normalize()
	return m == List || m == Create
}

func (m Mode) normalize() Mode {
	if m == Select {
		return List
	}
	return m
}

func (m Mode) Valid() bool {
	switch m.normalize() {
	case List, Create, Edit, Delete:
		return true
	}
	return false
}

// Parse maps a user supplied name onto a Mode.
func Parse(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s))).normalize()
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q", s)
	}
	return m, nil
}

// Change is what observers receive after a transition.
type Change struct {
	Mode   Mode
	Active bool
}

// Machine owns the current mode and the activation flag. It is safe for
// concurrent use; observers run after the lock is released.
type Machine struct {
	mu        sync.Mutex
	mode      Mode
	active    bool
	observers []*observer
}

// observer is held locked while fn runs, so unsubscribing waits for an
// in-flight call to finish.
type observer struct {
	mu      sync.Mutex
	fn      func(Change)
	removed bool
}

func (o *observer) notify(c Change) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.removed {
		o.fn(c)
	}
}

type Option func(*Machine)

// WithMode sets the initial mode. Invalid modes are ignored.
func WithMode(m Mode) Option {
	return func(s *Machine) {
		if m.Valid() {
			s.mode = m.normalize()
		}
	}
}

func WithActive(active bool) Option {
	return func(s *Machine) { s.active = active }
}

// New returns a machine in List mode, active.
func New(opts ...Option) *Machine {
	m := &Machine{mode: List, active: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Get() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Machine) Is(mode Mode) bool {
	return m.Get() == mode.normalize()
}

func (m *Machine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Snapshot returns mode and flag under one lock.
func (m *Machine) Snapshot() Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Change{Mode: m.mode, Active: m.active}
}

// Set changes the mode. It returns an error for unknown modes and does not
// notify observers when the mode is unchanged.
func (m *Machine) Set(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown mode %q", mode)
	}
	m.update(func() { m.mode = mode.normalize() })
	return nil
}

func (m *Machine) Activate()   { m.update(func() { m.active = true }) }
func (m *Machine) Deactivate() { m.update(func() { m.active = false }) }
func (m *Machine) Toggle()     { m.update(func() { m.active = !m.active }) }

// OnChange registers fn and returns a function that removes it. Once the
// returned function has returned, fn is never called again. fn must not call
// its own unsubscribe function.
func (m *Machine) OnChange(fn func(Change)) (unsubscribe func()) {
	o := &observer{fn: fn}
	m.mu.Lock()
	m.observers = append(m.observers, o)
	m.mu.Unlock()

	return func() {
		o.mu.Lock()
		o.removed = true
		o.mu.Unlock()

		m.mu.Lock()
		defer m.mu.Unlock()
		m.observers = slices.DeleteFunc(m.observers, func(v *observer) bool { return v == o })
	}
}

func (m *Machine) update(mutate func()) {
	m.mu.Lock()
	before := Change{Mode: m.mode, Active: m.active}
	mutate()
	after := Change{Mode: m.mode, Active: m.active}
	if before == after {
		m.mu.Unlock()
		return
	}
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	for _, o := range observers {
		o.notify(after)
	}
}
