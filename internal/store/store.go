// Package store owns the authoritative annotation collection of an editor
// session together with the selection and hover cursors.
//
// Mutations are gated by optional external delegates (validator, registrar,
// persister, remover, authorizer). A mutation is committed locally only after
// every delegate involved has agreed, so a failed call never leaves a partial
// change behind.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jask/annotator/internal/annotation"
	"github.com/jask/annotator/internal/style"
)

// None is the empty cursor.
const None = ""

// Store is safe for concurrent use. Mutations of the same id are serialized
// across their delegate calls.
type Store struct {
	mu       sync.RWMutex
	order    []string
	entries  map[string]annotation.Entry
	selected string
	hover    string

	ids keyedMutex

	validator  Validator
	registrar  Registrar
	persister  Persister
	remover    Remover
	authorizer Authorizer
	newID      func() string
	theme      style.Theme
	logger     *slog.Logger
}

type Option func(*Store)

func WithValidator(v Validator) Option   { return func(s *Store) { s.validator = v } }
func WithRegistrar(r Registrar) Option   { return func(s *Store) { s.registrar = r } }
func WithPersister(p Persister) Option   { return func(s *Store) { s.persister = p } }
func WithRemover(r Remover) Option       { return func(s *Store) { s.remover = r } }
func WithAuthorizer(a Authorizer) Option { return func(s *Store) { s.authorizer = a } }
func WithTheme(t style.Theme) Option     { return func(s *Store) { s.theme = t } }
func WithLogger(l *slog.Logger) Option   { return func(s *Store) { s.logger = l } }

// WithIDGenerator replaces the default UUIDv4 generator used when no
// registrar is configured.
func WithIDGenerator(fn func() string) Option { return func(s *Store) { s.newID = fn } }

func New(opts ...Option) *Store {
	s := &Store{
		entries: map[string]annotation.Entry{},
		newID:   uuid.NewString,
		theme:   style.DefaultTheme(),
		logger:  slog.Default().With("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load seeds the store with already persisted entries, in order, without
// calling any delegate. Entries with an id already present replace it in place.
func (s *Store) Load(entries []annotation.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if e.Version < 1 {
			e.Version = 1
		}
		e.Payload = e.Payload.Clone()
		if _, ok := s.entries[e.ID]; !ok {
			s.order = append(s.order, e.ID)
		}
		s.entries[e.ID] = e
	}
}

// List returns every entry in insertion order.
func (s *Store) List() []annotation.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]annotation.Entry, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		e.Payload = e.Payload.Clone()
		out = append(out, e)
	}
	return out
}

func (s *Store) ListIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

func (s *Store) ListPayloads() []annotation.Payload {
	entries := s.List()
	out := make([]annotation.Payload, len(entries))
	for i, e := range entries {
		out[i] = e.Payload
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Get returns the payload stored under id or ErrNotFound.
func (s *Store) Get(id string) (annotation.Payload, error) {
	e, err := s.Entry(id)
	if err != nil {
		return annotation.Payload{}, err
	}
	return e.Payload, nil
}

func (s *Store) Entry(id string) (annotation.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return annotation.Entry{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	e.Payload = e.Payload.Clone()
	return e, nil
}

func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Selected returns the selected payload, if any.
func (s *Store) Selected() (annotation.Payload, bool) {
	p, err := s.Get(s.SelectedID())
	return p, err == nil
}

func (s *Store) HoverID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hover
}

func (s *Store) Hovered() (annotation.Payload, bool) {
	p, err := s.Get(s.HoverID())
	return p, err == nil
}

func (s *Store) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id != None && id == s.selected
}

func (s *Store) IsHover(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id != None && id == s.hover
}

// Cursors returns both cursors under one lock.
func (s *Store) Cursors() style.Cursors {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return style.Cursors{Selected: s.selected, Hover: s.hover}
}

// CanEdit consults the authorizer; without one every edit is allowed.
// A panicking authorizer denies here; AuthorizeEdit reports the failure.
func (s *Store) CanEdit(id string) bool {
	ok, err := s.authorize("can-edit", id, s.authorizerEdit)
	if err != nil {
		s.logger.Error("authorizer failed", "op", "can-edit", "id", id, "err", err)
	}
	return ok
}

func (s *Store) CanDelete(id string) bool {
	ok, err := s.authorize("can-delete", id, s.authorizerDelete)
	if err != nil {
		s.logger.Error("authorizer failed", "op", "can-delete", "id", id, "err", err)
	}
	return ok
}

// AuthorizeEdit returns nil when id may be edited, an error wrapping
// ErrPermissionDenied when the authorizer refuses, and a *DelegateError when
// the authorizer itself fails.
func (s *Store) AuthorizeEdit(id string) error {
	return s.check("edit", "can-edit", id, s.authorizerEdit)
}

// AuthorizeDelete is AuthorizeEdit for deletions.
func (s *Store) AuthorizeDelete(id string) error {
	return s.check("delete", "can-delete", id, s.authorizerDelete)
}

func (s *Store) authorizerEdit(id string) bool   { return s.authorizer.CanEdit(id) }
func (s *Store) authorizerDelete(id string) bool { return s.authorizer.CanDelete(id) }

func (s *Store) authorize(op, id string, pred func(string) bool) (bool, error) {
	if s.authorizer == nil {
		return true, nil
	}
	ok, err := callBool(op, id, func() bool { return pred(id) })
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Store) check(verb, op, id string, pred func(string) bool) error {
	ok, err := s.authorize(op, id, pred)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %q: %w", verb, id, ErrPermissionDenied)
	}
	return nil
}

// Select moves the selection cursor. None clears it.
func (s *Store) Select(id string) error {
	return s.setCursor(&s.selected, id, "select")
}

// HoverOn moves the hover cursor. None clears it.
func (s *Store) HoverOn(id string) error {
	return s.setCursor(&s.hover, id, "hover")
}

func (s *Store) setCursor(cursor *string, id, op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != None {
		if _, ok := s.entries[id]; !ok {
			return fmt.Errorf("%s %q: %w", op, id, ErrUnknownID)
		}
	}
	*cursor = id
	return nil
}

// Style returns the store's own hint for id, before the mode aware overlay.
func (s *Store) Style(id string) style.Style {
	return s.theme.Intrinsic(id, s.Cursors())
}

// Create validates p, obtains an id and inserts the annotation at the end.
func (s *Store) Create(ctx context.Context, p annotation.Payload) (string, error) {
	validated, err := s.validate(ctx, "create", "", p)
	if err != nil {
		return None, err
	}

	var id string
	if s.registrar != nil {
		id, err = call("register", "", func() (string, error) {
			return s.registrar.Register(ctx, validated.Clone())
		})
		if err != nil {
			return None, err
		}
		if id == None {
			s.logger.Info("registrar rejected annotation", "shape", validated.Shape)
			return None, ErrRegistrarRejected
		}
	} else {
		id = s.newID()
	}

	unlock := s.ids.lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entries[id]; dup {
		return None, &DelegateError{Op: "create", ID: id, Err: fmt.Errorf("duplicate id")}
	}
	s.entries[id] = annotation.Entry{ID: id, Payload: validated, Version: 1}
	s.order = append(s.order, id)
	s.logger.Debug("annotation created", "id", id, "shape", validated.Shape)
	return id, nil
}

// Edit replaces the payload of id once the persister accepts it. The entry
// keeps its position and its version is incremented.
func (s *Store) Edit(ctx context.Context, id string, p annotation.Payload) error {
	unlock := s.ids.lock(id)
	defer unlock()

	if !s.Has(id) {
		return fmt.Errorf("edit %q: %w", id, ErrUnknownID)
	}
	if err := s.AuthorizeEdit(id); err != nil {
		return err
	}
	validated, err := s.validate(ctx, "edit", id, p)
	if err != nil {
		return err
	}
	if s.persister != nil {
		ok, err := call("persist", id, func() (bool, error) {
			return s.persister.Persist(ctx, id, validated.Clone())
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("edit %q: %w", id, ErrPersistRejected)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		// cleared while the persister was running
		return fmt.Errorf("edit %q: %w", id, ErrUnknownID)
	}
	e.Payload = validated
	e.Version++
	s.entries[id] = e
	s.logger.Debug("annotation edited", "id", id, "version", e.Version)
	return nil
}

// Delete removes id and clears any cursor pointing at it.
func (s *Store) Delete(ctx context.Context, id string) error {
	unlock := s.ids.lock(id)
	defer unlock()

	if !s.Has(id) {
		return fmt.Errorf("delete %q: %w", id, ErrUnknownID)
	}
	if err := s.AuthorizeDelete(id); err != nil {
		return err
	}
	if s.remover != nil {
		ok, err := call("remove", id, func() (bool, error) { return s.remover.Remove(ctx, id) })
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("delete %q: %w", id, ErrPersistRejected)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("delete %q: %w", id, ErrUnknownID)
	}
	delete(s.entries, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	if s.selected == id {
		s.selected = None
	}
	if s.hover == id {
		s.hover = None
	}
	s.logger.Debug("annotation deleted", "id", id)
	return nil
}

// Clear drops every annotation and both cursors.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.entries = map[string]annotation.Entry{}
	s.selected = None
	s.hover = None
}

func (s *Store) validate(ctx context.Context, op, id string, p annotation.Payload) (annotation.Payload, error) {
	if s.validator == nil {
		return p.Clone(), nil
	}
	out, err := call(op+"/validate", id, func() (annotation.Payload, error) {
		return s.validator.Validate(ctx, p.Clone())
	}, ErrValidationRejected)
	if err != nil {
		return annotation.Payload{}, err
	}
	return out.Clone(), nil
}
