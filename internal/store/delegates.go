package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jask/annotator/internal/annotation"
)

// Validator checks and normalizes a payload before create and edit. Returning
// an error wrapping ErrValidationRejected is a soft rejection; any other error
// is a delegate failure.
type Validator interface {
	Validate(ctx context.Context, p annotation.Payload) (annotation.Payload, error)
}

// Registrar assigns ids for new annotations, typically by recording them in an
// external system. An empty id with a nil error means the registrar refused.
type Registrar interface {
	Register(ctx context.Context, p annotation.Payload) (string, error)
}

// Persister stores an edit externally. The store commits locally only when it
// reports true.
type Persister interface {
	Persist(ctx context.Context, id string, p annotation.Payload) (bool, error)
}

// Remover removes an annotation externally. The store deletes locally only
// when it reports true.
type Remover interface {
	Remove(ctx context.Context, id string) (bool, error)
}

// Authorizer decides edit and delete permissions per annotation.
type Authorizer interface {
	CanEdit(id string) bool
	CanDelete(id string) bool
}

type ValidatorFunc func(ctx context.Context, p annotation.Payload) (annotation.Payload, error)

func (f ValidatorFunc) Validate(ctx context.Context, p annotation.Payload) (annotation.Payload, error) {
	return f(ctx, p)
}

type RegistrarFunc func(ctx context.Context, p annotation.Payload) (string, error)

func (f RegistrarFunc) Register(ctx context.Context, p annotation.Payload) (string, error) {
	return f(ctx, p)
}

type PersisterFunc func(ctx context.Context, id string, p annotation.Payload) (bool, error)

func (f PersisterFunc) Persist(ctx context.Context, id string, p annotation.Payload) (bool, error) {
	return f(ctx, id, p)
}

type RemoverFunc func(ctx context.Context, id string) (bool, error)

func (f RemoverFunc) Remove(ctx context.Context, id string) (bool, error) {
	return f(ctx, id)
}

// AuthorizerFuncs builds an Authorizer from two predicates; a nil predicate
// grants.
type AuthorizerFuncs struct {
	Edit   func(id string) bool
	Delete func(id string) bool
}

func (a AuthorizerFuncs) CanEdit(id string) bool   { return a.Edit == nil || a.Edit(id) }
func (a AuthorizerFuncs) CanDelete(id string) bool { return a.Delete == nil || a.Delete(id) }

// call runs a delegate, turning panics and unexpected errors into
// *DelegateError. Errors matching one of soft pass through unchanged.
func call[T any](op, id string, fn func() (T, error), soft ...error) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out = zero
			err = &DelegateError{Op: op, ID: id, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	out, err = fn()
	if err == nil {
		return out, nil
	}
	for _, s := range soft {
		if errors.Is(err, s) {
			return out, err
		}
	}
	return out, &DelegateError{Op: op, ID: id, Err: err}
}

func callBool(op, id string, fn func() bool) (ok bool, err error) {
	return call(op, id, func() (bool, error) { return fn(), nil })
}
