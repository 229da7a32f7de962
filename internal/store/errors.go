package store

import (
	"errors"
	"fmt"
)

// Expected failures. Callers check them with errors.Is; none of them leave
// any trace in the store.
var (
	ErrUnknownID          = errors.New("unknown annotation id")
	ErrValidationRejected = errors.New("annotation rejected by validator")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrRegistrarRejected  = errors.New("annotation rejected by registrar")
	ErrPersistRejected    = errors.New("change rejected by persistence")
	ErrInactiveEditor     = errors.New("editor is inactive")
)

// ErrNotFound is returned by Get for ids that are not stored.
var ErrNotFound = ErrUnknownID

// DelegateError reports that an external hook failed unexpectedly. It is the
// only fatal error kind; the store is left exactly as it was before the call.
type DelegateError struct {
	Op  string
	ID  string
	Err error
}

func (e *DelegateError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: delegate failure: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: delegate failure: %v", e.Op, e.ID, e.Err)
}

func (e *DelegateError) Unwrap() error { return e.Err }

// IsExpected reports whether err is one of the soft failures above.
func IsExpected(err error) bool {
	for _, target := range []error{
		ErrUnknownID, ErrValidationRejected, ErrPermissionDenied,
		ErrRegistrarRejected, ErrPersistRejected, ErrInactiveEditor,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsDelegateFailure reports whether err carries a *DelegateError.
func IsDelegateFailure(err error) bool {
	var de *DelegateError
	return errors.As(err, &de)
}

// Outcome names err for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInactiveEditor):
		return "inactive"
	case errors.Is(err, ErrUnknownID):
		return "unknown_id"
	case errors.Is(err, ErrPermissionDenied):
		return "denied"
	case errors.Is(err, ErrValidationRejected):
		return "invalid"
	case errors.Is(err, ErrRegistrarRejected), errors.Is(err, ErrPersistRejected):
		return "rejected"
	case IsDelegateFailure(err):
		return "delegate_failure"
	}
	return "error"
}
