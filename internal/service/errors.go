// Package service implements the application operations on top of the
// repositories: composite writes in exclusive transactions, business rules
// that span rows, and a uniform error taxonomy for callers.
package service

import (
	"errors"
	"fmt"

	"github.com/shelfkeep/shelfkeep/internal/domain"
	"github.com/shelfkeep/shelfkeep/internal/repository"
)

// Kind classifies a service failure for the caller. Presentation layers
// switch on Kind; the wrapped error keeps the detail.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindRetrievalFailed
	KindCreationFailed
	KindUpdateFailed
	KindDeleteFailed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindRetrievalFailed:
		return "retrieval failed"
	case KindCreationFailed:
		return "creation failed"
	case KindUpdateFailed:
		return "update failed"
	case KindDeleteFailed:
		return "delete failed"
	}
	return "unknown"
}

// Error is the only error type services return. Op names the operation that
// failed, in "service.Method" form.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrKind reports the Kind of a service error, KindUnknown for anything else.
func ErrKind(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// wrap classifies err under op. Validation and not-found failures keep their
// own kinds regardless of the fallback; everything else takes fallback.
func wrap(op string, fallback Kind, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	kind := fallback
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		kind = KindValidation
	case errors.Is(err, repository.ErrNotFound):
		kind = KindNotFound
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
