package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping and retry policy.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation — malformed or missing input. Never retried.
	KindValidation
	// KindConflict — duplicate booking, seat/time overlap, payment already
	// confirmed. The caller must change parameters.
	KindConflict
	// KindNotFound — booking/pass/promo absent.
	KindNotFound
	// KindResourceExhausted — no remaining pass quantity, insufficient credit.
	KindResourceExhausted
	// KindInconsistency — a downstream write failed after an upstream
	// resource was already consumed; compensation was attempted.
	KindInconsistency
	// KindExternal — notification or other collaborator failure. Non-fatal
	// for the business transition that triggered it.
	KindExternal
)

type Error struct {
	ErrKind Kind
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.ErrKind == e.ErrKind && (t.Msg == "" || t.Msg == e.Msg)
}

func New(kind Kind, msg string) *Error {
	return &Error{ErrKind: kind, Msg: msg}
}

func Newf(kind Kind, format string, v ...interface{}) *Error {
	return &Error{ErrKind: kind, Msg: fmt.Sprintf(format, v...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{ErrKind: kind, Msg: msg, Err: err}
}

// KindOf walks the error chain and returns the first recognised kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.ErrKind
	}
	return KindUnknown
}
