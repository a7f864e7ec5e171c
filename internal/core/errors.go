package core

import "errors"

// Error kinds. Handlers map these to HTTP status codes.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Error carries a user-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Validation(msg string) error      { return &Error{Kind: ErrValidation, Message: msg} }
func Unauthenticated(msg string) error { return &Error{Kind: ErrUnauthenticated, Message: msg} }
func Forbidden(msg string) error       { return &Error{Kind: ErrForbidden, Message: msg} }
func NotFound(msg string) error        { return &Error{Kind: ErrNotFound, Message: msg} }
func Conflict(msg string) error        { return &Error{Kind: ErrConflict, Message: msg} }

// Message returns the user-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
