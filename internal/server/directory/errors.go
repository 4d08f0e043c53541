package directory

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to HTTP status codes with errors.Is;
// any other error is an internal failure of the store.
var (
	// ErrValidation indicates malformed or missing input
	ErrValidation = errors.New("validation failed")

	// ErrAuthentication indicates a wrong PIN
	ErrAuthentication = errors.New("authentication failed")

	// ErrConflict indicates that a username or email is owned by another user
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a missing user record
	ErrNotFound = errors.New("not found")

	// ErrCapacity indicates that the roster already holds MaxUsers accounts
	ErrCapacity = errors.New("capacity reached")
)

// Error is a directory failure with a message that is safe to show to clients
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

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// PublicMessage returns the client-facing message of err.
// Errors that are not *Error never leak their text.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
