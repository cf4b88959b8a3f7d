package pipeline

import (
	"errors"
	"fmt"
)

// Kinds of client input errors. An *InputError wraps exactly one of them.
var (
	ErrMissingFile     = errors.New("missing video file")
	ErrMissingFields   = errors.New("missing required fields")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrTooManyFiles    = errors.New("too many files")
)

// InputError is a request the client must fix. Message is safe to show to
// the user.
type InputError struct {
	Kind    error
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return e.Kind }

func inputError(kind error, format string, args ...any) error {
	return &InputError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
