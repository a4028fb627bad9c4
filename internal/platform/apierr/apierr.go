package apierr

import (
	"errors"
	"fmt"
)

// Sentinels for the core error taxonomy. Services wrap these with
// fmt.Errorf("...: %w", ...) so callers can match with errors.Is.
var (
	// ErrNotFound marks an unknown attachment, version, or policy.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a duplicate policy for a scope/target pair.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument marks rejected input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorageFailure marks a content backend failure. Fatal on the
	// write path, logged-and-ignored on purge-time deletes.
	ErrStorageFailure = errors.New("storage failure")
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

func Conflict(what string) error {
	return fmt.Errorf("%s: %w", what, ErrConflict)
}

func InvalidArgument(what string) error {
	return fmt.Errorf("%s: %w", what, ErrInvalidArgument)
}

func StorageFailure(what string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %v: %w", what, err, ErrStorageFailure)
	}
	return fmt.Errorf("%s: %w", what, ErrStorageFailure)
}
