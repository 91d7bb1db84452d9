// Package apperr defines the error taxonomy shared across Raido.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// ValidationError reports a structurally invalid project document.
// Loading refuses the whole document; there is no partial load.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid project: %s", e.Reason)
	}
	return fmt.Sprintf("invalid project: field %q: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// UnsupportedVersionError is the one validation failure with a migration
// seam: the document parsed but carries a version this build does not read.
type UnsupportedVersionError struct {
	Got  int
	Want int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported project version %d (want %d)", e.Got, e.Want)
}

// As lets callers that match on *ValidationError also catch version
// mismatches without a second errors.As pass.
func (e *UnsupportedVersionError) As(target any) bool {
	if v, ok := target.(**ValidationError); ok {
		*v = &ValidationError{Field: "version", Reason: e.Error()}
		return true
	}
	return false
}

// DecodeError means one file's image payload could not be decoded.
// It aborts that file only; the surrounding batch continues.
type DecodeError struct {
	FileName string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.FileName, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError means a downscaled image could not be re-encoded.
// Like DecodeError it is scoped to a single file.
type EncodeError struct {
	FileName string
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.FileName, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
