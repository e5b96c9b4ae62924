package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/dshills/stratum/config/access"
)

// Errors returned by composition and extraction.
var (
	// ErrSchemaMismatch indicates the merged value does not fit the
	// extraction target.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrValidationFailed indicates the extracted struct failed its
	// validation tags.
	ErrValidationFailed = errors.New("validation failed")

	// ErrSettingNotFound indicates a path is absent from the merged value.
	ErrSettingNotFound = access.ErrSettingNotFound

	// ErrInvalidTarget indicates an extraction destination that is not a
	// non-nil pointer.
	ErrInvalidTarget = errors.New("extraction target must be a non-nil pointer")
)

// SchemaMismatchError reports a merged value that cannot be decoded into
// the caller's type.
type SchemaMismatchError struct {
	// Path is the dotted path of the offending value, empty for the root.
	Path string
	// Expected is the Go type the target wanted.
	Expected string
	// Found describes the configuration value that was encountered.
	Found string
	// Err is the underlying decode error.
	Err error
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	return fmt.Sprintf("schema mismatch at %s: expected %s, found %s", path, e.Expected, e.Found)
}

// Unwrap returns the underlying error.
func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSchemaMismatch.
func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *SchemaMismatchError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("path", e.Path).Str("expected", e.Expected).Str("found", e.Found)
}

// ValidationError wraps the field errors reported by struct validation.
type ValidationError struct {
	Fields validator.ValidationErrors
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap returns the validator errors.
func (e *ValidationError) Unwrap() error {
	return e.Fields
}

// Is reports whether target is ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *ValidationError) MarshalZerologObject(ev *zerolog.Event) {
	fields := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		fields = append(fields, fe.Namespace())
	}
	ev.Strs("fields", fields)
}
