package loader

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"
)

// Errors returned by loading operations.
var (
	// ErrIO indicates a configuration source could not be read.
	ErrIO = errors.New("config source unreadable")

	// ErrParse indicates a configuration source was read but is malformed.
	ErrParse = errors.New("config source malformed")

	// ErrNotFound indicates the configuration file doesn't exist.
	ErrNotFound = errors.New("config file not found")
)

// ErrorKind classifies a LoadError.
type ErrorKind uint8

const (
	// KindIO is a read failure.
	KindIO ErrorKind = iota
	// KindParse is a syntax failure.
	KindParse
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	if k == KindParse {
		return "parse"
	}
	return "io"
}

// LoadError describes a failure to load a single configuration source.
type LoadError struct {
	// Kind is KindIO or KindParse.
	Kind ErrorKind
	// Path is the file that failed to load.
	Path string
	// Format is the syntax that was attempted (parse errors only).
	Format Format
	// Line is the line number where parsing failed (if available).
	Line int
	// Column is the column number where parsing failed (if available).
	Column int
	// Message describes the failure.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Kind == KindIO {
		return fmt.Sprintf("reading config file %s: %s", e.Path, e.Message)
	}
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s parse error in %s at line %d, column %d: %s", e.Format, e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s parse error in %s at line %d: %s", e.Format, e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s parse error in %s: %s", e.Format, e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches ErrIO, ErrParse or ErrNotFound.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrIO:
		return e.Kind == KindIO
	case ErrParse:
		return e.Kind == KindParse
	case ErrNotFound:
		return e.Kind == KindIO && errors.Is(e.Err, fs.ErrNotExist)
	}
	return false
}

// NotFound reports whether the error was caused by a missing file.
func (e *LoadError) NotFound() bool {
	return e.Is(ErrNotFound)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *LoadError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("kind", e.Kind.String()).Str("path", e.Path)
	if e.Kind == KindParse {
		ev.Str("format", e.Format.String())
	}
	if e.Line > 0 {
		ev.Int("line", e.Line)
	}
	if e.Column > 0 {
		ev.Int("column", e.Column)
	}
	ev.Str("message", e.Message)
}

func ioError(path string, err error) *LoadError {
	msg := err.Error()
	var pe *fs.PathError
	if errors.As(err, &pe) {
		msg = pe.Err.Error()
	}
	return &LoadError{Kind: KindIO, Path: path, Message: msg, Err: err}
}
