package config

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/dshills/stratum/config/layer"
)

// Severity ranks a diagnostic.
type Severity uint8

const (
	// SeverityInfo marks expected conditions, such as a missing optional
	// file.
	SeverityInfo Severity = iota
	// SeverityWarning marks input that was skipped or partly ignored.
	SeverityWarning
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is a non-fatal problem found while composing configuration.
type Diagnostic struct {
	Severity Severity
	Message  string
	// Source is the layer the diagnostic is about. Merge diagnostics have
	// no single source and leave it zero.
	Source layer.Meta
	// Err is the load error, when there was one.
	Err error
}

// String returns "severity: message".
func (d Diagnostic) String() string {
	return d.Severity.String() + ": " + d.Message
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (d Diagnostic) MarshalZerologObject(e *zerolog.Event) {
	e.Str("severity", d.Severity.String())
	if d.Source.Location != "" {
		e.Object("source", d.Source)
	}
	var m zerolog.LogObjectMarshaler
	if errors.As(d.Err, &m) {
		e.Object("error", m)
	}
}

func (c *Composition) diagnose(d Diagnostic) {
	c.diags = append(c.diags, d)
	c.logDiagnostic(d)
}

func (c *Composition) logDiagnostic(d Diagnostic) {
	ev := c.logger.Info()
	if d.Severity >= SeverityWarning {
		ev = c.logger.Warn()
	}
	ev.EmbedObject(d).Msg(d.Message)
}
