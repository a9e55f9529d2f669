package diagnostic

import (
	"errors"
	"fmt"
	"strings"
)

// Diagnostic codes.
const (
	CodeUnsupportedType        = "unsupported_type"
	CodeOpaqueType             = "opaque_type"
	CodeMissingTypeDeclaration = "missing_type_declaration"
	CodeDuplicateKey           = "duplicate_key"
	CodeUnexportedField        = "unexported_field"
	CodeNoExportedFields       = "no_exported_fields"
	CodeTypeNotFound           = "type_not_found"
)

// Diagnostics holds all findings of one analysis run.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// Diagnostic represents a single finding.
type Diagnostic struct {
	// Severity of the diagnostic.
	Severity DiagnosticSeverity
	// Code is a unique identifier for this type of diagnostic.
	Code string
	// Message is the human-readable description.
	Message string
	// Type is the qualified entity type name, e.g. "users.User".
	Type string
	// Key is the map key of the field (if any).
	Key string
}

// DiagnosticSeverity represents the severity level of a diagnostic.
type DiagnosticSeverity int

const (
	DiagnosticInfo DiagnosticSeverity = iota
	DiagnosticWarning
	DiagnosticError
)

// String returns a human-readable severity name.
func (s DiagnosticSeverity) String() string {
	switch s {
	case DiagnosticInfo:
		return "info"
	case DiagnosticWarning:
		return "warning"
	case DiagnosticError:
		return "error"
	default:
		return "unknown"
	}
}

// AddError adds an error diagnostic.
func (d *Diagnostics) AddError(code, message, typ, key string) {
	d.Errors = append(d.Errors, newDiagnostic(DiagnosticError, code, message, typ, key))
}

// AddWarning adds a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, typ, key string) {
	d.Warnings = append(d.Warnings, newDiagnostic(DiagnosticWarning, code, message, typ, key))
}

// AddInfo adds an info diagnostic.
func (d *Diagnostics) AddInfo(code, message, typ, key string) {
	d.Infos = append(d.Infos, newDiagnostic(DiagnosticInfo, code, message, typ, key))
}

func newDiagnostic(severity DiagnosticSeverity, code, message, typ, key string) Diagnostic {
	return Diagnostic{
		Severity: severity,
		Code:     code,
		Message:  message,
		Type:     typ,
		Key:      key,
	}
}

// HasErrors returns true if there are any error diagnostics.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// All returns every diagnostic, errors first.
func (d *Diagnostics) All() []Diagnostic {
	out := make([]Diagnostic, 0, len(d.Errors)+len(d.Warnings)+len(d.Infos))
	out = append(out, d.Errors...)
	out = append(out, d.Warnings...)

	return append(out, d.Infos...)
}

// ForType returns the diagnostics about one entity type.
func (d *Diagnostics) ForType(typ string) Diagnostics {
	var out Diagnostics

	for _, diag := range d.All() {
		if diag.Type != typ {
			continue
		}

		switch diag.Severity {
		case DiagnosticError:
			out.Errors = append(out.Errors, diag)
		case DiagnosticWarning:
			out.Warnings = append(out.Warnings, diag)
		default:
			out.Infos = append(out.Infos, diag)
		}
	}

	return out
}

// Merge merges another Diagnostics instance into this one.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Errors = append(d.Errors, other.Errors...)
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Infos = append(d.Infos, other.Infos...)
}

// Error returns a combined error from all error diagnostics, or nil if there are none.
func (d *Diagnostics) Error() error {
	if !d.HasErrors() {
		return nil
	}

	parts := make([]string, 0, len(d.Errors))
	for _, e := range d.Errors {
		parts = append(parts, e.String())
	}

	return errors.New(strings.Join(parts, "; "))
}

// String returns a formatted diagnostic string.
func (d Diagnostic) String() string {
	var prefix []string
	if d.Type != "" {
		prefix = append(prefix, "["+d.Type+"]")
	}

	if d.Key != "" {
		prefix = append(prefix, d.Key)
	}

	msg := d.Message
	if d.Code != "" {
		msg = fmt.Sprintf("[%s] %s", d.Code, msg)
	}

	if len(prefix) > 0 {
		return strings.Join(prefix, " ") + ": " + msg
	}

	return msg
}
