// Package errors defines the error taxonomy of the transform/load pipeline.
// Record-level errors (coercion, validation, resolution, write) are caught at
// the record boundary and reported; configuration errors abort the whole run.
package errors

import (
	"fmt"
	"strings"
)

// TypeCoercionError reports a raw field value that cannot be converted to
// its declared type. Record-level and recoverable.
type TypeCoercionError struct {
	Field string
	Type  string
	Value interface{}
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("field %q: cannot coerce %v to %s", e.Field, e.Value, e.Type)
}

// ValidationError reports a coerced value that falls outside its declared
// range or enum. Record-level and recoverable.
type ValidationError struct {
	Field  string
	Reason string
	Value  interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s (got %v)", e.Field, e.Reason, e.Value)
}

// UnmappedFieldError reports an input field with no target in the field
// configuration. Informational; logged, never fatal.
type UnmappedFieldError struct {
	Field string
}

func (e *UnmappedFieldError) Error() string {
	return fmt.Sprintf("field %q has no mapping", e.Field)
}

// ResolutionError reports a natural key that does not match any known master
// row of a controlled vocabulary. Record-level and recoverable; the pipeline
// never auto-creates vocabulary rows.
type ResolutionError struct {
	Kind string
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s %q does not match any known master", e.Kind, e.Name)
}

// WriteError reports a constraint violation or connectivity failure during a
// record's transaction. Triggers rollback of the current record only.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write to %s failed: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a missing or malformed configuration source.
// Fatal; aborts the run before any record is processed.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// FieldErrors accumulates every field-level problem found in one record so
// a rejected record reports all of its problems at once.
type FieldErrors []error

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "no field errors"
	}
	msgs := make([]string, 0, len(fe))
	for _, err := range fe {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Reasons returns the individual error messages, one per failed field.
func (fe FieldErrors) Reasons() []string {
	msgs := make([]string, 0, len(fe))
	for _, err := range fe {
		msgs = append(msgs, err.Error())
	}
	return msgs
}
