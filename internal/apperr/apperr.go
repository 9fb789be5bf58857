// Package apperr defines the error vocabulary surfaced by Switchyard use cases.
//
// Every error returned across a package boundary either wraps one of the
// sentinels below or is an infrastructure error. Callers classify errors with
// errors.Is / errors.As, or with Code for transport layers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors in this package match them via Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrValidation       = errors.New("validation failed")
	ErrWipLimitExceeded = errors.New("wip limit exceeded")
	ErrConflict         = errors.New("conflict")
)

// Codes reported to callers.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeForbidden        = "FORBIDDEN"
	CodeValidation       = "VALIDATION_ERROR"
	CodeWipLimitExceeded = "WIP_LIMIT_EXCEEDED"
	CodeConflict         = "CONFLICT"
	CodeInternal         = "INTERNAL"
)

// Code maps err to its reported code. Unclassified errors are INTERNAL.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrWipLimitExceeded):
		return CodeWipLimitExceeded
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}

// NotFound returns an error wrapping ErrNotFound for the given entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// Conflict returns an error wrapping ErrConflict.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// Forbidden returns an error wrapping ErrForbidden.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrForbidden)
}

// FieldError describes a single rejected input field.
type FieldError struct {
	FieldID   string `json:"field_id"`
	FieldName string `json:"field_name,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (e FieldError) Error() string {
	name := e.FieldName
	if name == "" {
		name = e.FieldID
	}
	return fmt.Sprintf("%s: %s", name, e.Message)
}

// ValidationError carries every field error found in one validation pass.
type ValidationError struct {
	Fields []FieldError
}

// Invalid builds a ValidationError for a single field.
func Invalid(fieldID, code, format string, args ...any) *ValidationError {
	return &ValidationError{Fields: []FieldError{{
		FieldID: fieldID,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Field returns the first error for fieldID, if any.
func (e *ValidationError) Field(fieldID string) (FieldError, bool) {
	for _, f := range e.Fields {
		if f.FieldID == fieldID {
			return f, true
		}
	}
	return FieldError{}, false
}

// WipLimitError reports a rejected column entry.
type WipLimitError struct {
	ColumnID   string `json:"column_id"`
	ColumnName string `json:"column_name"`
	Limit      int    `json:"limit"`
	Attempted  int    `json:"attempted_occupancy"`
}

func (e *WipLimitError) Error() string {
	return fmt.Sprintf("%s: column %q allows %d tasks, move would make %d",
		ErrWipLimitExceeded, e.ColumnName, e.Limit, e.Attempted)
}

// Is reports whether target is ErrWipLimitExceeded.
func (e *WipLimitError) Is(target error) bool { return target == ErrWipLimitExceeded }
