package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports missing or malformed input detected before any
// persistence attempt.
type ValidationError struct {
	Violations []Violation
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Violations: []Violation{{
		Rule:     "required_fields",
		Severity: SeverityBlock,
		Message:  message,
		Entity:   EntityPathogen,
		Field:    field,
	}}}
}

func (e ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}

// Fields lists the offending field paths in evaluation order.
func (e ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Field != "" {
			out = append(out, v.Field)
		}
	}
	return out
}

// StoreError wraps any failure reported by the relational store. Its message
// is the store's message, unchanged.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	if e.Err == nil {
		return e.Op + ": store failure"
	}
	return e.Err.Error()
}

func (e StoreError) Unwrap() error { return e.Err }

// NotFoundError is returned by stores when a referenced record does not exist.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
