package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error types for the bracket analysis pipeline
type ErrorType string

const (
	// Cycle errors
	ErrorTypeLocation   ErrorType = "location"
	ErrorTypeScopeTrace ErrorType = "scope_trace"
	ErrorTypeInvariant  ErrorType = "invariant"
	ErrorTypeParse      ErrorType = "parse"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// ErrCancelled is returned by a cycle step that observed the cancel flag
var ErrCancelled = errors.New("analysis cycle cancelled")

// ErrNoTree marks a buffer for which no syntax tree could be produced
var ErrNoTree = errors.New("no syntax tree available")

// LocationError is an offset or line lookup that failed against the buffer
// snapshot. It cancels the running cycle.
type LocationError struct {
	Type       ErrorType
	Operation  string
	Offset     int
	Underlying error
	Timestamp  time.Time
}

// NewLocationError creates a location error for a lookup at offset
func NewLocationError(op string, offset int, err error) *LocationError {
	return &LocationError{
		Type:       ErrorTypeLocation,
		Operation:  op,
		Offset:     offset,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *LocationError) Error() string {
	return fmt.Sprintf("%s %s failed at offset %d: %v", e.Type, e.Operation, e.Offset, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *LocationError) Unwrap() error {
	return e.Underlying
}

// ScopeTraceError reports that the scope stack no longer matches the tree
// being walked. The affected hint is skipped and traversal continues.
type ScopeTraceError struct {
	Type        ErrorType
	Where       string
	NodeOffset  int
	Detail      string
	Recoverable bool
	Timestamp   time.Time
}

// NewScopeTraceError creates a recoverable scope-trace error
func NewScopeTraceError(where string, nodeOffset int, detail string) *ScopeTraceError {
	return &ScopeTraceError{
		Type:        ErrorTypeScopeTrace,
		Where:       where,
		NodeOffset:  nodeOffset,
		Detail:      detail,
		Recoverable: true,
		Timestamp:   time.Now(),
	}
}

// Error implements the error interface
func (e *ScopeTraceError) Error() string {
	return fmt.Sprintf("lost track of scope (%s) at offset %d: %s", e.Where, e.NodeOffset, e.Detail)
}

// IsRecoverable checks if traversal may continue after the error
func (e *ScopeTraceError) IsRecoverable() bool {
	return e.Recoverable
}

// InvariantError is an internal-consistency fault, such as a matcher
// reporting an empty region. The cycle is discarded.
type InvariantError struct {
	Type      ErrorType
	Component string
	Detail    string
	Timestamp time.Time
}

// NewInvariantError creates an invariant error
func NewInvariantError(component, format string, args ...interface{}) *InvariantError {
	return &InvariantError{
		Type:      ErrorTypeInvariant,
		Component: component,
		Detail:    fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s invariant violated: %s", e.Component, e.Detail)
}

// ParseError represents a failure to produce a syntax tree
type ParseError struct {
	Type       ErrorType
	FilePath   string
	Language   string
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error
func NewParseError(path, language string, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FilePath:   path,
		Language:   language,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s (%s): %v", e.FilePath, e.Language, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error, dropping nil entries
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// IsCycleFatal reports whether err must abort the running cycle without
// publishing. Scope-trace errors are the only recoverable cycle errors.
func IsCycleFatal(err error) bool {
	if err == nil {
		return false
	}
	var ste *ScopeTraceError
	if errors.As(err, &ste) && ste.IsRecoverable() {
		return false
	}
	return true
}
