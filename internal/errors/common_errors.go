package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the category of an analysis error
type ErrorType string

const (
	ErrTypeSchema     ErrorType = "SCHEMA"
	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeStorage    ErrorType = "STORAGE"
)

// SchemaError is returned when a parsed table does not carry the expected
// column set. Both lists are reported so that copy-paste mistakes can be
// located by the operator.
type SchemaError struct {
	Expected []string
	Found    []string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("[%s] unexpected columns: expected [%s], found [%s]",
		ErrTypeSchema, strings.Join(e.Expected, ", "), strings.Join(e.Found, ", "))
}

// Missing returns expected columns absent from Found.
func (e *SchemaError) Missing() []string {
	return difference(e.Expected, e.Found)
}

// Unexpected returns found columns that are not expected.
func (e *SchemaError) Unexpected() []string {
	return difference(e.Found, e.Expected)
}

// NewSchemaError copies both column lists into a SchemaError
func NewSchemaError(expected, found []string) *SchemaError {
	return &SchemaError{
		Expected: append([]string(nil), expected...),
		Found:    append([]string(nil), found...),
	}
}

// ParseError is returned when delimited or numeric content cannot be read.
// Row is the 1-based input line, 0 when unknown.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Cause  error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", ErrTypeParsing)
	if e.Row > 0 {
		fmt.Fprintf(&b, "row %d", e.Row)
		if e.Column != "" {
			fmt.Fprintf(&b, ", column %q", e.Column)
		}
		b.WriteString(": ")
	} else if e.Column != "" {
		fmt.Fprintf(&b, "column %q: ", e.Column)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, "value %q: ", e.Value)
	}
	if e.Cause != nil {
		b.WriteString(e.Cause.Error())
	} else {
		b.WriteString("malformed input")
	}
	return b.String()
}

// Unwrap allows errors.Is and errors.As to reach the conversion failure
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a parse error for one cell
func NewParseError(row int, column, value string, cause error) *ParseError {
	return &ParseError{Row: row, Column: column, Value: value, Cause: cause}
}

// ValidationError is returned when an operator action would break a registry
// or group rule. The action is rejected and state is left unchanged.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", ErrTypeValidation, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ErrTypeValidation, e.Field, e.Message)
}

// NewValidationError creates a validation error for one field
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// NotFoundError is returned when a session, dimension or group does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("[%s] %s %q not found", ErrTypeNotFound, e.Resource, e.ID)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// StorageError wraps snapshot storage failures
type StorageError struct {
	Op    string
	Key   string
	Cause error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("[%s] %s %q: %v", ErrTypeStorage, e.Op, e.Key, e.Cause)
}

// Unwrap returns the underlying storage error
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a storage error
func NewStorageError(op, key string, cause error) *StorageError {
	return &StorageError{Op: op, Key: key, Cause: cause}
}

func difference(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
