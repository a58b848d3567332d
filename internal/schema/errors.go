package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformedBody is returned when a request body is not a JSON object.
var ErrMalformedBody = errors.New("malformed JSON body")

const (
	msgRequired    = "Missing data for required field."
	msgNotNull     = "Field may not be null."
	msgNotString   = "Not a valid string."
	msgNotInteger  = "Not a valid integer."
	msgNotDate     = "Not a valid date."
	msgPastDate    = "Due date cannot be in the past."
	msgUnknown     = "Unknown field."
	msgInvalidEnum = "Must be one of: %s."
	msgLength      = "Length must be between %d and %d."
)

// ValidationError lists every violation found in a task payload, keyed by
// field name.
type ValidationError struct {
	Fields map[string][]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// QueryError reports an unusable query parameter of a listing request.
type QueryError struct {
	Param   string
	Message string
	Reason  string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s", strings.ToLower(e.Message), e.Reason)
}

// Details returns the reason keyed by the offending parameter.
func (e *QueryError) Details() map[string][]string {
	return map[string][]string{e.Param: {e.Reason}}
}
