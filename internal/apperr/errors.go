// Package apperr defines the sentinel errors shared by services and handlers.
// Callers match them with errors.Is.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned for an unknown group slug, username or post id.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the viewer may not modify the target.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized is returned when an operation needs a viewer and got a guest.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned by the credential store on a bad login.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationErrors maps a form field name to its messages.
// A non-empty value means the input was rejected and nothing was written.
type ValidationErrors map[string][]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(v[f], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a message for field.
func (v ValidationErrors) Add(field, message string) {
	v[field] = append(v[field], message)
}

// First returns the first message for field, or "".
func (v ValidationErrors) First(field string) string {
	if msgs := v[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// OrNil returns nil when there are no messages so the result can be returned as error.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// AsValidation extracts ValidationErrors from err.
func AsValidation(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
