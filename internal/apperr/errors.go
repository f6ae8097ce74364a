// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrValidation     = errors.New("validation failed")
	ErrUpstreamConfig = errors.New("upstream not configured")
)

// UpstreamHTTPError is a non-success status returned by an LLM provider.
// Body is the provider's response, forwarded verbatim.
type UpstreamHTTPError struct {
	Status int
	Body   string
}

func (e *UpstreamHTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
	return e.Body
}

// Validation wraps a message as an ErrValidation
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Message strips the taxonomy prefix so the remaining text can be shown to
// users as-is.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrForbidden, ErrUnauthorized, ErrUpstreamConfig} {
		if rest, ok := strings.CutPrefix(msg, kind.Error()+": "); ok && rest != "" {
			return rest
		}
	}
	return msg
}
