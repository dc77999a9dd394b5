// Package apperr carries the domain error taxonomy shared by all services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Domain services never retry; infrastructure failures are
// surfaced as ErrInfra and retried (if at all) by the failing collaborator.
const (
	KindValidation   = "validation"
	KindUnauthorized = "unauthorized"
	KindConflict     = "state_conflict"
	KindNotFound     = "not_found"
	KindInfra        = "infrastructure"
)

// Error is a structured domain error with enough context to render a
// user-facing message.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Infra(format string, args ...interface{}) error {
	return &Error{Kind: KindInfra, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind string) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// Status maps a domain error to its HTTP status. Unknown errors map to 500.
func Status(err error) int {
	var de *Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
