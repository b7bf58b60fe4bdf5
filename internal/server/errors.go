// Package server provides the HTTP REST API for the talent sourcer.
package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ErrSessionNotFound indicates the session id has no row.
type ErrSessionNotFound struct {
	SessionID uuid.UUID
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// ErrSessionInactive indicates the session was soft-deleted.
type ErrSessionInactive struct {
	SessionID uuid.UUID
}

func (e *ErrSessionInactive) Error() string {
	return fmt.Sprintf("session is no longer active: %s", e.SessionID)
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrCursorConflict indicates a load-more call tried to move the session
// cursor backwards, usually a replayed or out-of-order request.
type ErrCursorConflict struct {
	SessionID uuid.UUID
}

func (e *ErrCursorConflict) Error() string {
	return fmt.Sprintf("cursor conflict for session %s: out-of-order load-more", e.SessionID)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrSessionNotFound:
		return http.StatusNotFound
	case *ErrSessionInactive:
		return http.StatusGone
	case *ErrValidation:
		return http.StatusBadRequest
	case *ErrCursorConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
