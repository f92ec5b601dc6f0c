// Package errors defines the error taxonomy of the hub. Every failure in
// the core is scoped to the single originating action; none is process-fatal.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks malformed or empty input. No state change happened.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a reference to a project, task or user that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized marks an actor or target that is not a member of the project.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStore marks a failed call to the underlying store.
	ErrStore = errors.New("store failure")

	// ErrAlreadyRegistered is returned when a connection id is registered twice.
	ErrAlreadyRegistered = errors.New("connection already registered")
	// ErrUnknownConnection is returned when joining a channel from an
	// unregistered connection.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrWorkerPanic is what the supervisor reports when a worker panicked.
	ErrWorkerPanic = errors.New("worker panic")
)

func Validationf(format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), ErrValidation)
}

func NotFoundf(format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), ErrNotFound)
}

func Unauthorizedf(format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), ErrUnauthorized)
}

func Storef(format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), ErrStore)
}

// Code maps an error to the stable tag carried on the wire in error frames.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrStore):
		return "store"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error to the status code of the REST layer.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
