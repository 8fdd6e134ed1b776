package service

import (
	"github.com/pkg/errors"
)

// Error classes. Every coordinator operation returns at most one error
// carrying exactly one of these classes; the transport layer maps the class
// to an HTTP status and renders the message verbatim.
var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

type classifiedError struct {
	class   error
	message string
}

func (e *classifiedError) Error() string { return e.message }

func (e *classifiedError) Is(target error) bool { return target == e.class }

func Invalid(message string) error {
	return &classifiedError{class: ErrValidation, message: message}
}

func Conflict(message string) error {
	return &classifiedError{class: ErrConflict, message: message}
}

func NotFound(message string) error {
	return &classifiedError{class: ErrNotFound, message: message}
}

func Unauthorized(message string) error {
	return &classifiedError{class: ErrUnauthorized, message: message}
}
