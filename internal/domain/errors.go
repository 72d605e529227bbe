package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// ConflictError names the field whose uniqueness was violated.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return fmt.Sprintf("%s already in use", e.Field) }

func (e *ConflictError) Unwrap() error { return ErrConflict }

func EmailTaken() error { return &ConflictError{Field: "email"} }
