package model

import "errors"

// Error kinds shared by the store, services, and HTTP handlers. Callers wrap
// them with context using fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrDelivery     = errors.New("delivery failed")
	ErrInternal     = errors.New("internal error")
)
