package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity or a mutation request
	// fails validation. Specific validation errors wrap it.
	ErrValidation = errors.New("validation failed")
)
