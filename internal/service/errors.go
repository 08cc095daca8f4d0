package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// Not-found conditions are reported with the store's sentinels
// (store.ErrPostNotFound, store.ErrCommentNotFound) so callers can match
// them with store.IsNotFoundError.
//
// Error handling principles:
// 1. Validation runs before anything is enqueued and wraps domain.ErrValidation
// 2. Existence checks run synchronously and surface not-found errors inline
// 3. Failures of queued work are never returned here; they reach the failure log
var (
	// ErrAlreadyLiked indicates the user already likes the post.
	// API layer should map this to HTTP 409 Conflict.
	ErrAlreadyLiked = errors.New("post already liked")

	// ErrNotLiked indicates an unlike of a post the user does not like.
	// API layer should map this to HTTP 409 Conflict.
	ErrNotLiked = errors.New("post not liked")
)

// ServiceError wraps an unexpected failure with the service and operation
// it happened in.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
	}
	return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}
