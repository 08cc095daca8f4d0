package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/service"
	"github.com/phrazzld/feedcore/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"post not found", store.ErrPostNotFound, http.StatusNotFound, "Post not found"},
		{"wrapped comment not found", fmt.Errorf("lookup: %w", store.ErrCommentNotFound), http.StatusNotFound, "Comment not found"},
		{"like not found", store.ErrLikeNotFound, http.StatusNotFound, "Resource not found"},
		{"already liked", service.ErrAlreadyLiked, http.StatusConflict, "Post already liked"},
		{"not liked", service.ErrNotLiked, http.StatusConflict, "Post not liked"},
		{"duplicate", store.ErrDuplicate, http.StatusConflict, "Resource already exists"},
		{"validation", domain.ErrEmptyCommentText, http.StatusBadRequest, "Invalid request"},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest, "Invalid request"},
		{"service error", service.NewServiceError("post", "create", errors.New("queue down")), http.StatusInternalServerError, "An unexpected error occurred"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.message, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestMapErrorToStatusCodeNil(t *testing.T) {
	assert.Equal(t, http.StatusOK, MapErrorToStatusCode(nil))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
