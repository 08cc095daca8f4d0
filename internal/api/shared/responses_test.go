package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		data         interface{}
		expectedBody string
	}{
		{
			name:         "successful response",
			status:       http.StatusOK,
			data:         map[string]interface{}{"status": "ok", "count": 3},
			expectedBody: `{"count":3,"status":"ok"}`,
		},
		{
			name:         "empty list",
			status:       http.StatusOK,
			data:         []string{},
			expectedBody: `[]`,
		},
		{
			name:         "nil response",
			status:       http.StatusOK,
			data:         nil,
			expectedBody: `null`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			RespondWithJSON(w, req, tc.status, tc.data)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tc.expectedBody, strings.TrimSpace(w.Body.String()))
		})
	}
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/failed-jobs", nil)
	req = req.WithContext(WithTraceID(req.Context(), "trace-1"))
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusBadRequest, "Invalid request")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Invalid request", resp.Error)
	assert.Equal(t, "trace-1", resp.TraceID)
	assert.Zero(t, resp.Code, "code is not serialized")
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  slog.Level
	}{
		{name: "client error logs at debug", status: http.StatusNotFound, level: slog.LevelDebug},
		{name: "server error logs at error", status: http.StatusInternalServerError, level: slog.LevelError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, buf := logger.NewTestLogger(t)
			req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
			req = req.WithContext(logger.WithLogger(req.Context(), log))
			w := httptest.NewRecorder()

			RespondWithErrorAndLog(w, req, tc.status, "Something failed",
				errors.New("dial tcp 10.0.0.5:5432: connection refused"))

			assert.Equal(t, tc.status, w.Code)
			assert.NotContains(t, w.Body.String(), "10.0.0.5", "internal detail must not reach the client")
			assert.Contains(t, w.Body.String(), "Something failed")

			assert.Equal(t, 1, logger.CountLevel(t, buf, tc.level))
			logger.AssertLogContains(t, buf, "connection refused")
		})
	}
}
