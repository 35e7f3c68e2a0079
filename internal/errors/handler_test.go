package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrolog/internal/shared/testutil"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantExt    map[string]interface{}
	}{
		{
			name:       "deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "api error",
			err:        ErrNoMeasurements,
			wantStatus: http.StatusConflict,
			wantType:   TypeConflict,
			wantExt:    map[string]interface{}{"error_code": "NO_MEASUREMENTS"},
		},
		{
			name:       "schema error",
			err:        fmt.Errorf("upload: %w", NewSchemaError([]string{"A", "B"}, []string{"A", "C"})),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeSchema,
			wantExt: map[string]interface{}{
				"missing":    []interface{}{"B"},
				"unexpected": []interface{}{"C"},
			},
		},
		{
			name:       "parse error",
			err:        NewParseError(3, "Mesure", "1,2,3", errors.New("invalid number")),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeParse,
			wantExt:    map[string]interface{}{"row": float64(3), "column": "Mesure"},
		},
		{
			name:       "validation error",
			err:        NewValidationError("members", "a group needs at least two members", nil),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantExt:    map[string]interface{}{"field": "members"},
		},
		{
			name:       "not found",
			err:        NewNotFoundError("dimension", "D9"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantExt:    map[string]interface{}{"resource": "dimension"},
		},
		{
			name:       "storage error",
			err:        NewStorageError("get", "k", errors.New("boom")),
			wantStatus: http.StatusBadGateway,
			wantType:   TypeStorage,
		},
		{
			name:       "unknown error",
			err:        errors.New("something else"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodGet, "/api/sessions/1/stats", nil)
			w := httptest.NewRecorder()

			handler.HandleError(w, req, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/sessions/1/stats", body["instance"])
			for k, v := range tt.wantExt {
				assert.Equal(t, v, body[k], k)
			}
			assert.NotContains(t, body, "stack")
		})
	}
}

func TestErrorHandler_NilError(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, handler.Count())
}

func TestErrorHandler_LogLevel(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	h.HandleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), NewNotFoundError("session", "x"))
	h.HandleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))

	assert.Len(t, handler.GetRecordsByLevel(slog.LevelWarn), 1)
	assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
}

func TestErrorHandler_IncludeStack(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "stack")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	h.HandlePanic(w, httptest.NewRequest(http.MethodPost, "/api/sessions", nil), "nil map")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, handler.ContainsMessage("panic recovered"))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "DELETE")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeParse, "Malformed", "", "").
		WithExtension("row", 7)

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(7), body["row"])
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, body, "instance")
}
