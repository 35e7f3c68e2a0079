package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad payload")
	assert.Equal(t, "bad payload", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", err.ErrorCode)
	assert.Nil(t, err.Details)
}

func TestNewWithDetails(t *testing.T) {
	err := NewWithDetails(http.StatusNotFound, "NOT_FOUND", "session not found", map[string]string{"id": "abc"})
	assert.Equal(t, map[string]string{"id": "abc"}, err.Details)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
		{"no measurements", ErrNoMeasurements, http.StatusConflict, "NO_MEASUREMENTS"},
		{"payload too large", ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestInvalidRequestWithError(t *testing.T) {
	err := InvalidRequestWithError(errors.New("unexpected EOF"))
	assert.Equal(t, "unexpected EOF", err.Details)
	assert.Equal(t, "INVALID_REQUEST", err.ErrorCode)
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("type", "unknown functional type")
	detail, ok := err.Details.(FieldError)
	require.True(t, ok)
	assert.Equal(t, "type", detail.Field)
	assert.Equal(t, "unknown functional type", detail.Message)
}

func TestNotFound(t *testing.T) {
	err := NotFound("dimension")
	assert.Equal(t, "dimension not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
}

func TestNewFieldErrors(t *testing.T) {
	err := NewFieldErrors([]FieldError{
		{Field: "slot", Message: "must be between 1 and 12"},
		{Field: "degrees", Message: "must be below 360"},
	})
	details, ok := err.Details.(FieldErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 2)
}
