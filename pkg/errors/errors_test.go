package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryStatusAndType(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		wantCode int
	}{
		{"validation", NewValidationError("bad input"), ErrorTypeValidation, http.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError(""), ErrorTypeUnauthorized, http.StatusUnauthorized},
		{"not found", NewNotFoundError("product x"), ErrorTypeNotFound, http.StatusNotFound},
		{"conflict", NewConflictError("code taken"), ErrorTypeConflict, http.StatusConflict},
		{"unavailable", NewUnavailableError(""), ErrorTypeUnavailable, http.StatusServiceUnavailable},
		{"internal", NewInternalError("boom"), ErrorTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantCode, tt.err.HTTPStatus)
		})
	}
}

func TestNotFoundMessageNamesResource(t *testing.T) {
	err := NewNotFoundError("product abc-123")
	assert.Contains(t, err.Message, "product abc-123 not found")
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := NewInternalError("store call failed").WithCause(cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "socket closed")
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("x")))
	assert.True(t, IsConflict(NewConflictError("x")))
	assert.True(t, IsValidation(NewValidationError("x")))
	assert.True(t, IsUnavailable(NewUnavailableError("x")))
	assert.False(t, IsNotFound(NewConflictError("x")))
	assert.False(t, IsConflict(nil))
}

func TestGetAppErrorThroughWrapping(t *testing.T) {
	inner := NewConflictError("duplicate code")
	wrapped := fmt.Errorf("creating product: %w", inner)

	got := GetAppError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrorTypeConflict, got.Type)
}

func TestWrapKeepsClassification(t *testing.T) {
	inner := NewNotFoundError("product x")
	wrapped := Wrap(inner, "lookup failed")

	assert.True(t, IsNotFound(wrapped))
	assert.Contains(t, wrapped.Error(), "lookup failed")
}

func TestWrapForeignErrorBecomesInternal(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), "store call")
	assert.True(t, IsInternal(wrapped))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "anything"))
}
