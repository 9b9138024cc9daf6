package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StatusFromCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeValidationError, http.StatusBadRequest},
		{CodeInvalidAdjustment, http.StatusBadRequest},
		{CodeUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidState, http.StatusConflict},
		{CodeConcurrentModification, http.StatusConflict},
		{CodeInsufficientStock, http.StatusUnprocessableEntity},
		{CodeTimeout, http.StatusGatewayTimeout},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus)
		})
	}
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	cause := fmt.Errorf("connection reset")
	internal := FromError(cause)
	assert.Equal(t, CodeInternalError, internal.Code)
	assert.Equal(t, "an internal error occurred", internal.Message)
	assert.ErrorIs(t, internal, cause)
	assert.False(t, internal.IsClientError())

	wrapped := fmt.Errorf("reserve: %w", ErrInsufficientStock("only 3 available"))
	appErr := FromError(wrapped)
	assert.Equal(t, CodeInsufficientStock, appErr.Code)
	assert.True(t, appErr.IsClientError())
}

func TestErrValidationWithFields(t *testing.T) {
	appErr := ErrValidationWithFields("invalid request", map[string]string{"quantity": "must be greater than 0"})
	require.NotNil(t, appErr.Details)
	assert.Equal(t, "must be greater than 0", appErr.Details["quantity"])
	assert.Equal(t, "VALIDATION_ERROR: invalid request", appErr.Error())
}
