package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{Validation("name", "required"), http.StatusBadRequest},
		{Unauthorized("bad token"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("location"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{TooLarge("big"), http.StatusRequestEntityTooLarge},
		{Unprocessable("mismatch"), http.StatusUnprocessableEntity},
		{TooManyRequests("slow down"), http.StatusTooManyRequests},
		{Internal("boom", errors.New("db")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus(), tc.err.Error())
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("loading: %w", NotFound("extinguisher"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, errors.Is(err, ErrConflict))

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "extinguisher not found", appErr.Message)
}

func TestValidationDetails(t *testing.T) {
	err := Validation("email", "is required")
	assert.Equal(t, map[string]string{"email": "is required"}, err.Details)

	err = Validation("", "tenant_slug required")
	assert.Equal(t, "tenant_slug required", err.Message)
	assert.Nil(t, err.Details)
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to save", cause)
	assert.ErrorIs(t, err, cause)
}
