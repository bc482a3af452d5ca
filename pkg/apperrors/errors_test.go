package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsCarryCodeAndStatus(t *testing.T) {
	cases := []struct {
		err    *Error
		code   string
		status int
	}{
		{Validation("bad input"), CodeValidation, http.StatusBadRequest},
		{Authentication("nope"), CodeAuthentication, http.StatusUnauthorized},
		{Authorization("denied"), CodeAuthorization, http.StatusForbidden},
		{NotFound("user"), CodeNotFound, http.StatusNotFound},
		{Conflict("taken"), CodeConflict, http.StatusConflict},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, c.err.Code)
		assert.Equal(t, c.status, c.err.Status)
	}
}

func TestNotFoundMessages(t *testing.T) {
	assert.Equal(t, "user not found", NotFound("user").Error())
	assert.Equal(t, "user with id u1 not found", NotFoundID("user", "u1").Error())
}

func TestAuthenticationDefaultMessage(t *testing.T) {
	assert.Equal(t, "authentication failed", Authentication("").Error())
	assert.Equal(t, "access denied", Authorization("").Error())
}

func TestIsCodeUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("while saving: %w", Validation("bad"))

	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(errors.New("plain")))
	assert.False(t, IsValidation(nil))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(NotFound("user")))
	assert.Equal(t, http.StatusBadRequest, StatusOf(fmt.Errorf("wrap: %w", Validation("x"))))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}
