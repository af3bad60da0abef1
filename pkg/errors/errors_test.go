package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	clone := Clone(ErrEmailValidation, "custom message")
	assert.True(t, errors.Is(clone, ErrEmailValidation))
	assert.False(t, errors.Is(clone, ErrPasswordValidation))
	assert.Equal(t, "custom message", clone.Message)
	assert.Equal(t, ErrEmailValidation.Message, Clone(ErrEmailValidation, "").Message)

	wrapped := fmt.Errorf("dispatch: %w", WithStatus(ErrUnknown, http.StatusNotFound, errors.New("no route")))
	assert.True(t, errors.Is(wrapped, ErrUnknown))
	assert.Equal(t, http.StatusNotFound, FromError(wrapped).Status)
	assert.Equal(t, 0, ErrUnknown.Status, "sentinel untouched")
}

func TestErrorString(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrNetworkFailure.Code, 0, ErrNetworkFailure.Message)
	assert.Equal(t, ErrNetworkFailure.Message+": connection refused", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Equal(t, ErrInvalidURL.Message, ErrInvalidURL.Error())

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
	assert.False(t, nilErr.Is(ErrUnknown))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)

	assert.Same(t, ErrNotFound, FromError(ErrNotFound))
	assert.Nil(t, Clone(nil, "x"))
	assert.Nil(t, WithStatus(nil, 500, nil))
}
