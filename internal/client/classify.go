package client

import (
	"encoding/json"
	"fmt"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
)

// Validation messages the API currently emits. Matching is exact: any change
// in the server wording silently degrades these to ErrUnknown.
const (
	PasswordNullMessage = "user.password cannot be null"
	InvalidEmailMessage = "Validation isEmail on email failed"
)

// classify maps a non-2xx response to the dispatcher error taxonomy using the
// first validation message of the error body.
func classify(status int, body []byte) *appErrors.Error {
	var resp models.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return appErrors.WithStatus(appErrors.ErrUnknown, status, fmt.Errorf("decode error body: %w", err))
	}

	message, ok := resp.FirstMessage()
	if !ok {
		return appErrors.WithStatus(appErrors.ErrUnknown, status, fmt.Errorf("status %d without validation message", status))
	}

	switch message {
	case PasswordNullMessage:
		return appErrors.WithStatus(appErrors.ErrPasswordValidation, status, nil)
	case InvalidEmailMessage:
		return appErrors.WithStatus(appErrors.ErrEmailValidation, status, nil)
	default:
		return appErrors.WithStatus(appErrors.ErrUnknown, status, fmt.Errorf("server message %q", message))
	}
}
