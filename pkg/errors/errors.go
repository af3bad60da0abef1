package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed error surfaced to callers of the scheduling API client.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones and wrapped
// copies still match the predefined errors.
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Dispatcher taxonomy. Status carries the HTTP status observed, when any.
var (
	ErrInvalidURL         = New("INVALID_URL", 0, "The url is invalid")
	ErrEmailValidation    = New("EMAIL_VALIDATION", http.StatusUnprocessableEntity, "Unable able to validate email format. Please try again.")
	ErrPasswordValidation = New("PASSWORD_VALIDATION", http.StatusUnprocessableEntity, "The password must be at least 3 letters!")
	ErrNetworkFailure     = New("NETWORK_FAILURE", 0, "Unable to get a valid return from the server")
	ErrUnknown            = New("UNKNOWN", 0, "This operation caused an unknown error, please try again.")
)

// Caller-side errors raised above the dispatcher.
var (
	ErrUsernameValidation = New("USERNAME_VALIDATION", http.StatusBadRequest, "The user name must be at least 3 letters!")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrJSONEncode         = New("JSON_ENCODE", 0, "Unable to encode json")
	ErrJSONDecode         = New("JSON_DECODE", 0, "The system is unable to decode the received json")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "The user is no longer authrorized")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrCacheMiss          = New("CACHE_MISS", 0, "cache miss")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithStatus returns a copy of err carrying the observed HTTP status and cause.
func WithStatus(err *Error, status int, cause error) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Status = status
	clone.Err = cause
	return &clone
}
