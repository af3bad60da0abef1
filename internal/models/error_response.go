package models

import "encoding/json"

// ErrorResponse is the error body returned by the API on non-2xx responses.
type ErrorResponse struct {
	Name   string        `json:"name,omitempty"`
	Errors []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail is a single validation failure reported by the API.
type ErrorDetail struct {
	Message *string         `json:"message,omitempty"`
	Type    string          `json:"type,omitempty"`
	Path    string          `json:"path,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Origin  string          `json:"origin,omitempty"`
}

// FirstMessage returns the first validation message, if any.
func (r ErrorResponse) FirstMessage() (string, bool) {
	if len(r.Errors) == 0 || r.Errors[0].Message == nil {
		return "", false
	}
	return *r.Errors[0].Message, true
}
