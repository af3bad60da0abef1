package models

import "github.com/google/uuid"

// User is a member account as returned by the scheduling API.
type User struct {
	ID        *int   `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
	IsAdmin   bool   `json:"isAdmin"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`

	// LocalID identifies the record in client-side lists; it never travels on the wire.
	LocalID uuid.UUID `json:"-"`
}

// IDValue returns the user id or 0 when the user has not been created yet.
func (u User) IDValue() int {
	if u.ID == nil {
		return 0
	}
	return *u.ID
}

// UserPayload carries the fields to create or change on a member.
// A nil field is left untouched on the server.
type UserPayload struct {
	Username *string `validate:"omitempty,min=4"`
	Email    *string `validate:"omitempty,min=4"`
	Password *string `validate:"omitempty,min=4,startsnotwith=$"`
	IsAdmin  *bool
}
