package models

import (
	"time"

	"github.com/noah-isme/guardguys-scheduler/pkg/dateutil"
)

// UserRecord is a member row as persisted by the stub API.
type UserRecord struct {
	ID           int       `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Public renders the record in wire form without the password hash.
func (r UserRecord) Public() User {
	id := r.ID
	return User{
		ID:        &id,
		Username:  r.Username,
		Email:     r.Email,
		IsAdmin:   r.IsAdmin,
		CreatedAt: dateutil.WireDateString(r.CreatedAt),
		UpdatedAt: dateutil.WireDateString(r.UpdatedAt),
	}
}

// EventRecord is an event row as persisted by the stub API.
type EventRecord struct {
	ID        int       `db:"id"`
	Date      time.Time `db:"date"`
	Title     string    `db:"event"`
	Onsite    bool      `db:"onsite"`
	Notes     string    `db:"notes"`
	Duration  int64     `db:"duration"`
	UserID    *int      `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Public renders the record in wire form, embedding the assignee when known.
func (r EventRecord) Public(assignee *User) Event {
	event := Event{
		ID:        r.ID,
		Date:      dateutil.WireDateString(r.Date),
		Event:     r.Title,
		Onsite:    r.Onsite,
		Notes:     r.Notes,
		Duration:  r.Duration,
		CreatedAt: dateutil.WireDateString(r.CreatedAt),
		UpdatedAt: dateutil.WireDateString(r.UpdatedAt),
		User:      assignee,
	}
	if r.UserID != nil {
		id := *r.UserID
		event.UserID = &id
	}
	return event
}
