package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/guardguys-scheduler/pkg/dateutil"
)

// Unassigned is the assignee id that clears the assignment of an event.
const Unassigned = -1

// Event is a scheduled shift as returned by the scheduling API.
type Event struct {
	ID        int    `json:"id"`
	Date      string `json:"date"`
	Event     string `json:"event"`
	Onsite    bool   `json:"onsite"`
	Notes     string `json:"notes"`
	Duration  int64  `json:"duration"`
	UserID    *int   `json:"user_id"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	User      *User  `json:"user,omitempty"`

	LocalID uuid.UUID `json:"-"`
}

// Start parses the wire timestamp of the event. ok is false when the
// timestamp is malformed.
func (e Event) Start() (time.Time, bool) {
	t, err := dateutil.ParseWireDate(e.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// End returns the start shifted by the event duration.
func (e Event) End() (time.Time, bool) {
	start, ok := e.Start()
	if !ok {
		return time.Time{}, false
	}
	return start.Add(time.Duration(e.Duration) * time.Millisecond), true
}

// Valid reports whether the event satisfies the record invariants.
func (e Event) Valid() bool {
	_, ok := e.Start()
	return ok && e.Duration >= 0
}

// EventPayload carries the fields to create or change on an event.
// A nil field is left untouched; UserID set to Unassigned clears the assignee.
type EventPayload struct {
	Date     *time.Time
	Title    *string
	Onsite   *bool
	Notes    *string
	Duration *int64 `validate:"omitempty,gte=0"`
	UserID   *int   `validate:"omitempty,gte=-1"`
}

// EventDraft is the editable form of an event.
type EventDraft struct {
	Title  string `validate:"required"`
	Onsite bool
	From   time.Time
	To     time.Time
	Notes  string
	UserID *int
}

// DurationMillis returns the span between From and To in milliseconds.
func (d EventDraft) DurationMillis() int64 {
	return d.To.Sub(d.From).Milliseconds()
}

// Empty reports whether the payload changes nothing.
func (p EventPayload) Empty() bool {
	return p.Date == nil && p.Title == nil && p.Onsite == nil && p.Notes == nil && p.Duration == nil && p.UserID == nil
}
