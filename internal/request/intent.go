// Package request maps scheduling API intents to the HTTP calls that carry them.
package request

import (
	"time"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
)

// Kind names an intent; it doubles as a low-cardinality metrics label.
type Kind string

const (
	KindGetMembers   Kind = "get_members"
	KindAddMember    Kind = "add_member"
	KindEditMember   Kind = "edit_member"
	KindDeleteMember Kind = "delete_member"
	KindLogin        Kind = "login"
	KindGetEvents    Kind = "get_events"
	KindAddEvent     Kind = "add_event"
	KindEditEvent    Kind = "edit_event"
	KindDeleteEvent  Kind = "delete_event"
)

// Intent is an immutable description of one API call. The set of
// implementations is closed to this package.
type Intent interface {
	Kind() Kind
	intent()
}

// GetMembers lists every member account.
type GetMembers struct{}

// AddMember creates a member account.
type AddMember struct {
	Data models.UserPayload
}

// EditMember changes the provided fields of a member account.
type EditMember struct {
	ID   int
	Data models.UserPayload
}

// DeleteMember removes a member account.
type DeleteMember struct {
	ID int
}

// Login authenticates a member.
type Login struct {
	Email    string
	Password string
}

// GetEvents lists the events of the week anchored at Date.
type GetEvents struct {
	Date time.Time
}

// AddEvent creates an event.
type AddEvent struct {
	Data models.EventPayload
}

// EditEvent changes the provided fields of an event.
type EditEvent struct {
	ID   int
	Data models.EventPayload
}

// DeleteEvent removes an event.
type DeleteEvent struct {
	ID int
}

func (GetMembers) Kind() Kind   { return KindGetMembers }
func (AddMember) Kind() Kind    { return KindAddMember }
func (EditMember) Kind() Kind   { return KindEditMember }
func (DeleteMember) Kind() Kind { return KindDeleteMember }
func (Login) Kind() Kind        { return KindLogin }
func (GetEvents) Kind() Kind    { return KindGetEvents }
func (AddEvent) Kind() Kind     { return KindAddEvent }
func (EditEvent) Kind() Kind    { return KindEditEvent }
func (DeleteEvent) Kind() Kind  { return KindDeleteEvent }

func (GetMembers) intent()   {}
func (AddMember) intent()    {}
func (EditMember) intent()   {}
func (DeleteMember) intent() {}
func (Login) intent()        {}
func (GetEvents) intent()    {}
func (AddEvent) intent()     {}
func (EditEvent) intent()    {}
func (DeleteEvent) intent()  {}
