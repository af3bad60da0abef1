package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/pkg/dateutil"
)

// Placement tells where the parameters of an intent travel.
type Placement string

const (
	PlacementURL  Placement = "url"
	PlacementBody Placement = "body"
)

// Request is the HTTP shape derived from an intent.
type Request struct {
	Kind      Kind
	Method    string
	Path      string
	Placement Placement
	Query     map[string]string
	// Body is nil for URL-placed intents and for body-placed intents with no fields.
	Body []byte
}

// QueryString renders the URL parameters of the request.
func (r Request) QueryString() string {
	if r.Placement != PlacementURL {
		return ""
	}
	return URLParameters(r.Query)
}

type userBody struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	IsAdmin  *bool   `json:"isAdmin,omitempty"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type eventBody struct {
	Date     *string         `json:"date,omitempty"`
	Event    *string         `json:"event,omitempty"`
	Onsite   *bool           `json:"onsite,omitempty"`
	Notes    *string         `json:"notes,omitempty"`
	Duration *int64          `json:"duration,omitempty"`
	UserID   json.RawMessage `json:"user_id,omitempty"`
}

var nullJSON = json.RawMessage("null")

var payloadValidator = validator.New()

// Build derives the HTTP method, path and parameters for an intent.
func Build(i Intent) (Request, error) {
	switch in := i.(type) {
	case GetMembers:
		return urlRequest(in.Kind(), http.MethodGet, "/api/users/"), nil
	case AddMember:
		return bodyRequest(in.Kind(), http.MethodPost, "/api/users/", createUserBody(in.Data))
	case EditMember:
		return bodyRequest(in.Kind(), http.MethodPut, fmt.Sprintf("/api/users/%d", in.ID), updateUserBody(in.Data))
	case DeleteMember:
		return urlRequest(in.Kind(), http.MethodDelete, fmt.Sprintf("/api/users/%d", in.ID)), nil
	case Login:
		return bodyRequest(in.Kind(), http.MethodPost, "/api/users/login", loginBody{Email: in.Email, Password: in.Password})
	case GetEvents:
		return urlRequest(in.Kind(), http.MethodGet, "/api/events/weekof/"+dateutil.LocalDateString(in.Date)), nil
	case AddEvent:
		return eventRequest(in.Kind(), http.MethodPost, "/api/events/", in.Data)
	case EditEvent:
		return eventRequest(in.Kind(), http.MethodPut, fmt.Sprintf("/api/events/%d", in.ID), in.Data)
	case DeleteEvent:
		return urlRequest(in.Kind(), http.MethodDelete, fmt.Sprintf("/api/events/%d", in.ID)), nil
	default:
		return Request{}, fmt.Errorf("unsupported intent %T", i)
	}
}

func urlRequest(kind Kind, method, path string) Request {
	return Request{Kind: kind, Method: method, Path: path, Placement: PlacementURL}
}

func bodyRequest(kind Kind, method, path string, body interface{}) (Request, error) {
	req := Request{Kind: kind, Method: method, Path: path, Placement: PlacementBody}
	payload, err := json.Marshal(body)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s body: %w", kind, err)
	}
	if !bytes.Equal(payload, []byte("{}")) {
		req.Body = payload
	}
	return req, nil
}

// eventRequest rejects a negative duration and assignee ids below Unassigned.
func eventRequest(kind Kind, method, path string, p models.EventPayload) (Request, error) {
	if err := payloadValidator.Struct(p); err != nil {
		return Request{}, fmt.Errorf("invalid %s payload: %w", kind, err)
	}
	return bodyRequest(kind, method, path, newEventBody(p))
}

// createUserBody keeps the password key whenever it was provided, even empty.
func createUserBody(p models.UserPayload) userBody {
	return userBody{
		Username: p.Username,
		Email:    p.Email,
		Password: p.Password,
		IsAdmin:  p.IsAdmin,
	}
}

// updateUserBody drops an empty password so an untouched field never resets it.
func updateUserBody(p models.UserPayload) userBody {
	body := createUserBody(p)
	if body.Password != nil && *body.Password == "" {
		body.Password = nil
	}
	return body
}

func newEventBody(p models.EventPayload) eventBody {
	body := eventBody{
		Event:    p.Title,
		Onsite:   p.Onsite,
		Notes:    p.Notes,
		Duration: p.Duration,
	}
	if p.Date != nil {
		wire := dateutil.WireDateString(*p.Date)
		body.Date = &wire
	}
	if p.UserID != nil {
		if *p.UserID == models.Unassigned {
			body.UserID = nullJSON
		} else {
			body.UserID = json.RawMessage(fmt.Sprintf("%d", *p.UserID))
		}
	}
	return body
}

// URLParameters renders params as a percent-encoded query string. Keys are
// sorted so the output is stable; an empty bag yields "". Spaces become %20.
func URLParameters(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, queryEscape(key)+"="+queryEscape(params[key]))
	}
	return "?" + strings.Join(parts, "&")
}

func queryEscape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
