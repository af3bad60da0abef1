package request

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
)

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func decodeBody(t *testing.T, req Request) map[string]json.RawMessage {
	t.Helper()
	require.NotNil(t, req.Body)
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(req.Body, &out))
	return out
}

func TestBuildRouting(t *testing.T) {
	anchor := time.Date(2024, 3, 8, 12, 0, 0, 0, time.Local)
	tests := []struct {
		name      string
		intent    Intent
		method    string
		path      string
		placement Placement
	}{
		{"get members", GetMembers{}, http.MethodGet, "/api/users/", PlacementURL},
		{"add member", AddMember{Data: models.UserPayload{Username: strPtr("bob")}}, http.MethodPost, "/api/users/", PlacementBody},
		{"edit member", EditMember{ID: 12, Data: models.UserPayload{Username: strPtr("bob")}}, http.MethodPut, "/api/users/12", PlacementBody},
		{"delete member", DeleteMember{ID: 12}, http.MethodDelete, "/api/users/12", PlacementURL},
		{"login", Login{Email: "a@b.co", Password: "pw"}, http.MethodPost, "/api/users/login", PlacementBody},
		{"get events", GetEvents{Date: anchor}, http.MethodGet, "/api/events/weekof/03-08-2024", PlacementURL},
		{"add event", AddEvent{Data: models.EventPayload{Title: strPtr("Patrol")}}, http.MethodPost, "/api/events/", PlacementBody},
		{"edit event", EditEvent{ID: 7, Data: models.EventPayload{Title: strPtr("Patrol")}}, http.MethodPut, "/api/events/7", PlacementBody},
		{"delete event", DeleteEvent{ID: 7}, http.MethodDelete, "/api/events/7", PlacementURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Build(tt.intent)
			require.NoError(t, err)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			assert.Equal(t, tt.placement, req.Placement)
			assert.Equal(t, tt.intent.Kind(), req.Kind)
			if tt.placement == PlacementURL {
				assert.Nil(t, req.Body)
				assert.Empty(t, req.QueryString())
			}
		})
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	intent := EditEvent{ID: 3, Data: models.EventPayload{Title: strPtr("Gate"), Notes: strPtr("north"), UserID: intPtr(4)}}
	first, err := Build(intent)
	require.NoError(t, err)
	second, err := Build(intent)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAddMemberKeepsEmptyPassword(t *testing.T) {
	// An empty password is still sent on create; the server rejects it with
	// its own validation message rather than the client dropping the key.
	req, err := Build(AddMember{Data: models.UserPayload{Username: strPtr("bob"), Password: strPtr("")}})
	require.NoError(t, err)

	body := decodeBody(t, req)
	assert.Len(t, body, 2)
	assert.JSONEq(t, `"bob"`, string(body["username"]))
	assert.JSONEq(t, `""`, string(body["password"]))
	assert.NotContains(t, body, "email")
	assert.NotContains(t, body, "isAdmin")
}

func TestEditMemberDropsEmptyPassword(t *testing.T) {
	req, err := Build(EditMember{ID: 1, Data: models.UserPayload{Email: strPtr("bob@example.com"), Password: strPtr(""), IsAdmin: boolPtr(false)}})
	require.NoError(t, err)

	body := decodeBody(t, req)
	assert.NotContains(t, body, "password")
	assert.JSONEq(t, `false`, string(body["isAdmin"]))
	assert.JSONEq(t, `"bob@example.com"`, string(body["email"]))

	req, err = Build(EditMember{ID: 1, Data: models.UserPayload{Password: strPtr("secret")}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"password":"secret"}`, string(req.Body))
}

func TestEmptyBodyBagSendsNoBody(t *testing.T) {
	req, err := Build(EditMember{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, PlacementBody, req.Placement)
	assert.Nil(t, req.Body)
}

func TestLoginBody(t *testing.T) {
	req, err := Build(Login{Email: "guard@example.com", Password: "hunter2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"guard@example.com","password":"hunter2"}`, string(req.Body))
}

func TestEditEventAssigneeSentinel(t *testing.T) {
	req, err := Build(EditEvent{ID: 9, Data: models.EventPayload{UserID: intPtr(models.Unassigned)}})
	require.NoError(t, err)
	body := decodeBody(t, req)
	require.Contains(t, body, "user_id")
	assert.Equal(t, "null", string(body["user_id"]))

	req, err = Build(EditEvent{ID: 9, Data: models.EventPayload{Notes: strPtr("swap")}})
	require.NoError(t, err)
	body = decodeBody(t, req)
	assert.NotContains(t, body, "user_id")

	req, err = Build(EditEvent{ID: 9, Data: models.EventPayload{UserID: intPtr(5)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":5}`, string(req.Body))
}

func TestAddEventBody(t *testing.T) {
	start := time.Date(2024, 3, 8, 13, 0, 0, 0, time.UTC)
	req, err := Build(AddEvent{Data: models.EventPayload{
		Date:     &start,
		Title:    strPtr("Front desk"),
		Onsite:   boolPtr(false),
		Notes:    strPtr(""),
		Duration: int64Ptr(3600000),
		UserID:   intPtr(2),
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"date": "2024-03-08T13:00:00.000Z",
		"event": "Front desk",
		"onsite": false,
		"notes": "",
		"duration": 3600000,
		"user_id": 2
	}`, string(req.Body))
}

func TestEventPayloadRangeIsEnforced(t *testing.T) {
	_, err := Build(AddEvent{Data: models.EventPayload{Title: strPtr("Gate"), Duration: int64Ptr(-5000)}})
	assert.Error(t, err)

	_, err = Build(EditEvent{ID: 3, Data: models.EventPayload{UserID: intPtr(-2)}})
	assert.Error(t, err)

	req, err := Build(EditEvent{ID: 3, Data: models.EventPayload{Duration: int64Ptr(0), UserID: intPtr(models.Unassigned)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"duration":0,"user_id":null}`, string(req.Body))
}

func TestURLParameters(t *testing.T) {
	assert.Equal(t, "", URLParameters(nil))
	assert.Equal(t, "", URLParameters(map[string]string{}))
	assert.Equal(t, "?a=x&b=y%26z", URLParameters(map[string]string{"a": "x", "b": "y&z"}))
	assert.Equal(t, "?q=1%2B1%3D2", URLParameters(map[string]string{"q": "1+1=2"}))
	assert.Equal(t, "?q=two%20words&week=03-08-2024", URLParameters(map[string]string{"week": "03-08-2024", "q": "two words"}))
}
