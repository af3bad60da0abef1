package stubapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/internal/repository"
	"github.com/noah-isme/guardguys-scheduler/internal/service"
	"github.com/noah-isme/guardguys-scheduler/pkg/dateutil"
)

func newTestServer(t *testing.T) (*Server, *gin.Engine, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore()
	srv := NewServer(store.Users(), store.Events(), nil, nil, service.NewMetricsService())
	require.NoError(t, srv.SeedAdmin(context.Background(), "admin@guardguys.com", "changeme"))
	return srv, srv.Router(nil), store
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func firstMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	msg, ok := resp.FirstMessage()
	require.True(t, ok, w.Body.String())
	return msg
}

func TestHealthAndMetrics(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")

	do(t, router, http.MethodGet, "/api/users/", "")
	w = do(t, router, http.MethodGet, "/metrics/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot models.MetricsSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.False(t, snapshot.GeneratedAt.IsZero())
}

func TestCreateUserValidation(t *testing.T) {
	_, router, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing password", `{"username":"bobby","email":"bob@guardguys.com"}`, MsgPasswordNull},
		{"empty password", `{"username":"bobby","email":"bob@guardguys.com","password":""}`, MsgPasswordNull},
		{"invalid email", `{"username":"bobby","email":"bob-at-guardguys","password":"secret"}`, MsgInvalidEmail},
		{"missing username", `{"email":"bob@guardguys.com","password":"secret"}`, MsgUsernameNull},
		{"duplicate email", `{"username":"admin2","email":"ADMIN@guardguys.com","password":"secret"}`, MsgEmailUnique},
		{"no body", ``, MsgUsernameNull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/users/", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, tt.want, firstMessage(t, w))
		})
	}
}

func TestUserLifecycle(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := do(t, router, http.MethodPost, "/api/users/", `{"username":"bobby","email":"bob@guardguys.com","password":"secret","isAdmin":false}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	var created models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.ID)
	path := "/api/users/" + jsonInt(*created.ID)

	w = do(t, router, http.MethodPut, path, `{"isAdmin":true,"password":"better"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/api/users/login", `{"email":"bob@guardguys.com","password":"better"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result models.LoginResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotNil(t, result.User)
	assert.True(t, result.User.IsAdmin)

	w = do(t, router, http.MethodGet, "/api/users/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 2)

	w = do(t, router, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, MsgUserNotFound, firstMessage(t, w))
}

func TestUpdateUserRejectsInvalidEmail(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := do(t, router, http.MethodPut, "/api/users/1", `{"email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, MsgInvalidEmail, firstMessage(t, w))

	w = do(t, router, http.MethodPut, "/api/users/1", `{"email":"admin@guardguys.com"}`)
	assert.Equal(t, http.StatusOK, w.Code, "own email is not a conflict")
}

func TestLoginRejected(t *testing.T) {
	_, router, _ := newTestServer(t)

	for _, body := range []string{
		`{"email":"admin@guardguys.com","password":"wrong"}`,
		`{"email":"nobody@guardguys.com","password":"changeme"}`,
	} {
		w := do(t, router, http.MethodPost, "/api/users/login", body)
		require.Equal(t, http.StatusOK, w.Code)
		var result models.LoginResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Nil(t, result.User)
		assert.Equal(t, MsgLoginFailed, result.Message)
	}
}

func TestEventLifecycle(t *testing.T) {
	_, router, _ := newTestServer(t)
	start := time.Date(2024, 3, 8, 9, 0, 0, 0, time.Local)

	body := `{"date":"` + dateutil.WireDateString(start) + `","event":"Gate","onsite":true,"notes":"","duration":3600000,"user_id":1}`
	w := do(t, router, http.MethodPost, "/api/events/", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(t, router, http.MethodGet, "/api/events/weekof/03-10-2024", "")
	require.Equal(t, http.StatusOK, w.Code)
	var week []models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &week))
	require.Len(t, week, 1)
	require.NotNil(t, week[0].User)
	assert.Equal(t, "admin", week[0].User.Username)

	w = do(t, router, http.MethodGet, "/api/events/weekof/03-11-2024", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	path := "/api/events/" + jsonInt(created.ID)
	w = do(t, router, http.MethodPut, path, `{"user_id":null,"notes":"swap"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Nil(t, updated.UserID)
	assert.Equal(t, "swap", updated.Notes)
	assert.Equal(t, "Gate", updated.Event)

	w = do(t, router, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, http.MethodPut, path, `{"notes":"gone"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateEventValidation(t *testing.T) {
	_, router, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing date", `{"event":"Gate"}`, MsgDateNull},
		{"missing title", `{"date":"2024-03-08T14:00:00.000Z"}`, MsgEventNull},
		{"bad date", `{"date":"03-08-2024","event":"Gate"}`, MsgInvalidDate},
		{"negative duration", `{"date":"2024-03-08T14:00:00.000Z","event":"Gate","duration":-5}`, MsgInvalidDuration},
		{"unknown assignee", `{"date":"2024-03-08T14:00:00.000Z","event":"Gate","user_id":99}`, MsgUnknownAssignee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/events/", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, tt.want, firstMessage(t, w))
		})
	}

	w := do(t, router, http.MethodGet, "/api/events/weekof/2024-03-08", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDeletingUserReleasesEvents(t *testing.T) {
	_, router, store := newTestServer(t)
	ctx := context.Background()

	member := &models.UserRecord{Username: "bruno", Email: "bruno@guardguys.com", PasswordHash: "x"}
	require.NoError(t, store.Users().Create(ctx, member))
	event := &models.EventRecord{Date: time.Now(), Title: "Gate", UserID: &member.ID}
	require.NoError(t, store.Events().Create(ctx, event))

	w := do(t, router, http.MethodDelete, "/api/users/"+jsonInt(member.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := store.Events().FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.UserID)
}

func jsonInt(v int) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

func TestConcurrentCreatesKeepEmailUnique(t *testing.T) {
	_, router, store := newTestServer(t)
	const workers = 8

	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := do(t, router, http.MethodPost, "/api/users/", `{"username":"dupe","email":"dupe@example.com","password":"secret"}`)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
			continue
		}
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	}
	assert.Equal(t, 1, created)

	users, err := store.Users().List(context.Background())
	require.NoError(t, err)
	matches := 0
	for _, u := range users {
		if strings.EqualFold(u.Email, "dupe@example.com") {
			matches++
		}
	}
	assert.Equal(t, 1, matches)
}

func TestMemoryStoreRejectsDuplicateEmail(t *testing.T) {
	users := NewMemoryStore().Users()
	ctx := context.Background()

	first := &models.UserRecord{Username: "alice", Email: "alice@guardguys.com"}
	require.NoError(t, users.Create(ctx, first))
	second := &models.UserRecord{Username: "bruno", Email: "bruno@guardguys.com"}
	require.NoError(t, users.Create(ctx, second))

	err := users.Create(ctx, &models.UserRecord{Username: "alias", Email: "ALICE@guardguys.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	second.Email = "Alice@GuardGuys.com"
	assert.ErrorIs(t, users.Update(ctx, second), repository.ErrDuplicateEmail)

	first.Username = "alice2"
	require.NoError(t, users.Update(ctx, first), "keeping your own email is fine")
}
