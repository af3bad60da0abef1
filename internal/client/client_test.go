package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/internal/request"
	"github.com/noah-isme/guardguys-scheduler/pkg/config"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
)

type recordedCall struct {
	method string
	intent string
	status int
}

type fakeObserver struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (o *fakeObserver) ObserveAPIRequest(method, intent string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, recordedCall{method: method, intent: intent, status: status})
}

type failingDoer struct{ err error }

func (d failingDoer) Do(*http.Request) (*http.Response, error) { return nil, d.err }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeObserver) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	observer := &fakeObserver{}
	return New(config.APIConfig{BaseURL: server.URL}, server.Client(), nil, observer), observer
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func strPtr(v string) *string { return &v }

func TestExecuteReturnsRawBodyOnSuccess(t *testing.T) {
	var gotMethod, gotPath, gotContentType, gotBody string
	c, observer := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":3,"username":"bob"}`)
	})

	body, err := c.Execute(context.Background(), request.AddMember{Data: models.UserPayload{Username: strPtr("bob"), Password: strPtr("pass1")}})
	require.NoError(t, err)
	assert.Equal(t, `{"id":3,"username":"bob"}`, string(body))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/users/", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"username":"bob","password":"pass1"}`, gotBody)

	require.Len(t, observer.calls, 1)
	assert.Equal(t, recordedCall{method: http.MethodPost, intent: "add_member", status: http.StatusCreated}, observer.calls[0])
}

func TestExecuteURLPlacedIntentSendsNoBody(t *testing.T) {
	var contentLength int64 = -2
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentLength = r.ContentLength
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	body, err := c.Execute(context.Background(), request.GetEvents{Date: time.Date(2024, 3, 8, 9, 0, 0, 0, time.Local)})
	require.NoError(t, err)
	assert.Empty(t, body)
	assert.Equal(t, int64(0), contentLength)
	assert.Equal(t, "/api/events/weekof/03-08-2024", gotPath)
}

// The mapping below depends on the exact English wording of the server's
// validation messages. If the server rewords them these cases turn into
// ErrUnknown without any other symptom; update the constants in classify.go.
func TestExecuteMapsValidationMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *appErrors.Error
	}{
		{"email", http.StatusUnprocessableEntity, `{"errors":[{"message":"Validation isEmail on email failed"}]}`, appErrors.ErrEmailValidation},
		{"password", http.StatusBadRequest, `{"name":"SequelizeValidationError","errors":[{"message":"user.password cannot be null","type":"notNull Violation","path":"password","value":null,"origin":"CORE"}]}`, appErrors.ErrPasswordValidation},
		{"only first message counts", http.StatusUnprocessableEntity, `{"errors":[{"message":"something else"},{"message":"Validation isEmail on email failed"}]}`, appErrors.ErrUnknown},
		{"unparseable body", http.StatusUnprocessableEntity, `<html>oops</html>`, appErrors.ErrUnknown},
		{"empty error list", http.StatusInternalServerError, `{"name":"Error","errors":[]}`, appErrors.ErrUnknown},
		{"message missing", http.StatusUnprocessableEntity, `{"errors":[{"path":"email"}]}`, appErrors.ErrUnknown},
		{"empty body", http.StatusNotFound, ``, appErrors.ErrUnknown},
		{"reworded message", http.StatusUnprocessableEntity, `{"errors":[{"message":"Validation isEmail on email failed."}]}`, appErrors.ErrUnknown},
		{"numeric value field", http.StatusUnprocessableEntity, `{"errors":[{"message":"Validation isEmail on email failed","value":42}]}`, appErrors.ErrEmailValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, respond(tt.status, tt.body))

			body, err := c.Execute(context.Background(), request.EditMember{ID: 1, Data: models.UserPayload{Email: strPtr("nope")}})
			require.Error(t, err)
			assert.Nil(t, body)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			appErr := appErrors.FromError(err)
			assert.Equal(t, tt.status, appErr.Status)
		})
	}
}

func TestExecuteTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	observer := &fakeObserver{}
	c := New(config.APIConfig{BaseURL: baseURL, Timeout: time.Second}, nil, nil, observer)
	_, err := c.Execute(context.Background(), request.GetMembers{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNetworkFailure))
	require.Len(t, observer.calls, 1)
	assert.Equal(t, 0, observer.calls[0].status)

	c = New(config.APIConfig{BaseURL: "http://scheduler.test"}, failingDoer{err: errors.New("connection reset by peer")}, nil, nil)
	_, err = c.Execute(context.Background(), request.DeleteEvent{ID: 1})
	assert.True(t, errors.Is(err, appErrors.ErrNetworkFailure))
	assert.Equal(t, appErrors.ErrNetworkFailure.Message, appErrors.FromError(err).Message)
}

func TestExecuteCancelledContextIsNetworkFailure(t *testing.T) {
	c, _ := newTestClient(t, respond(http.StatusOK, `[]`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Execute(ctx, request.GetMembers{})
	assert.True(t, errors.Is(err, appErrors.ErrNetworkFailure))
}

func TestExecuteInvalidURL(t *testing.T) {
	for _, base := range []string{"", "://missing-scheme", "ftp://scheduler.test", "http://"} {
		c := New(config.APIConfig{BaseURL: base}, failingDoer{err: errors.New("must not be called")}, nil, nil)
		_, err := c.Execute(context.Background(), request.GetMembers{})
		assert.True(t, errors.Is(err, appErrors.ErrInvalidURL), "base %q gave %v", base, err)
	}
}

func TestGoDeliversResult(t *testing.T) {
	c, _ := newTestClient(t, respond(http.StatusOK, `[{"id":1}]`))

	res := <-c.Go(context.Background(), request.GetMembers{})
	require.NoError(t, res.Err)
	assert.JSONEq(t, `[{"id":1}]`, string(res.Body))
}

func TestConcurrentDispatchesAreIndependent(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	c, observer := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Path]++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	results := make([]<-chan Result, 0, 5)
	for i := 1; i <= 5; i++ {
		results = append(results, c.Go(context.Background(), request.DeleteEvent{ID: i}))
	}
	for _, ch := range results {
		require.NoError(t, (<-ch).Err)
	}

	assert.Len(t, seen, 5)
	assert.Len(t, observer.calls, 5)
}
