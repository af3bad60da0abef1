package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestJSONSendsBareBody(t *testing.T) {
	c, w := newContext()
	Created(c, gin.H{"id": 3})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"id":3}`, w.Body.String())
}

func TestValidationUsesErrorShape(t *testing.T) {
	c, w := newContext()
	Validation(c, http.StatusUnprocessableEntity, NameValidation, Detail("user.password cannot be null", "notNull Violation", "password", nil, "CORE"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.True(t, c.IsAborted())
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, NameValidation, body.Name)
	msg, ok := body.FirstMessage()
	require.True(t, ok)
	assert.Equal(t, "user.password cannot be null", msg)
	assert.Equal(t, "password", body.Errors[0].Path)
}

func TestErrorStatus(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrNotFound, "event not found"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "event not found")

	c, w = newContext()
	Error(c, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk on fire")

	c, w = newContext()
	Error(c, appErrors.ErrUnknown)
	assert.Equal(t, http.StatusInternalServerError, w.Code, "status 0 becomes 500")
}
