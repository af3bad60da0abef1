package response

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
)

// Error names used in the error body, mirroring the scheduling API.
const (
	NameValidation = "SequelizeValidationError"
	NameUnique     = "SequelizeUniqueConstraintError"
	NameDatabase   = "SequelizeDatabaseError"
)

// JSON sends data as the bare response body.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Validation sends a single validation failure using the API error shape.
func Validation(c *gin.Context, status int, name string, detail models.ErrorDetail) {
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, models.ErrorResponse{Name: name, Errors: []models.ErrorDetail{detail}})
}

// Error sends err using the API error shape. Unknown errors become 500.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	message := appErr.Message
	Validation(c, status, "Error", models.ErrorDetail{Message: &message})
}

// Detail builds an error detail. value is marshalled as JSON; nil becomes null.
func Detail(message, typ, path string, value interface{}, origin string) models.ErrorDetail {
	raw, err := json.Marshal(value)
	if err != nil {
		raw = []byte("null")
	}
	return models.ErrorDetail{Message: &message, Type: typ, Path: path, Value: raw, Origin: origin}
}
