package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/class-scheduling-api/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Success   bool                   `json:"success"`
	Data      interface{}            `json:"data,omitempty"`
	Conflicts interface{}            `json:"conflicts,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Error     *appErrors.Error       `json:"error,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Success: true, Data: data}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Conflicts reports a business outcome that was rejected without a system failure.
// It is sent with 200 so callers do not treat it as an operation error.
func Conflicts(c *gin.Context, conflicts interface{}, message string) {
	noStore(c)
	c.JSON(http.StatusOK, Envelope{Success: false, Conflicts: conflicts, Message: message})
}

// Empty reports a successful lookup that found nothing.
func Empty(c *gin.Context, message string) {
	noStore(c)
	c.JSON(http.StatusOK, Envelope{Success: false, Data: []interface{}{}, Message: message})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{Success: false, Error: appErr})
}

// File streams a rendered document as an attachment.
func File(c *gin.Context, filename, contentType string, body []byte) {
	noStore(c)
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, contentType, body)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
