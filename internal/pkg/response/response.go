// Package response provides the JSON envelope shared by all HTTP handlers.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	infraerrors "github.com/oncepay/oncepay/internal/pkg/errors"
)

type Body struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: http.StatusOK, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Code: http.StatusCreated, Data: data})
}

func Accepted(c *gin.Context, reason, message string) {
	c.JSON(http.StatusAccepted, Body{Code: http.StatusAccepted, Reason: reason, Message: message})
}

func Error(c *gin.Context, status int, reason, message string) {
	c.JSON(status, Body{Code: status, Reason: reason, Message: message})
}

// ErrorFrom renders err using its ApplicationError status and reason; unknown
// errors map to a generic 500 without leaking internals.
func ErrorFrom(c *gin.Context, err error) {
	status := infraerrors.Code(err)
	reason := infraerrors.Reason(err)
	message := infraerrors.Message(err)
	if reason == "" {
		reason = "INTERNAL_ERROR"
		message = "internal server error"
	}
	Error(c, status, reason, message)
}
