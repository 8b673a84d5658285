// Package errors provides the application error type shared by services and
// handlers: an HTTP status, a stable machine-readable reason, and optional
// metadata carried alongside the human-readable message.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ApplicationError struct {
	Status   int               `json:"status"`
	ReasonID string            `json:"reason"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`

	cause error
}

func (e *ApplicationError) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ReasonID, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.ReasonID, e.Message)
}

func (e *ApplicationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// WithCause returns a copy carrying err as the wrapped cause.
func (e *ApplicationError) WithCause(err error) *ApplicationError {
	cp := *e
	cp.cause = err
	return &cp
}

// WithMetadata returns a copy with md merged over the existing metadata.
func (e *ApplicationError) WithMetadata(md map[string]string) *ApplicationError {
	cp := *e
	cp.Metadata = make(map[string]string, len(e.Metadata)+len(md))
	for k, v := range e.Metadata {
		cp.Metadata[k] = v
	}
	for k, v := range md {
		cp.Metadata[k] = v
	}
	return &cp
}

func New(status int, reason, message string) *ApplicationError {
	return &ApplicationError{Status: status, ReasonID: reason, Message: message}
}

func BadRequest(reason, message string) *ApplicationError {
	return New(http.StatusBadRequest, reason, message)
}

func NotFound(reason, message string) *ApplicationError {
	return New(http.StatusNotFound, reason, message)
}

func Conflict(reason, message string) *ApplicationError {
	return New(http.StatusConflict, reason, message)
}

func BadGateway(reason, message string) *ApplicationError {
	return New(http.StatusBadGateway, reason, message)
}

func ServiceUnavailable(reason, message string) *ApplicationError {
	return New(http.StatusServiceUnavailable, reason, message)
}

func InternalServer(reason, message string) *ApplicationError {
	return New(http.StatusInternalServerError, reason, message)
}

// Code extracts the HTTP status from err, defaulting to 500 for unknown errors.
func Code(err error) int {
	if err == nil {
		return http.StatusOK
	}
	appErr := new(ApplicationError)
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Reason extracts the stable reason code from err, or "" for unknown errors.
func Reason(err error) string {
	appErr := new(ApplicationError)
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.ReasonID
	}
	return ""
}

// Message extracts the human-readable message from err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	appErr := new(ApplicationError)
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Message
	}
	return err.Error()
}

// Metadata extracts a metadata value from err, or "" when absent.
func Metadata(err error, key string) string {
	appErr := new(ApplicationError)
	if errors.As(err, &appErr) && appErr != nil && appErr.Metadata != nil {
		return appErr.Metadata[key]
	}
	return ""
}
