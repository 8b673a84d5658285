// Package dto holds request/response shapes for the HTTP surface.
package dto

import (
	"time"

	"github.com/oncepay/oncepay/internal/domain"
)

// IssueKeyRequest is the optional body of POST /api/v1/idempotency-keys.
type IssueKeyRequest struct {
	Owner     string `json:"owner"`
	Operation string `json:"operation"`
}

// IssuedKey is returned to the caller once the reservation is durable.
type IssuedKey struct {
	Key           string    `json:"key"`
	ReservedUntil time.Time `json:"reserved_until"`
}

// IdempotencyKeyView is the public projection of a key record. The raw
// response payload is exposed verbatim only when the record is terminal.
type IdempotencyKeyView struct {
	Key           string    `json:"key"`
	Status        string    `json:"status"`
	Owner         string    `json:"owner,omitempty"`
	Operation     string    `json:"operation,omitempty"`
	Response      string    `json:"response,omitempty"`
	ReservedUntil time.Time `json:"reserved_until"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// KeyViewFromDomain maps a stored record onto its API projection.
func KeyViewFromDomain(record *domain.IdempotencyKey) IdempotencyKeyView {
	view := IdempotencyKeyView{
		Key:           record.Key,
		Status:        record.Status,
		ReservedUntil: record.ReservedUntil,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	if record.Owner != nil {
		view.Owner = *record.Owner
	}
	if record.Operation != nil {
		view.Operation = *record.Operation
	}
	if record.Terminal() && record.Response != nil {
		view.Response = *record.Response
	}
	return view
}
