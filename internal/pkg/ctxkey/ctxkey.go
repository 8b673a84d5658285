// Package ctxkey defines typed keys for context.Value.
package ctxkey

// Key avoids the built-in string type for context keys (staticcheck SA1029).
type Key string

const (
	// RequestID is the server-generated or forwarded request ID.
	RequestID Key = "ctx_request_id"

	// IdempotencyKey is the idempotency key presented on the current request,
	// set by the payment handler for request-scoped log correlation.
	IdempotencyKey Key = "ctx_idempotency_key"

	// Owner is the authenticated principal bound to the current request.
	Owner Key = "ctx_owner"
)
