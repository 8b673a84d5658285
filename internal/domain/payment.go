package domain

import "time"

// Payment is the protected side effect: an append-only record of one
// successful execution. At most one row exists per idempotency key.
type Payment struct {
	ID             int64     `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	UserID         string    `json:"user_id"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
}
