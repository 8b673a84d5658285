package domain

import "time"

// IdempotencyKey is one row of the idempotency_keys table, the single source
// of truth for a key's lifecycle.
//
// Response stays nil until the key reaches a terminal status and is immutable
// afterwards; repeated reads return the identical serialized payload.
// ReservedUntil bounds only the reserved state; once a key has been claimed
// it is no longer consulted.
type IdempotencyKey struct {
	ID            int64      `json:"-"`
	Key           string     `json:"key"`
	Status        string     `json:"status"`
	Response      *string    `json:"response,omitempty"`
	Owner         *string    `json:"owner,omitempty"`
	Operation     *string    `json:"operation,omitempty"`
	ReservedUntil time.Time  `json:"reserved_until"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Terminal reports whether the record has reached completed or failed.
func (k *IdempotencyKey) Terminal() bool {
	if k == nil {
		return false
	}
	return TerminalKeyStatus(k.Status)
}

// ReservationExpired reports whether an unclaimed reservation is past its
// window at the given instant.
func (k *IdempotencyKey) ReservationExpired(now time.Time) bool {
	if k == nil {
		return false
	}
	return k.Status == KeyStatusReserved && !k.ReservedUntil.After(now)
}
