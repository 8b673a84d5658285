package dto

// PaymentRequest is the body of POST /api/v1/payments. The idempotency key
// itself travels in the Idempotency-Key header, not the body.
type PaymentRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
}
