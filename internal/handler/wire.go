package handler

import (
	"github.com/google/wire"
)

// Handlers groups every HTTP handler for router registration.
type Handlers struct {
	IdempotencyKey *IdempotencyKeyHandler
	Payment        *PaymentHandler
}

func ProvideHandlers(
	idempotencyKeyHandler *IdempotencyKeyHandler,
	paymentHandler *PaymentHandler,
) *Handlers {
	return &Handlers{
		IdempotencyKey: idempotencyKeyHandler,
		Payment:        paymentHandler,
	}
}

var ProviderSet = wire.NewSet(
	NewIdempotencyKeyHandler,
	NewPaymentHandler,
	ProvideHandlers,
)
