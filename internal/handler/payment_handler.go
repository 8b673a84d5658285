package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oncepay/oncepay/internal/handler/dto"
	"github.com/oncepay/oncepay/internal/pkg/ctxkey"
	infraerrors "github.com/oncepay/oncepay/internal/pkg/errors"
	"github.com/oncepay/oncepay/internal/pkg/logger"
	"github.com/oncepay/oncepay/internal/pkg/response"
	"github.com/oncepay/oncepay/internal/service"
)

const idempotencyKeyHeader = "Idempotency-Key"

// PaymentHandler executes payments under idempotency-key protection.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Execute handles POST /api/v1/payments. The Idempotency-Key header selects
// the key; the handler never sees whether this call won the claim or replayed
// a stored outcome beyond the X-Idempotency-Replayed marker.
func (h *PaymentHandler) Execute(c *gin.Context) {
	rawKey := c.GetHeader(idempotencyKeyHeader)

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorFrom(c, infraerrors.BadRequest("PAYMENT_REQUEST_INVALID", "invalid payment request body"))
		return
	}

	ctx := context.WithValue(c.Request.Context(), ctxkey.IdempotencyKey, rawKey)
	ctx = context.WithValue(ctx, ctxkey.Owner, req.UserID)
	result, err := h.paymentService.Execute(ctx, rawKey, service.PaymentRequest{
		UserID:      req.UserID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	})
	if err != nil {
		if retryAfter := infraerrors.Metadata(err, "retry_after"); retryAfter != "" {
			c.Header("Retry-After", retryAfter)
		}
		if infraerrors.Code(err) == http.StatusServiceUnavailable {
			logger.Printf("handler.payment", "[Payment] store unavailable: method=%s route=%s", c.Request.Method, c.FullPath())
		}
		if infraerrors.Code(err) == http.StatusAccepted {
			response.Accepted(c, infraerrors.Reason(err), infraerrors.Message(err))
			return
		}
		response.ErrorFrom(c, err)
		return
	}

	if result.Replayed {
		c.Header("X-Idempotency-Replayed", "true")
	}
	response.Success(c, result.Response)
}

// GetPayment handles GET /api/v1/payments/:key, looking up the side-effect
// row recorded for an idempotency key.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	key, err := service.NormalizeKey(c.Param("key"))
	if err != nil || key == "" {
		response.ErrorFrom(c, infraerrors.NotFound("PAYMENT_NOT_FOUND", "payment not found"))
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), key)
	if err != nil {
		response.ErrorFrom(c, err)
		return
	}
	if payment == nil {
		response.ErrorFrom(c, infraerrors.NotFound("PAYMENT_NOT_FOUND", "payment not found"))
		return
	}
	response.Success(c, payment)
}
