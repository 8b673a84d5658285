package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/oncepay/oncepay/internal/domain"
	infraerrors "github.com/oncepay/oncepay/internal/pkg/errors"
)

var (
	ErrKeyRequired           = infraerrors.BadRequest("IDEMPOTENCY_KEY_REQUIRED", "idempotency key is required")
	ErrPaymentRequestInvalid = infraerrors.BadRequest("PAYMENT_REQUEST_INVALID", "payment request is invalid")
)

type PaymentRequest struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// PaymentResult carries the canonical stored response. Replayed is true
// whenever the bytes came from the store rather than a fresh execution.
type PaymentResult struct {
	Response json.RawMessage
	Replayed bool
}

type paymentReceipt struct {
	Reference   string    `json:"reference"`
	UserID      string    `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	PaidAt      time.Time `json:"paid_at"`
}

type storedFailure struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// PaymentService executes payments under idempotency-key protection. Every
// caller presenting the same key observes exactly one side effect: the
// claim winner executes, everyone else replays or waits.
type PaymentService struct {
	keys     *IdempotencyService
	payments PaymentRepository
	cfg      IdempotencyConfig
}

func NewPaymentService(keys *IdempotencyService, payments PaymentRepository, cfg IdempotencyConfig) *PaymentService {
	return &PaymentService{
		keys:     keys,
		payments: payments,
		cfg:      cfg,
	}
}

// Execute runs the guarded payment flow for one request:
// unknown key -> reject; terminal key -> replay the stored outcome; live
// key -> race for the claim, then either execute or wait for the winner.
// Losing the claim is not an error, it routes the caller to AwaitResult.
func (p *PaymentService) Execute(ctx context.Context, rawKey string, req PaymentRequest) (*PaymentResult, error) {
	key, err := NormalizeKey(rawKey)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrKeyRequired
	}
	if err := validatePaymentRequest(req); err != nil {
		return nil, err
	}

	record, err := p.keys.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrKeyUnknown
	}
	if record.Owner != nil && *record.Owner != req.UserID {
		return nil, ErrOwnerMismatch
	}
	if record.Terminal() {
		return p.replayTerminal(record)
	}

	now := time.Now()
	if record.ReservationExpired(now) {
		return nil, ErrKeyExpired
	}

	won, err := p.keys.Claim(ctx, key, &req.UserID)
	if err != nil {
		return nil, err
	}
	if won {
		return p.executePayment(ctx, key, req)
	}
	return p.awaitSibling(ctx, key)
}

// executePayment is the claim winner's path. The payment insert and the
// completed flip commit in one transaction, so the side effect and the
// terminal record can never diverge.
func (p *PaymentService) executePayment(ctx context.Context, key string, req PaymentRequest) (*PaymentResult, error) {
	receipt := paymentReceipt{
		Reference:   key,
		UserID:      req.UserID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Status:      "paid",
		PaidAt:      time.Now().UTC(),
	}
	raw, err := json.Marshal(receipt)
	if err != nil {
		return nil, infraerrors.InternalServer("PAYMENT_RECEIPT_ENCODE", "encode payment receipt").WithCause(err)
	}

	payment := &domain.Payment{
		IdempotencyKey: key,
		UserID:         req.UserID,
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
	}
	created, err := p.payments.CreateWithCompletion(ctx, payment, string(raw))
	if err != nil {
		// A claimed key must still reach a terminal state; record the
		// failure before surfacing it.
		p.recordExecutionFailure(ctx, key, err)
		return nil, ErrOperationFailed.WithCause(err)
	}
	if !created {
		// A sibling finished between our claim and the write. Replay its
		// terminal outcome instead of double-charging.
		record, getErr := p.keys.Get(ctx, key)
		if getErr != nil {
			return nil, getErr
		}
		if record == nil || !record.Terminal() {
			return nil, ErrStoreUnavailable
		}
		return p.replayTerminal(record)
	}
	logLifecycleAudit(key, "processing->completed", map[string]string{
		"amount_cents": strconv.FormatInt(req.AmountCents, 10),
		"currency":     req.Currency,
	})
	recordCompleted()
	return &PaymentResult{Response: raw, Replayed: false}, nil
}

func (p *PaymentService) recordExecutionFailure(ctx context.Context, key string, execErr error) {
	reason := infraerrors.Reason(execErr)
	if reason == "" {
		reason = "PAYMENT_EXECUTION_ERROR"
	}
	info, err := json.Marshal(storedFailure{
		Reason:  reason,
		Message: execErr.Error(),
	})
	if err != nil {
		return
	}
	if failErr := p.keys.Fail(ctx, key, string(info)); failErr != nil {
		logLifecycleAudit(key, "processing->fail_record_error", map[string]string{
			"reason": infraerrors.Reason(failErr),
		})
	}
}

// awaitSibling is the claim loser's path: poll until the winner's outcome
// lands or the bounded wait elapses.
func (p *PaymentService) awaitSibling(ctx context.Context, key string) (*PaymentResult, error) {
	outcome, err := p.keys.AwaitResult(ctx, key)
	if err != nil {
		return nil, err
	}
	switch outcome.Status {
	case AwaitCompleted, AwaitFailed:
		return p.replayTerminal(outcome.Record)
	default:
		return nil, ErrStillProcessing.WithMetadata(map[string]string{
			"retry_after": strconv.Itoa(p.retryAfterSeconds()),
		})
	}
}

// replayTerminal serves the stored outcome byte-for-byte. Completed keys
// replay the canonical response; failed keys replay the recorded failure.
func (p *PaymentService) replayTerminal(record *domain.IdempotencyKey) (*PaymentResult, error) {
	switch record.Status {
	case domain.KeyStatusCompleted:
		recordReplay()
		logLifecycleAudit(record.Key, "completed->replayed", nil)
		return &PaymentResult{Response: storedResponseBytes(record.Response), Replayed: true}, nil
	case domain.KeyStatusFailed:
		recordReplay()
		logLifecycleAudit(record.Key, "failed->replayed", nil)
		return nil, p.failureFromStored(record.Response)
	default:
		return nil, ErrNotProcessing
	}
}

func (p *PaymentService) failureFromStored(stored *string) error {
	if stored == nil || strings.TrimSpace(*stored) == "" {
		return ErrOperationFailed
	}
	var failure storedFailure
	if err := json.Unmarshal([]byte(*stored), &failure); err != nil || failure.Reason == "" {
		return ErrOperationFailed.WithMetadata(map[string]string{"stored_error": *stored})
	}
	return ErrOperationFailed.WithMetadata(map[string]string{
		"reason":  failure.Reason,
		"message": failure.Message,
	})
}

func storedResponseBytes(stored *string) json.RawMessage {
	if stored == nil || strings.TrimSpace(*stored) == "" {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(*stored)
}

func (p *PaymentService) retryAfterSeconds() int {
	sec := int(p.cfg.PollInterval.Seconds())
	if sec <= 0 {
		sec = 1
	}
	return sec
}

func validatePaymentRequest(req PaymentRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return ErrPaymentRequestInvalid.WithMetadata(map[string]string{"field": "user_id"})
	}
	if req.AmountCents <= 0 {
		return ErrPaymentRequestInvalid.WithMetadata(map[string]string{"field": "amount_cents"})
	}
	if len(strings.TrimSpace(req.Currency)) != 3 {
		return ErrPaymentRequestInvalid.WithMetadata(map[string]string{"field": "currency"})
	}
	return nil
}

// GetPayment returns the stored payment row for a key, or (nil, nil).
func (p *PaymentService) GetPayment(ctx context.Context, key string) (*domain.Payment, error) {
	payment, err := p.payments.GetByIdempotencyKey(ctx, key)
	if err != nil {
		recordStoreUnavailable("get_payment")
		return nil, ErrStoreUnavailable.WithCause(err)
	}
	return payment, nil
}
