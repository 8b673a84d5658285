package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oncepay/oncepay/internal/domain"
)

func postPayment(fx *handlerFixture, key, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	fx.router.ServeHTTP(w, req)
	return w
}

const validPaymentBody = `{"user_id":"user-1","amount_cents":2500,"currency":"USD"}`

func TestPaymentExecuteAndReplayAreByteIdentical(t *testing.T) {
	fx := newHandlerFixture(t)

	record, err := fx.keySvc.Issue(context.Background(), nil, nil)
	require.NoError(t, err)

	first := postPayment(fx, record.Key, validPaymentBody)
	require.Equal(t, http.StatusOK, first.Code)
	require.Empty(t, first.Header().Get("X-Idempotency-Replayed"))

	var receipt struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}
	env := decodeEnvelope(t, first.Body.Bytes())
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	require.Equal(t, record.Key, receipt.Reference)
	require.Equal(t, "paid", receipt.Status)

	second := postPayment(fx, record.Key, validPaymentBody)
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "true", second.Header().Get("X-Idempotency-Replayed"))
	require.Equal(t, first.Body.String(), second.Body.String())

	payment, err := fx.payRepo.GetByIdempotencyKey(context.Background(), record.Key)
	require.NoError(t, err)
	require.NotNil(t, payment)
	require.Equal(t, int64(2500), payment.AmountCents)
}

func TestPaymentUnknownKeyRejected(t *testing.T) {
	fx := newHandlerFixture(t)

	w := postPayment(fx, "never-issued-key", validPaymentBody)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	require.Equal(t, "IDEMPOTENCY_KEY_UNKNOWN", env.Reason)
}

func TestPaymentMissingKeyRejected(t *testing.T) {
	fx := newHandlerFixture(t)

	w := postPayment(fx, "", validPaymentBody)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentMalformedBodyRejected(t *testing.T) {
	fx := newHandlerFixture(t)

	record, err := fx.keySvc.Issue(context.Background(), nil, nil)
	require.NoError(t, err)

	w := postPayment(fx, record.Key, `{"user_id":"user-1","amount_cents":-5,"currency":"USD"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentStillProcessingGets202WithRetryAfter(t *testing.T) {
	fx := newHandlerFixture(t)

	record, err := fx.keySvc.Issue(context.Background(), nil, nil)
	require.NoError(t, err)
	// Another process holds the claim and never finishes within the wait
	// window; the caller is told to come back.
	fx.keyRepo.setStatus(t, record.Key, domain.KeyStatusProcessing)

	w := postPayment(fx, record.Key, validPaymentBody)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	env := decodeEnvelope(t, w.Body.Bytes())
	require.Equal(t, "IDEMPOTENCY_STILL_PROCESSING", env.Reason)
}

func TestPaymentFailedOutcomeReplays(t *testing.T) {
	fx := newHandlerFixture(t)

	record, err := fx.keySvc.Issue(context.Background(), nil, nil)
	require.NoError(t, err)
	fx.keyRepo.setStatus(t, record.Key, domain.KeyStatusProcessing)
	require.NoError(t, fx.keySvc.Fail(context.Background(), record.Key,
		`{"reason":"CARD_DECLINED","message":"card declined"}`))

	w := postPayment(fx, record.Key, validPaymentBody)
	require.Equal(t, http.StatusBadGateway, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	require.Equal(t, "PAYMENT_OPERATION_FAILED", env.Reason)

	// The protected operation must not run again for a failed key.
	payment, err := fx.payRepo.GetByIdempotencyKey(context.Background(), record.Key)
	require.NoError(t, err)
	require.Nil(t, payment)
}

func TestPaymentOwnerMismatchRejected(t *testing.T) {
	fx := newHandlerFixture(t)

	owner := "someone-else"
	record, err := fx.keySvc.Issue(context.Background(), &owner, nil)
	require.NoError(t, err)

	w := postPayment(fx, record.Key, validPaymentBody)
	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	require.Equal(t, "IDEMPOTENCY_OWNER_MISMATCH", env.Reason)
}

func TestGetPaymentRoute(t *testing.T) {
	fx := newHandlerFixture(t)

	record, err := fx.keySvc.Issue(context.Background(), nil, nil)
	require.NoError(t, err)
	first := postPayment(fx, record.Key, validPaymentBody)
	require.Equal(t, http.StatusOK, first.Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+record.Key, nil)
	fx.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payment domain.Payment
	env := decodeEnvelope(t, w.Body.Bytes())
	require.NoError(t, json.Unmarshal(env.Data, &payment))
	require.Equal(t, record.Key, payment.IdempotencyKey)

	missing := httptest.NewRecorder()
	reqMissing := httptest.NewRequest(http.MethodGet, "/api/v1/payments/never-issued", nil)
	fx.router.ServeHTTP(missing, reqMissing)
	require.Equal(t, http.StatusNotFound, missing.Code)
}
