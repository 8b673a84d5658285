package handler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/oncepay/oncepay/internal/domain"
	"github.com/oncepay/oncepay/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryKeyRepoStub struct {
	mu     sync.Mutex
	nextID int64
	data   map[string]*domain.IdempotencyKey
}

func newMemoryKeyRepoStub() *memoryKeyRepoStub {
	return &memoryKeyRepoStub{nextID: 1, data: make(map[string]*domain.IdempotencyKey)}
}

func cloneKeyStub(in *domain.IdempotencyKey) *domain.IdempotencyKey {
	if in == nil {
		return nil
	}
	out := *in
	if in.Response != nil {
		v := *in.Response
		out.Response = &v
	}
	if in.Owner != nil {
		v := *in.Owner
		out.Owner = &v
	}
	if in.Operation != nil {
		v := *in.Operation
		out.Operation = &v
	}
	return &out
}

func (r *memoryKeyRepoStub) CreateReserved(_ context.Context, record *domain.IdempotencyKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[record.Key]; ok {
		return false, nil
	}
	rec := cloneKeyStub(record)
	rec.ID = r.nextID
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	r.nextID++
	r.data[record.Key] = rec
	record.ID = rec.ID
	record.CreatedAt = rec.CreatedAt
	record.UpdatedAt = rec.UpdatedAt
	return true, nil
}

func (r *memoryKeyRepoStub) GetByKey(_ context.Context, key string) (*domain.IdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneKeyStub(r.data[key]), nil
}

func (r *memoryKeyRepoStub) Claim(_ context.Context, key string, owner *string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[key]
	if !ok || rec.Status != domain.KeyStatusReserved || !rec.ReservedUntil.After(now) {
		return false, nil
	}
	if rec.Owner != nil && (owner == nil || *rec.Owner != *owner) {
		return false, nil
	}
	rec.Status = domain.KeyStatusProcessing
	rec.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryKeyRepoStub) MarkCompleted(_ context.Context, key, response string) (bool, error) {
	return r.markTerminal(key, domain.KeyStatusCompleted, response), nil
}

func (r *memoryKeyRepoStub) MarkFailed(_ context.Context, key, errorInfo string) (bool, error) {
	return r.markTerminal(key, domain.KeyStatusFailed, errorInfo), nil
}

func (r *memoryKeyRepoStub) markTerminal(key, status, response string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[key]
	if !ok || rec.Status != domain.KeyStatusProcessing {
		return false
	}
	rec.Status = status
	rec.Response = &response
	rec.UpdatedAt = time.Now()
	return true
}

func (r *memoryKeyRepoStub) DeleteExpiredReserved(_ context.Context, now time.Time, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for k, rec := range r.data {
		if int(deleted) >= limit {
			break
		}
		if rec.Status == domain.KeyStatusReserved && !rec.ReservedUntil.After(now) {
			delete(r.data, k)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memoryKeyRepoStub) setStatus(t *testing.T, key, status string) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[key]
	require.True(t, ok)
	rec.Status = status
}

type memoryPaymentRepoStub struct {
	keys     *memoryKeyRepoStub
	payments map[string]*domain.Payment
}

func newMemoryPaymentRepoStub(keys *memoryKeyRepoStub) *memoryPaymentRepoStub {
	return &memoryPaymentRepoStub{keys: keys, payments: make(map[string]*domain.Payment)}
}

func (r *memoryPaymentRepoStub) CreateWithCompletion(_ context.Context, payment *domain.Payment, response string) (bool, error) {
	r.keys.mu.Lock()
	defer r.keys.mu.Unlock()
	if _, ok := r.payments[payment.IdempotencyKey]; ok {
		return false, nil
	}
	rec, ok := r.keys.data[payment.IdempotencyKey]
	if !ok || rec.Status != domain.KeyStatusProcessing {
		return false, nil
	}
	cp := *payment
	cp.ID = int64(len(r.payments) + 1)
	cp.CreatedAt = time.Now()
	r.payments[payment.IdempotencyKey] = &cp
	rec.Status = domain.KeyStatusCompleted
	rec.Response = &response
	rec.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryPaymentRepoStub) GetByIdempotencyKey(_ context.Context, key string) (*domain.Payment, error) {
	r.keys.mu.Lock()
	defer r.keys.mu.Unlock()
	if payment, ok := r.payments[key]; ok {
		cp := *payment
		return &cp, nil
	}
	return nil, nil
}

type handlerFixture struct {
	router   *gin.Engine
	keyRepo  *memoryKeyRepoStub
	keySvc   *service.IdempotencyService
	payRepo  *memoryPaymentRepoStub
	paySvc   *service.PaymentService
	handlers *Handlers
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	cfg := service.DefaultIdempotencyConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.MaxWait = 150 * time.Millisecond

	keyRepo := newMemoryKeyRepoStub()
	keySvc := service.NewIdempotencyService(keyRepo, nil, cfg)
	payRepo := newMemoryPaymentRepoStub(keyRepo)
	paySvc := service.NewPaymentService(keySvc, payRepo, cfg)

	handlers := ProvideHandlers(
		NewIdempotencyKeyHandler(keySvc),
		NewPaymentHandler(paySvc),
	)

	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/idempotency-keys", handlers.IdempotencyKey.Issue)
	api.GET("/idempotency-keys/:key", handlers.IdempotencyKey.Get)
	api.GET("/idempotency/metrics", handlers.IdempotencyKey.Metrics)
	api.POST("/payments", handlers.Payment.Execute)
	api.GET("/payments/:key", handlers.Payment.GetPayment)

	return &handlerFixture{
		router:   router,
		keyRepo:  keyRepo,
		keySvc:   keySvc,
		payRepo:  payRepo,
		paySvc:   paySvc,
		handlers: handlers,
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Reason  string          `json:"reason"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}
