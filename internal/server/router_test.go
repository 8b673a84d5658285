package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oncepay/oncepay/internal/config"
	"github.com/oncepay/oncepay/internal/domain"
	"github.com/oncepay/oncepay/internal/handler"
	"github.com/oncepay/oncepay/internal/server"
	"github.com/oncepay/oncepay/internal/service"
)

type routerKeyRepoStub struct {
	mu   sync.Mutex
	data map[string]*domain.IdempotencyKey
}

func newRouterKeyRepoStub() *routerKeyRepoStub {
	return &routerKeyRepoStub{data: make(map[string]*domain.IdempotencyKey)}
}

func (r *routerKeyRepoStub) CreateReserved(_ context.Context, record *domain.IdempotencyKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[record.Key]; ok {
		return false, nil
	}
	cp := *record
	r.data[record.Key] = &cp
	return true, nil
}

func (r *routerKeyRepoStub) GetByKey(_ context.Context, key string) (*domain.IdempotencyKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *routerKeyRepoStub) Claim(_ context.Context, key string, owner *string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[key]
	if !ok || rec.Status != domain.KeyStatusReserved || !rec.ReservedUntil.After(now) {
		return false, nil
	}
	rec.Status = domain.KeyStatusProcessing
	return true, nil
}

func (r *routerKeyRepoStub) MarkCompleted(_ context.Context, key, response string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[key]
	if !ok || rec.Status != domain.KeyStatusProcessing {
		return false, nil
	}
	rec.Status = domain.KeyStatusCompleted
	rec.Response = &response
	return true, nil
}

func (r *routerKeyRepoStub) MarkFailed(_ context.Context, key, errorInfo string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[key]
	if !ok || rec.Status != domain.KeyStatusProcessing {
		return false, nil
	}
	rec.Status = domain.KeyStatusFailed
	rec.Response = &errorInfo
	return true, nil
}

func (r *routerKeyRepoStub) DeleteExpiredReserved(_ context.Context, _ time.Time, _ int) (int64, error) {
	return 0, nil
}

type routerPaymentRepoStub struct{}

func (routerPaymentRepoStub) CreateWithCompletion(context.Context, *domain.Payment, string) (bool, error) {
	return false, nil
}

func (routerPaymentRepoStub) GetByIdempotencyKey(context.Context, string) (*domain.Payment, error) {
	return nil, nil
}

func newTestRouterConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Mode: "test",
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func newTestRouter() http.Handler {
	cfg := newTestRouterConfig()
	svcCfg := service.DefaultIdempotencyConfig()
	keySvc := service.NewIdempotencyService(newRouterKeyRepoStub(), nil, svcCfg)
	paySvc := service.NewPaymentService(keySvc, routerPaymentRepoStub{}, svcCfg)
	handlers := handler.ProvideHandlers(
		handler.NewIdempotencyKeyHandler(keySvc),
		handler.NewPaymentHandler(paySvc),
	)
	return server.SetupRouter(handlers, cfg)
}

func TestHealthRoute(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRoutesRegistered(t *testing.T) {
	router := newTestRouter()

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/idempotency-keys"},
		{http.MethodGet, "/api/v1/idempotency-keys/some-key"},
		{http.MethodGet, "/api/v1/idempotency/metrics"},
		{http.MethodPost, "/api/v1/payments"},
		{http.MethodGet, "/api/v1/payments/some-key"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		router.ServeHTTP(w, req)
		// Routed paths always answer with the JSON envelope, never gin's
		// plain-text fallback.
		require.NotEqual(t, "404 page not found", w.Body.String(), "%s %s should be routed", tc.method, tc.path)
	}
}

func TestSecurityAndRequestIDHeadersOnEveryResponse(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNewHTTPServerTimeouts(t *testing.T) {
	cfg := newTestRouterConfig()
	cfg.Server.ReadHeaderTimeout = 30
	cfg.Server.IdleTimeout = 120

	srv := server.NewHTTPServer(nil, cfg)
	require.Equal(t, "127.0.0.1:8080", srv.Addr)
	require.Equal(t, 30*time.Second, srv.ReadHeaderTimeout)
	require.Equal(t, 120*time.Second, srv.IdleTimeout)
}
