package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/oncepay/oncepay/internal/config"
	"github.com/oncepay/oncepay/internal/domain"
	infraerrors "github.com/oncepay/oncepay/internal/pkg/errors"

	"github.com/google/uuid"
)

var (
	ErrKeyUnknown       = infraerrors.BadRequest("IDEMPOTENCY_KEY_UNKNOWN", "idempotency key is unknown")
	ErrKeyInvalid       = infraerrors.BadRequest("IDEMPOTENCY_KEY_INVALID", "idempotency key is invalid")
	ErrKeyExpired       = infraerrors.BadRequest("IDEMPOTENCY_KEY_EXPIRED", "idempotency key reservation has expired")
	ErrOwnerMismatch    = infraerrors.Conflict("IDEMPOTENCY_OWNER_MISMATCH", "idempotency key belongs to another owner")
	ErrNotProcessing    = infraerrors.Conflict("IDEMPOTENCY_NOT_PROCESSING", "idempotency key is not in processing state")
	ErrStillProcessing  = infraerrors.New(http.StatusAccepted, "IDEMPOTENCY_STILL_PROCESSING", "request is still processing")
	ErrOperationFailed  = infraerrors.BadGateway("PAYMENT_OPERATION_FAILED", "payment operation failed")
	ErrStoreUnavailable = infraerrors.ServiceUnavailable("IDEMPOTENCY_STORE_UNAVAILABLE", "idempotency store unavailable")
)

// IdempotencyKeyRepository is the durable key store. Implementations must
// perform every mutation as a single status-conditioned statement so that
// concurrent callers in different processes race on the row, not on memory.
type IdempotencyKeyRepository interface {
	CreateReserved(ctx context.Context, record *domain.IdempotencyKey) (bool, error)
	GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error)
	Claim(ctx context.Context, key string, owner *string, now time.Time) (bool, error)
	MarkCompleted(ctx context.Context, key string, response string) (bool, error)
	MarkFailed(ctx context.Context, key string, errorInfo string) (bool, error)
	DeleteExpiredReserved(ctx context.Context, now time.Time, limit int) (int64, error)
}

// PaymentRepository persists the protected side effect. CreateWithCompletion
// must commit the payment row and the completed key flip atomically.
type PaymentRepository interface {
	CreateWithCompletion(ctx context.Context, payment *domain.Payment, response string) (bool, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)
}

type IdempotencyConfig struct {
	ReservationTTL       time.Duration
	PollInterval         time.Duration
	MaxWait              time.Duration
	MaxStoredResponseLen int
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		ReservationTTL:       5 * time.Minute,
		PollInterval:         200 * time.Millisecond,
		MaxWait:              10 * time.Second,
		MaxStoredResponseLen: 64 * 1024,
	}
}

func NewIdempotencyConfig(cfg *config.Config) IdempotencyConfig {
	out := DefaultIdempotencyConfig()
	if cfg == nil {
		return out
	}
	if cfg.Idempotency.ReservationTTLSeconds > 0 {
		out.ReservationTTL = cfg.Idempotency.ReservationTTL()
	}
	if cfg.Idempotency.PollIntervalMillis > 0 {
		out.PollInterval = cfg.Idempotency.PollInterval()
	}
	if cfg.Idempotency.MaxWaitSeconds > 0 {
		out.MaxWait = cfg.Idempotency.MaxWait()
	}
	if cfg.Idempotency.MaxStoredResponseLen > 0 {
		out.MaxStoredResponseLen = cfg.Idempotency.MaxStoredResponseLen
	}
	return out
}

// IdempotencyService issues keys, arbitrates claims, and records outcomes.
// The repository row is the only coordination point; the service never holds
// an in-memory lock across operations.
type IdempotencyService struct {
	repo  IdempotencyKeyRepository
	cache *TerminalRecordCache
	cfg   IdempotencyConfig
}

func NewIdempotencyService(repo IdempotencyKeyRepository, cache *TerminalRecordCache, cfg IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		repo:  repo,
		cache: cache,
		cfg:   cfg,
	}
}

// NormalizeKey trims and validates a client-supplied key. Empty input stays
// empty; anything outside printable ASCII or over 128 bytes is rejected.
func NormalizeKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", nil
	}
	if len(key) > 128 {
		return "", ErrKeyInvalid
	}
	for _, r := range key {
		if r < 33 || r > 126 {
			return "", ErrKeyInvalid
		}
	}
	return key, nil
}

// Issue mints a fresh key (uuid v4 carries the required 128 bits of
// entropy), durably inserts it as reserved, and only then returns it. A
// handed-out key is always present in the store.
func (s *IdempotencyService) Issue(ctx context.Context, owner, operation *string) (*domain.IdempotencyKey, error) {
	now := time.Now()
	record := &domain.IdempotencyKey{
		Status:        domain.KeyStatusReserved,
		Owner:         owner,
		Operation:     operation,
		ReservedUntil: now.Add(s.cfg.ReservationTTL),
	}

	// uuid collisions are not a practical concern, but the insert is
	// conditional anyway; retry a couple of times rather than reason about it.
	for attempt := 0; attempt < 3; attempt++ {
		record.Key = uuid.NewString()
		created, err := s.repo.CreateReserved(ctx, record)
		if err != nil {
			recordStoreUnavailable("issue")
			return nil, ErrStoreUnavailable.WithCause(err)
		}
		if created {
			recordIssued()
			logLifecycleAudit(record.Key, "none->reserved", map[string]string{
				"operation": stringOrDash(operation),
			})
			return record, nil
		}
	}
	recordStoreUnavailable("issue_exhausted")
	return nil, ErrStoreUnavailable
}

// Get returns the record for key, or (nil, nil) when absent. Terminal
// records are served from cache when possible; live records always hit the
// store.
func (s *IdempotencyService) Get(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, nil
	}
	record, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		recordStoreUnavailable("get")
		return nil, ErrStoreUnavailable.WithCause(err)
	}
	if record != nil && record.Terminal() {
		s.cache.Set(ctx, record)
	}
	return record, nil
}

// Claim attempts the reserved -> processing transition. Exactly one of any
// number of concurrent callers receives true; everyone else receives false
// with no error and should wait for the winner's outcome.
func (s *IdempotencyService) Claim(ctx context.Context, key string, owner *string) (bool, error) {
	won, err := s.repo.Claim(ctx, key, owner, time.Now())
	if err != nil {
		recordStoreUnavailable("claim")
		return false, ErrStoreUnavailable.WithCause(err)
	}
	if won {
		recordClaimWon()
		logLifecycleAudit(key, "reserved->processing", nil)
	} else {
		recordClaimLost()
	}
	return won, nil
}

// Complete records the canonical response and flips processing -> completed.
// Returns ErrNotProcessing when the key is not currently claimed, which is
// what keeps terminal records immutable.
func (s *IdempotencyService) Complete(ctx context.Context, key, response string) error {
	updated, err := s.repo.MarkCompleted(ctx, key, s.capStoredResponse(response))
	if err != nil {
		recordStoreUnavailable("complete")
		return ErrStoreUnavailable.WithCause(err)
	}
	if !updated {
		return ErrNotProcessing
	}
	recordCompleted()
	logLifecycleAudit(key, "processing->completed", nil)
	return nil
}

// Fail records the error payload and flips processing -> failed.
func (s *IdempotencyService) Fail(ctx context.Context, key, errorInfo string) error {
	updated, err := s.repo.MarkFailed(ctx, key, s.capStoredResponse(errorInfo))
	if err != nil {
		recordStoreUnavailable("fail")
		return ErrStoreUnavailable.WithCause(err)
	}
	if !updated {
		return ErrNotProcessing
	}
	recordFailed()
	logLifecycleAudit(key, "processing->failed", nil)
	return nil
}

func (s *IdempotencyService) capStoredResponse(body string) string {
	if s.cfg.MaxStoredResponseLen > 0 && len(body) > s.cfg.MaxStoredResponseLen {
		return body[:s.cfg.MaxStoredResponseLen] + "...(truncated)"
	}
	return body
}

func stringOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}
