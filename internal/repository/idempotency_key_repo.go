package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oncepay/oncepay/internal/domain"
	"github.com/oncepay/oncepay/internal/service"
)

type idempotencyKeyRepository struct {
	sql sqlExecutor
}

func NewIdempotencyKeyRepository(sqlDB *sql.DB) service.IdempotencyKeyRepository {
	return &idempotencyKeyRepository{sql: sqlDB}
}

func newIdempotencyKeyRepositoryWithSQL(sqlq sqlExecutor) *idempotencyKeyRepository {
	return &idempotencyKeyRepository{sql: sqlq}
}

// CreateReserved inserts the freshly minted key in reserved state. Returns
// false without error when the key already exists.
func (r *idempotencyKeyRepository) CreateReserved(ctx context.Context, record *domain.IdempotencyKey) (bool, error) {
	if record == nil {
		return false, nil
	}
	query := `
		INSERT INTO idempotency_keys (
			key, status, owner, operation, reserved_until
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO NOTHING
		RETURNING id, created_at, updated_at
	`
	var createdAt time.Time
	var updatedAt time.Time
	err := scanSingleRow(ctx, r.sql, query, []any{
		record.Key,
		record.Status,
		record.Owner,
		record.Operation,
		record.ReservedUntil,
	}, &record.ID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	record.CreatedAt = createdAt
	record.UpdatedAt = updatedAt
	return true, nil
}

// GetByKey returns the record, or (nil, nil) when the key is unknown.
func (r *idempotencyKeyRepository) GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	query := `
		SELECT
			id, key, status, response, owner, operation,
			reserved_until, created_at, updated_at
		FROM idempotency_keys
		WHERE key = $1
	`
	record := &domain.IdempotencyKey{}
	var response sql.NullString
	var owner sql.NullString
	var operation sql.NullString
	err := scanSingleRow(ctx, r.sql, query, []any{key},
		&record.ID,
		&record.Key,
		&record.Status,
		&response,
		&owner,
		&operation,
		&record.ReservedUntil,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if response.Valid {
		v := response.String
		record.Response = &v
	}
	if owner.Valid {
		v := owner.String
		record.Owner = &v
	}
	if operation.Valid {
		v := operation.String
		record.Operation = &v
	}
	return record, nil
}

// Claim flips reserved -> processing with a single conditional update. The
// row is the lock: among concurrent callers in any process, exactly one sees
// an affected row. An unowned record is claimable by anyone; an owned record
// only by its owner.
func (r *idempotencyKeyRepository) Claim(ctx context.Context, key string, owner *string, now time.Time) (bool, error) {
	query := `
		UPDATE idempotency_keys
		SET status = $2,
			updated_at = NOW()
		WHERE key = $1
			AND status = $3
			AND reserved_until > $4
			AND (owner IS NULL OR owner = $5)
	`
	res, err := r.sql.ExecContext(ctx, query,
		key,
		domain.KeyStatusProcessing,
		domain.KeyStatusReserved,
		now,
		owner,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkCompleted records the canonical response and flips processing ->
// completed. Returns false when the row was not in processing, which keeps
// terminal rows immutable.
func (r *idempotencyKeyRepository) MarkCompleted(ctx context.Context, key string, response string) (bool, error) {
	return r.markTerminal(ctx, key, domain.KeyStatusCompleted, response)
}

// MarkFailed records the error payload and flips processing -> failed.
func (r *idempotencyKeyRepository) MarkFailed(ctx context.Context, key string, errorInfo string) (bool, error) {
	return r.markTerminal(ctx, key, domain.KeyStatusFailed, errorInfo)
}

func (r *idempotencyKeyRepository) markTerminal(ctx context.Context, key, status, response string) (bool, error) {
	query := `
		UPDATE idempotency_keys
		SET status = $2,
			response = $3,
			updated_at = NOW()
		WHERE key = $1
			AND status = $4
	`
	res, err := r.sql.ExecContext(ctx, query,
		key,
		status,
		response,
		domain.KeyStatusProcessing,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteExpiredReserved removes reserved rows whose reservation lapsed.
// Processing and terminal rows never match the predicate.
func (r *idempotencyKeyRepository) DeleteExpiredReserved(ctx context.Context, now time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
		WITH victims AS (
			SELECT id
			FROM idempotency_keys
			WHERE status = $1 AND reserved_until <= $2
			ORDER BY reserved_until ASC
			LIMIT $3
		)
		DELETE FROM idempotency_keys
		WHERE id IN (SELECT id FROM victims)
	`
	res, err := r.sql.ExecContext(ctx, query, domain.KeyStatusReserved, now, limit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
