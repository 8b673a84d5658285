package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oncepay/oncepay/internal/domain"
	"github.com/oncepay/oncepay/internal/service"

	"github.com/lib/pq"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(sqlDB *sql.DB) service.PaymentRepository {
	return &paymentRepository{db: sqlDB}
}

// CreateWithCompletion inserts the payment row and flips the guarding key
// from processing to completed inside one transaction, so the side effect
// and the terminal record commit or roll back together. Returns false when
// the key was not in processing (a sibling already finished it).
func (r *paymentRepository) CreateWithCompletion(ctx context.Context, payment *domain.Payment, response string) (bool, error) {
	if payment == nil {
		return false, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin payment tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	insert := `
		INSERT INTO payments (idempotency_key, user_id, amount_cents, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err = tx.QueryRowContext(ctx, insert,
		payment.IdempotencyKey,
		payment.UserID,
		payment.AmountCents,
		payment.Currency,
	).Scan(&payment.ID, &payment.CreatedAt)
	if isUniqueViolation(err) {
		// A sibling already paid under this key; the caller replays instead.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert payment: %w", err)
	}

	update := `
		UPDATE idempotency_keys
		SET status = $2,
			response = $3,
			updated_at = NOW()
		WHERE key = $1
			AND status = $4
	`
	res, err := tx.ExecContext(ctx, update,
		payment.IdempotencyKey,
		domain.KeyStatusCompleted,
		response,
		domain.KeyStatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("complete idempotency key: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		// Key not in processing: roll the payment back rather than double-pay.
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit payment tx: %w", err)
	}
	committed = true
	return true, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *paymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	query := `
		SELECT id, idempotency_key, user_id, amount_cents, currency, created_at
		FROM payments
		WHERE idempotency_key = $1
	`
	payment := &domain.Payment{}
	err := scanSingleRow(ctx, r.db, query, []any{key},
		&payment.ID,
		&payment.IdempotencyKey,
		&payment.UserID,
		&payment.AmountCents,
		&payment.Currency,
		&payment.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}
