package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oncepay/oncepay/internal/config"
	"github.com/oncepay/oncepay/internal/pkg/logger"

	_ "github.com/lib/pq"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS idempotency_keys (
	id BIGSERIAL PRIMARY KEY,
	key VARCHAR(128) NOT NULL,
	status VARCHAR(32) NOT NULL,
	response TEXT,
	owner VARCHAR(128),
	operation VARCHAR(64),
	reserved_until TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idempotency_keys_key_idx ON idempotency_keys (key);
CREATE INDEX IF NOT EXISTS idempotency_keys_status_reserved_until_idx ON idempotency_keys (status, reserved_until);

CREATE TABLE IF NOT EXISTS payments (
	id BIGSERIAL PRIMARY KEY,
	idempotency_key VARCHAR(128) NOT NULL,
	user_id VARCHAR(128) NOT NULL,
	amount_cents BIGINT NOT NULL,
	currency VARCHAR(8) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS payments_idempotency_key_idx ON payments (idempotency_key);
CREATE INDEX IF NOT EXISTS payments_user_id_idx ON payments (user_id);
`

// NewDB opens the Postgres pool, verifies connectivity, and applies the
// schema. The returned cleanup closes the pool.
func NewDB(cfg *config.Config) (*sql.DB, func(), error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute)
	db.SetConnMaxIdleTime(time.Duration(cfg.Database.ConnMaxIdleTimeMinutes) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.S().Warnf("close database: %v", err)
		}
	}
	return db, cleanup, nil
}

// Migrate applies the table schema. All statements are idempotent so it is
// safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}
