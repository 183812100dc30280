package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order on startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                    UUID PRIMARY KEY,
		email                 TEXT NOT NULL,
		name                  TEXT NOT NULL,
		password_hash         TEXT NOT NULL,
		is_verified           BOOLEAN NOT NULL DEFAULT FALSE,
		register_otp_hash     TEXT,
		register_otp_expires  TIMESTAMPTZ,
		register_otp_attempts INT NOT NULL DEFAULT 0 CHECK (register_otp_attempts BETWEEN 0 AND 5),
		reset_otp_hash        TEXT,
		reset_otp_expires     TIMESTAMPTZ,
		reset_otp_attempts    INT NOT NULL DEFAULT 0 CHECK (reset_otp_attempts BETWEEN 0 AND 5),
		created_at            TIMESTAMPTZ NOT NULL,
		updated_at            TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email)`,

	`CREATE TABLE IF NOT EXISTS products (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		price          DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		original_price DOUBLE PRECISION,
		image          TEXT NOT NULL,
		rating         REAL NOT NULL DEFAULT 0,
		sold           INT NOT NULL DEFAULT 0,
		discount       INT NOT NULL DEFAULT 0,
		category       TEXT NOT NULL DEFAULT 'other',
		views          INT NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL,
		indexed_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS products_created_at_idx ON products (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS products_unindexed_idx ON products (id) WHERE indexed_at IS NULL OR indexed_at < updated_at`,

	`CREATE TABLE IF NOT EXISTS todos (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		title      TEXT NOT NULL,
		done       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS todos_user_created_idx ON todos (user_id, created_at DESC)`,
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
