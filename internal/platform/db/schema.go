package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS login_sessions (
		id          TEXT PRIMARY KEY,
		username    TEXT NOT NULL,
		role        TEXT NOT NULL,
		group_name  TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL,
		expires_at  TIMESTAMPTZ NOT NULL,
		ip          TEXT NOT NULL DEFAULT '',
		user_agent  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS approval_log (
		id          BIGSERIAL PRIMARY KEY,
		actor       TEXT NOT NULL,
		transition  TEXT NOT NULL,
		sale_id     TEXT NOT NULL DEFAULT '',
		batch_ref   TEXT NOT NULL DEFAULT '',
		from_status TEXT NOT NULL DEFAULT '',
		to_status   TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS approval_log_batch_ref_idx ON approval_log (batch_ref, created_at)`,
	`CREATE INDEX IF NOT EXISTS approval_log_sale_id_idx ON approval_log (sale_id)`,
}

// EnsureSchema creates the tables the dashboard owns. The statements are
// idempotent and run in one transaction.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return WithTx(ctx, pool, func(tx Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("platform/db: ensure schema: %w", err)
			}
		}
		return nil
	})
}
