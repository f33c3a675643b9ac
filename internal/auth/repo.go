package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists login sessions.
type Repository interface {
	CreateSession(ctx context.Context, rec LoginSession) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateSession records a sign-in. A repeated session id overwrites the
// previous record, which happens when an operator signs in again after expiry.
func (r *PGRepository) CreateSession(ctx context.Context, rec LoginSession) error {
	const query = `INSERT INTO login_sessions (id, username, role, group_name, created_at, expires_at, ip, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	username = EXCLUDED.username,
	role = EXCLUDED.role,
	group_name = EXCLUDED.group_name,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at,
	ip = EXCLUDED.ip,
	user_agent = EXCLUDED.user_agent`
	if _, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Username, rec.Role, rec.Group,
		rec.CreatedAt.UTC(), rec.ExpiresAt.UTC(), rec.IP, rec.UserAgent,
	); err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM login_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
