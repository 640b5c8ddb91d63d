package token

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyceum-app/lyceum/internal/shared"
)

// Repository defines persistence operations for long sessions.
type Repository interface {
	CreateSession(ctx context.Context, sess *LongSession) error
	FindByToken(ctx context.Context, token string) (*LongSession, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status SessionStatus) error
	MarkExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateSession persists a new long session record.
func (r *PGRepository) CreateSession(ctx context.Context, sess *LongSession) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO long_sessions (id, token, user_id, device, ip, status, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		sess.ID, sess.Token, sess.UserID, sess.Device, sess.IP, string(sess.Status), sess.ExpiresAt, sess.CreatedAt)
	return err
}

// FindByToken fetches a session by its opaque token string.
func (r *PGRepository) FindByToken(ctx context.Context, token string) (*LongSession, error) {
	var sess LongSession
	var status string
	err := r.pool.QueryRow(ctx, `SELECT id, token, user_id, device, ip, status, expires_at, created_at, updated_at
FROM long_sessions WHERE token = $1`, token).
		Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.Device, &sess.IP, &status, &sess.ExpiresAt, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("token_not_found")
		}
		return nil, err
	}
	sess.Status = SessionStatus(status)
	return &sess, nil
}

// UpdateStatus transitions a session's stored status.
func (r *PGRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status SessionStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE long_sessions SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	return err
}

// MarkExpired tags active sessions past their lifetime. Only the background
// sweep calls this; validation derives expiry from the clock.
func (r *PGRepository) MarkExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE long_sessions SET status = 'expired', updated_at = NOW()
WHERE status = 'active' AND expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
