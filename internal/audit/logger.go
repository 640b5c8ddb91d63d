// Package audit records who changed what. The sink is fire-and-forget: a
// failed write is logged and swallowed, never surfaced to the caller.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit actions.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionTransfer = "transfer"
)

// Audit resources.
const (
	ResourceSchool          = "school"
	ResourceClassroom       = "classroom"
	ResourceStudent         = "student"
	ResourceTransferRequest = "transferRequest"
	ResourceUser            = "user"
)

// Entry is a single audit record.
type Entry struct {
	ActorID    uuid.UUID
	Action     string
	Resource   string
	ResourceID string
	Meta       map[string]any
	At         time.Time
}

// Logger writes entries into audit_logs.
type Logger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewLogger returns a new audit Logger.
func NewLogger(pool *pgxpool.Pool, logger *slog.Logger) *Logger {
	return &Logger{pool: pool, logger: logger}
}

// Record persists the entry. Errors are logged and dropped so audit
// failures never fail the business operation they describe.
func (l *Logger) Record(ctx context.Context, entry Entry) {
	if l == nil || l.pool == nil {
		return
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		l.warn("audit marshal meta", err)
		return
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, resource, resource_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ActorID, entry.Action, entry.Resource, entry.ResourceID, metaJSON, entry.At)
	if err != nil {
		l.warn("audit write failed", err)
	}
}

// Prune removes entries older than the retention window. Called from the
// background worker, not the request path.
func (l *Logger) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := l.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (l *Logger) warn(msg string, err error) {
	if l.logger != nil {
		l.logger.Warn(msg, slog.Any("error", err))
	}
}
