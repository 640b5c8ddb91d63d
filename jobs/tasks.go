// Package jobs holds the background maintenance tasks: the long-session
// expiry sweep and audit-log pruning. Both run on a cron schedule through
// the Asynq worker, never on the request path.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lyceum-app/lyceum/internal/audit"
	"github.com/lyceum-app/lyceum/internal/token"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurge marks expired long sessions for bookkeeping.
	TaskSessionsPurge = "sessions:purge_expired"
	// TaskAuditPrune deletes audit entries past the retention window.
	TaskAuditPrune = "audit:prune"
)

// AuditPrunePayload carries the retention window for a prune run.
type AuditPrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewSessionsPurgeTask constructs the session sweep task.
func NewSessionsPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsPurge, nil)
}

// NewAuditPruneTask constructs the audit prune task.
func NewAuditPruneTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// SessionsPurgeJob flips sessions whose lifetime has passed from active to
// expired. Validation never reads the stored status for expiry, so this is
// purely to keep the table honest for operators.
type SessionsPurgeJob struct {
	sessions token.Repository
	logger   *slog.Logger
}

// NewSessionsPurgeJob constructs the job.
func NewSessionsPurgeJob(sessions token.Repository, logger *slog.Logger) *SessionsPurgeJob {
	return &SessionsPurgeJob{sessions: sessions, logger: logger}
}

// Handle processes TaskSessionsPurge tasks.
func (j *SessionsPurgeJob) Handle(ctx context.Context, _ *asynq.Task) error {
	swept, err := j.sessions.MarkExpired(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	j.logger.Info("session sweep complete", slog.Int64("swept", swept))
	return nil
}

// AuditPruneJob trims the audit trail to the retention window.
type AuditPruneJob struct {
	audit  *audit.Logger
	logger *slog.Logger
}

// NewAuditPruneJob constructs the job.
func NewAuditPruneJob(auditLogger *audit.Logger, logger *slog.Logger) *AuditPruneJob {
	return &AuditPruneJob{audit: auditLogger, logger: logger}
}

// Handle processes TaskAuditPrune tasks.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		return asynq.SkipRetry
	}
	pruned, err := j.audit.Prune(ctx, payload.Retention)
	if err != nil {
		return err
	}
	j.logger.Info("audit prune complete", slog.Int64("pruned", pruned))
	return nil
}
