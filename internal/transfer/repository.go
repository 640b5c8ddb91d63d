package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyceum-app/lyceum/internal/platform/db"
	"github.com/lyceum-app/lyceum/internal/shared"
)

// Repository defines persistence operations for transfer requests. Approve
// and Reject are compare-and-set: they report false when the request was no
// longer pending, without touching anything.
type Repository interface {
	Create(ctx context.Context, tr *TransferRequest) error
	Get(ctx context.Context, id uuid.UUID) (*TransferRequest, error)
	List(ctx context.Context, schoolID uuid.UUID, page shared.Page) ([]TransferRequest, error)
	Count(ctx context.Context, schoolID uuid.UUID) (int, error)
	Approve(ctx context.Context, tr *TransferRequest, by uuid.UUID, at time.Time) (bool, error)
	Reject(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const requestColumns = `id, student_id, from_school_id, to_school_id, to_classroom_id, status, snapshot, requested_by, responded_by, responded_at, created_at, updated_at`

// Create inserts a pending request. The partial unique index on
// (student_id) WHERE status = 'pending' closes the race between two
// concurrent proposals for the same student.
func (r *PGRepository) Create(ctx context.Context, tr *TransferRequest) error {
	toClassroom := pgtype.UUID{Bytes: tr.ToClassroomID, Valid: tr.ToClassroomID != uuid.Nil}
	_, err := r.pool.Exec(ctx, `INSERT INTO transfer_requests (id, student_id, from_school_id, to_school_id, to_classroom_id, status, snapshot, requested_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		tr.ID, tr.StudentID, tr.FromSchoolID, tr.ToSchoolID, toClassroom, tr.Status, tr.Snapshot, tr.RequestedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.Conflict("transfer_request_already_pending")
		}
		return err
	}
	return nil
}

// Get fetches a request by id.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*TransferRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM transfer_requests WHERE id = $1`, id))
}

// List returns a page of requests, newest first. A zero schoolID means no
// visibility filter; otherwise only requests with the school on either side
// are returned.
func (r *PGRepository) List(ctx context.Context, schoolID uuid.UUID, page shared.Page) ([]TransferRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM transfer_requests
WHERE $1 = '00000000-0000-0000-0000-000000000000'::uuid OR from_school_id = $1 OR to_school_id = $1
ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		schoolID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []TransferRequest
	for rows.Next() {
		tr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *tr)
	}
	return requests, rows.Err()
}

// Count mirrors List's visibility filter.
func (r *PGRepository) Count(ctx context.Context, schoolID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transfer_requests
WHERE $1 = '00000000-0000-0000-0000-000000000000'::uuid OR from_school_id = $1 OR to_school_id = $1`,
		schoolID).Scan(&count)
	return count, err
}

// Approve transitions the request to approved and moves the student to the
// destination school and classroom in the same transaction. The status
// update is conditional on the row still being pending; when that guard
// fails the student is untouched and false is returned.
func (r *PGRepository) Approve(ctx context.Context, tr *TransferRequest, by uuid.UUID, at time.Time) (bool, error) {
	resolved := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE transfer_requests SET status = $2, responded_by = $3, responded_at = $4, updated_at = NOW()
WHERE id = $1 AND status = $5`,
			tr.ID, StatusApproved, by, at, StatusPending)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		toClassroom := pgtype.UUID{Bytes: tr.ToClassroomID, Valid: tr.ToClassroomID != uuid.Nil}
		if _, err := tx.Exec(ctx, `UPDATE students SET school_id = $2, classroom_id = $3, updated_at = NOW() WHERE id = $1`,
			tr.StudentID, tr.ToSchoolID, toClassroom); err != nil {
			return err
		}
		resolved = true
		return nil
	})
	return resolved, err
}

// Reject transitions the request to rejected. No student mutation.
func (r *PGRepository) Reject(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE transfer_requests SET status = $2, responded_by = $3, responded_at = $4, updated_at = NOW()
WHERE id = $1 AND status = $5`,
		id, StatusRejected, by, at, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanRequest(row pgx.Row) (*TransferRequest, error) {
	var tr TransferRequest
	var toClassroom, respondedBy pgtype.UUID
	var respondedAt pgtype.Timestamptz
	err := row.Scan(&tr.ID, &tr.StudentID, &tr.FromSchoolID, &tr.ToSchoolID, &toClassroom, &tr.Status,
		&tr.Snapshot, &tr.RequestedBy, &respondedBy, &respondedAt, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("transfer_request_not_found")
		}
		return nil, err
	}
	if toClassroom.Valid {
		tr.ToClassroomID = toClassroom.Bytes
	}
	if respondedBy.Valid {
		tr.RespondedBy = respondedBy.Bytes
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		tr.RespondedAt = &t
	}
	return &tr, nil
}

var _ Repository = (*PGRepository)(nil)
