package school

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyceum-app/lyceum/internal/shared"
)

// Repository defines persistence operations for schools.
type Repository interface {
	Create(ctx context.Context, s *School) error
	Get(ctx context.Context, id uuid.UUID) (*School, error)
	Update(ctx context.Context, s *School) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ActiveStudentCount(ctx context.Context, id uuid.UUID) (int, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create persists a new school. Name and code are unique.
func (r *PGRepository) Create(ctx context.Context, s *School) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO schools (id, name, code, address, phone, email, max_capacity, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		s.ID, s.Name, strings.ToUpper(s.Code), s.Address, s.Phone, s.Email, s.MaxCapacity, s.CreatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.Conflict("school_already_exists")
		}
		return err
	}
	return nil
}

// Get fetches a school by id, soft-deleted rows included; callers decide
// whether a deleted school is visible.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*School, error) {
	var s School
	var deletedAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, `SELECT id, name, code, address, phone, email, max_capacity, created_by, deleted_at, created_at, updated_at
FROM schools WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Code, &s.Address, &s.Phone, &s.Email, &s.MaxCapacity, &s.CreatedBy, &deletedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("school_not_found")
		}
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		s.DeletedAt = &t
	}
	return &s, nil
}

// Update rewrites the mutable columns.
func (r *PGRepository) Update(ctx context.Context, s *School) error {
	_, err := r.pool.Exec(ctx, `UPDATE schools SET name = $2, code = $3, address = $4, phone = $5, email = $6, max_capacity = $7, updated_at = NOW()
WHERE id = $1`, s.ID, s.Name, strings.ToUpper(s.Code), s.Address, s.Phone, s.Email, s.MaxCapacity)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.Conflict("school_already_exists")
		}
		return err
	}
	return nil
}

// SoftDelete tags the school as deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE schools SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

// ActiveStudentCount counts non-deleted students attached to the school.
func (r *PGRepository) ActiveStudentCount(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE school_id = $1 AND deleted_at IS NULL`, id).Scan(&count)
	return count, err
}

var _ Repository = (*PGRepository)(nil)
