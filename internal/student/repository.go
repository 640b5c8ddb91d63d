package student

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyceum-app/lyceum/internal/shared"
)

// Repository defines persistence operations for students.
type Repository interface {
	Create(ctx context.Context, s *Student) error
	Get(ctx context.Context, id uuid.UUID) (*Student, error)
	List(ctx context.Context, schoolID uuid.UUID, page shared.Page) ([]Student, error)
	Count(ctx context.Context, schoolID uuid.UUID) (int, error)
	Update(ctx context.Context, s *Student) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const studentColumns = `id, student_number, first_name, last_name, email, school_id, classroom_id, deleted_at, created_at, updated_at`

// Create persists a student. Email and student number are unique.
func (r *PGRepository) Create(ctx context.Context, s *Student) error {
	classroomID := pgtype.UUID{Bytes: s.ClassroomID, Valid: s.ClassroomID != uuid.Nil}
	_, err := r.pool.Exec(ctx, `INSERT INTO students (id, student_number, first_name, last_name, email, school_id, classroom_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		s.ID, s.StudentNumber, s.FirstName, s.LastName, s.Email, s.SchoolID, classroomID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.Conflict("student_already_exists")
		}
		return err
	}
	return nil
}

// Get fetches a student by id, soft-deleted rows included.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Student, error) {
	return scanStudent(r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
}

// List returns a page of active students for a school.
func (r *PGRepository) List(ctx context.Context, schoolID uuid.UUID, page shared.Page) ([]Student, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+studentColumns+` FROM students
WHERE school_id = $1 AND deleted_at IS NULL ORDER BY student_number LIMIT $2 OFFSET $3`,
		schoolID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

// Count returns the number of active students for a school.
func (r *PGRepository) Count(ctx context.Context, schoolID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE school_id = $1 AND deleted_at IS NULL`, schoolID).Scan(&count)
	return count, err
}

// Update rewrites the mutable columns, including school/classroom
// assignment.
func (r *PGRepository) Update(ctx context.Context, s *Student) error {
	classroomID := pgtype.UUID{Bytes: s.ClassroomID, Valid: s.ClassroomID != uuid.Nil}
	_, err := r.pool.Exec(ctx, `UPDATE students SET first_name = $2, last_name = $3, email = $4, school_id = $5, classroom_id = $6, updated_at = NOW()
WHERE id = $1`, s.ID, s.FirstName, s.LastName, s.Email, s.SchoolID, classroomID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.Conflict("student_already_exists")
		}
		return err
	}
	return nil
}

// SoftDelete tags the student as deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE students SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	var classroomID pgtype.UUID
	var deletedAt pgtype.Timestamptz
	err := row.Scan(&s.ID, &s.StudentNumber, &s.FirstName, &s.LastName, &s.Email, &s.SchoolID, &classroomID, &deletedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("student_not_found")
		}
		return nil, err
	}
	if classroomID.Valid {
		s.ClassroomID = classroomID.Bytes
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		s.DeletedAt = &t
	}
	return &s, nil
}

var _ Repository = (*PGRepository)(nil)
