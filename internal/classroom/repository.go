package classroom

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

// Repository defines persistence operations for classrooms.
type Repository interface {
	Create(ctx context.Context, c *Classroom) error
	Get(ctx context.Context, id uuid.UUID) (*Classroom, error)
	List(ctx context.Context, schoolID uuid.UUID, page shared.Page) ([]Classroom, error)
	Count(ctx context.Context, schoolID uuid.UUID) (int, error)
	Update(ctx context.Context, c *Classroom) error
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

const classroomColumns = `id, name, school_id, capacity, resources, created_by, deleted_at, created_at, updated_at`

// Create persists a classroom. (school_id, name) is unique.
func (r *PGRepository) Create(ctx context.Context, c *Classroom) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO classrooms (id, name, school_id, capacity, resources, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		c.ID, c.Name, c.SchoolID, c.Capacity, c.Resources, c.CreatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.Conflict("classroom_already_exists")
		}
		return err
	}
	return nil
}

// Get fetches a classroom by id, soft-deleted rows included.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Classroom, error) {
	return scanClassroom(r.pool.QueryRow(ctx, `SELECT `+classroomColumns+` FROM classrooms WHERE id = $1`, id))
}

// List returns a page of active classrooms for a school.
func (r *PGRepository) List(ctx context.Context, schoolID uuid.UUID, page shared.Page) ([]Classroom, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+classroomColumns+` FROM classrooms
WHERE school_id = $1 AND deleted_at IS NULL ORDER BY name LIMIT $2 OFFSET $3`,
		schoolID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classrooms []Classroom
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			return nil, err
		}
		classrooms = append(classrooms, *c)
	}
	return classrooms, rows.Err()
}

// Count returns the number of active classrooms for a school.
func (r *PGRepository) Count(ctx context.Context, schoolID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM classrooms WHERE school_id = $1 AND deleted_at IS NULL`, schoolID).Scan(&count)
	return count, err
}

// Update rewrites the mutable columns.
func (r *PGRepository) Update(ctx context.Context, c *Classroom) error {
	_, err := r.pool.Exec(ctx, `UPDATE classrooms SET name = $2, capacity = $3, resources = $4, updated_at = NOW() WHERE id = $1`,
		c.ID, c.Name, c.Capacity, c.Resources)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.Conflict("classroom_already_exists")
		}
		return err
	}
	return nil
}

// SoftDelete tags the classroom as deleted.
func (r *PGRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE classrooms SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

// ActiveStudentCount counts non-deleted students assigned to the classroom.
func (r *PGRepository) ActiveStudentCount(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE classroom_id = $1 AND deleted_at IS NULL`, id).Scan(&count)
	return count, err
}

func scanClassroom(row pgx.Row) (*Classroom, error) {
	var c Classroom
	var deletedAt pgtype.Timestamptz
	err := row.Scan(&c.ID, &c.Name, &c.SchoolID, &c.Capacity, &c.Resources, &c.CreatedBy, &deletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("classroom_not_found")
		}
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		c.DeletedAt = &t
	}
	return &c, nil
}

var _ Repository = (*PGRepository)(nil)
