package user

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

// Repository defines persistence operations for admin accounts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	SuperadminExists(ctx context.Context) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, first_name, last_name, email, password_hash, role, school_id, created_at, updated_at`

// Create persists a new account. A duplicate email maps to a conflict.
func (r *PGRepository) Create(ctx context.Context, u *User) error {
	schoolID := pgtype.UUID{Bytes: u.SchoolID, Valid: u.SchoolID != uuid.Nil}
	_, err := r.pool.Exec(ctx, `INSERT INTO users (id, first_name, last_name, email, password_hash, role, school_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role), schoolID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.Conflict("email_already_exists")
		}
		return err
	}
	return nil
}

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// SuperadminExists reports whether the bootstrap superadmin was created.
func (r *PGRepository) SuperadminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, string(shared.RoleSuperadmin)).Scan(&exists)
	return exists, err
}

func (r *PGRepository) scanOne(row pgx.Row) (*User, error) {
	var u User
	var role string
	var schoolID pgtype.UUID
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &role, &schoolID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("user_not_found")
		}
		return nil, err
	}
	u.Role = shared.Role(role)
	if schoolID.Valid {
		u.SchoolID = schoolID.Bytes
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
