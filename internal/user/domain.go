package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/lyceum-app/lyceum/internal/shared"
)

// User represents an admin account. SchoolID is uuid.Nil for superadmins
// and references the owning school for school admins.
type User struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         shared.Role `json:"role"`
	SchoolID     uuid.UUID `json:"schoolId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
