package school

import (
	"time"

	"github.com/google/uuid"
)

// School is the tenant: the unit of data isolation for school admins.
// Deletion is a tagged state, never a physical removal, so audit history
// and transfer snapshots keep their references.
type School struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Code        string     `json:"code"`
	Address     string     `json:"address,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	MaxCapacity int        `json:"maxCapacity"` // 0 = unlimited
	CreatedBy   uuid.UUID  `json:"createdBy"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Deleted reports whether the school has been soft-deleted.
func (s *School) Deleted() bool {
	return s.DeletedAt != nil
}
