package student

import (
	"time"

	"github.com/google/uuid"
)

// Student belongs to exactly one school and optionally one classroom.
// StudentNumber is the human-readable identifier minted from the school
// code and the per-school, per-year sequence.
type Student struct {
	ID            uuid.UUID  `json:"id"`
	StudentNumber string     `json:"studentNumber"`
	FirstName     string     `json:"firstname"`
	LastName      string     `json:"lastname"`
	Email         string     `json:"email"`
	SchoolID      uuid.UUID  `json:"schoolId"`
	ClassroomID   uuid.UUID  `json:"classroomId,omitempty"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Deleted reports whether the student has been soft-deleted.
func (s *Student) Deleted() bool {
	return s.DeletedAt != nil
}
