package classroom

import (
	"time"

	"github.com/google/uuid"
)

// Classroom is a sub-unit of a school. Names are unique within a school.
type Classroom struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	SchoolID  uuid.UUID  `json:"schoolId"`
	Capacity  int        `json:"capacity"`
	Resources []string   `json:"resources,omitempty"`
	CreatedBy uuid.UUID  `json:"createdBy"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Deleted reports whether the classroom has been soft-deleted.
func (c *Classroom) Deleted() bool {
	return c.DeletedAt != nil
}
