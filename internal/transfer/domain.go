// Package transfer implements the inter-school student transfer workflow:
// a pending request proposed by the source school, resolved exactly once by
// the destination school.
package transfer

import (
	"time"

	"github.com/google/uuid"
)

// Status is the request lifecycle state. pending is the only initial state;
// approved and rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Snapshot is the student's data frozen at proposal time. The student row
// may change before the request is resolved; approvers see it as it was.
type Snapshot struct {
	FirstName     string `json:"firstname"`
	LastName      string `json:"lastname"`
	Email         string `json:"email"`
	StudentNumber string `json:"studentNumber"`
	Classroom     string `json:"classroom,omitempty"`
}

// TransferRequest moves a student from one school to another. At most one
// pending request may exist per student, enforced by a partial unique index.
type TransferRequest struct {
	ID            uuid.UUID  `json:"id"`
	StudentID     uuid.UUID  `json:"studentId"`
	FromSchoolID  uuid.UUID  `json:"fromSchoolId"`
	ToSchoolID    uuid.UUID  `json:"toSchoolId"`
	ToClassroomID uuid.UUID  `json:"toClassroomId,omitempty"` // uuid.Nil when unassigned
	Status        Status     `json:"status"`
	Snapshot      Snapshot   `json:"snapshot"`
	RequestedBy   uuid.UUID  `json:"requestedBy"`
	RespondedBy   uuid.UUID  `json:"respondedBy,omitempty"` // uuid.Nil until resolved
	RespondedAt   *time.Time `json:"respondedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Pending reports whether the request is still open.
func (t *TransferRequest) Pending() bool {
	return t.Status == StatusPending
}

// Involves reports whether the school is either side of the transfer.
func (t *TransferRequest) Involves(schoolID uuid.UUID) bool {
	return t.FromSchoolID == schoolID || t.ToSchoolID == schoolID
}
