package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lyceum-app/lyceum/internal/audit"
	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/classroom"
	"github.com/lyceum-app/lyceum/internal/school"
	"github.com/lyceum-app/lyceum/internal/shared"
	"github.com/lyceum-app/lyceum/internal/student"
)

// Service runs the transfer state machine.
type Service struct {
	repo       Repository
	students   student.Repository
	schools    school.Repository
	classrooms classroom.Repository
	audit      *audit.Logger
	now        func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, students student.Repository, schools school.Repository, classrooms classroom.Repository, auditLogger *audit.Logger) *Service {
	return &Service{
		repo:       repo,
		students:   students,
		schools:    schools,
		classrooms: classrooms,
		audit:      auditLogger,
		now:        time.Now,
	}
}

// Propose opens a pending request to move a student to another school. The
// actor must own the student's current school; the destination must exist
// and be active. The student's data is snapshot here so the request shows
// the state at proposal time even if the student is later edited.
func (s *Service) Propose(ctx context.Context, actor *shared.Principal, studentID, toSchoolID, toClassroomID uuid.UUID) (*TransferRequest, error) {
	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if st.Deleted() {
		return nil, shared.NotFound("student_not_found")
	}
	if err := authz.RequireOwner(actor, st.SchoolID); err != nil {
		return nil, err
	}
	dest, err := s.schools.Get(ctx, toSchoolID)
	if err != nil {
		return nil, err
	}
	if dest.Deleted() {
		return nil, shared.NotFound("school_not_found")
	}
	if toClassroomID != uuid.Nil {
		c, err := s.classrooms.Get(ctx, toClassroomID)
		if err != nil {
			return nil, err
		}
		if c.Deleted() || c.SchoolID != toSchoolID {
			return nil, shared.NotFound("classroom_not_found")
		}
	}

	snapshot := Snapshot{
		FirstName:     st.FirstName,
		LastName:      st.LastName,
		Email:         st.Email,
		StudentNumber: st.StudentNumber,
	}
	if st.ClassroomID != uuid.Nil {
		current, err := s.classrooms.Get(ctx, st.ClassroomID)
		if err != nil {
			return nil, err
		}
		snapshot.Classroom = current.Name
	}

	tr := &TransferRequest{
		ID:            uuid.New(),
		StudentID:     st.ID,
		FromSchoolID:  st.SchoolID,
		ToSchoolID:    toSchoolID,
		ToClassroomID: toClassroomID,
		Status:        StatusPending,
		Snapshot:      snapshot,
		RequestedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, tr); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionTransfer,
		Resource:   audit.ResourceTransferRequest,
		ResourceID: tr.ID.String(),
	})
	return tr, nil
}

// Approve resolves a pending request: the student moves to the destination
// school and classroom, and the request records who answered and when. The
// two writes commit together. Only destination-side actors may approve.
func (s *Service) Approve(ctx context.Context, actor *shared.Principal, id uuid.UUID) (*TransferRequest, error) {
	tr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Scoped() && actor.SchoolID != tr.ToSchoolID {
		return nil, shared.ErrForbidden
	}
	at := s.now()
	resolved, err := s.repo.Approve(ctx, tr, actor.UserID, at)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, shared.Conflict("transfer_request_not_pending")
	}
	tr.Status = StatusApproved
	tr.RespondedBy = actor.UserID
	tr.RespondedAt = &at
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionApprove,
		Resource:   audit.ResourceTransferRequest,
		ResourceID: tr.ID.String(),
	})
	return tr, nil
}

// Reject resolves a pending request without touching the student. Same
// authorization as Approve.
func (s *Service) Reject(ctx context.Context, actor *shared.Principal, id uuid.UUID) (*TransferRequest, error) {
	tr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Scoped() && actor.SchoolID != tr.ToSchoolID {
		return nil, shared.ErrForbidden
	}
	at := s.now()
	resolved, err := s.repo.Reject(ctx, tr.ID, actor.UserID, at)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, shared.Conflict("transfer_request_not_pending")
	}
	tr.Status = StatusRejected
	tr.RespondedBy = actor.UserID
	tr.RespondedAt = &at
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionReject,
		Resource:   audit.ResourceTransferRequest,
		ResourceID: tr.ID.String(),
	})
	return tr, nil
}

// Get returns a single request. Scoped actors must be on one side of the
// transfer.
func (s *Service) Get(ctx context.Context, actor *shared.Principal, id uuid.UUID) (*TransferRequest, error) {
	tr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Scoped() && !tr.Involves(actor.SchoolID) {
		return nil, shared.ErrForbidden
	}
	return tr, nil
}

// List pages through requests. Scoped actors see requests where their
// school is source or destination; superadmins see everything.
func (s *Service) List(ctx context.Context, actor *shared.Principal, page shared.Page) ([]TransferRequest, int, error) {
	schoolID := uuid.Nil
	if actor.Scoped() {
		schoolID = actor.SchoolID
	}

	var (
		requests []TransferRequest
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		requests, err = s.repo.List(gctx, schoolID, page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, schoolID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}
