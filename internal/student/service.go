package student

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lyceum-app/lyceum/internal/audit"
	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/classroom"
	"github.com/lyceum-app/lyceum/internal/school"
	"github.com/lyceum-app/lyceum/internal/sequence"
	"github.com/lyceum-app/lyceum/internal/shared"
)

const sequenceEntity = "student"

// Service wraps student business rules.
type Service struct {
	repo       Repository
	schools    school.Repository
	classrooms classroom.Repository
	sequences  sequence.Store
	audit      *audit.Logger
	now        func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, schools school.Repository, classrooms classroom.Repository, sequences sequence.Store, auditLogger *audit.Logger) *Service {
	return &Service{
		repo:       repo,
		schools:    schools,
		classrooms: classrooms,
		sequences:  sequences,
		audit:      auditLogger,
		now:        time.Now,
	}
}

// Create enrols a student, minting the student number from the school's
// per-year sequence.
func (s *Service) Create(ctx context.Context, actor *shared.Principal, st *Student) (*Student, error) {
	if err := authz.RequireOwner(actor, st.SchoolID); err != nil {
		return nil, err
	}
	target, err := s.schools.Get(ctx, st.SchoolID)
	if err != nil {
		return nil, err
	}
	if target.Deleted() {
		return nil, shared.NotFound("school_not_found")
	}
	if st.ClassroomID != uuid.Nil {
		if err := s.checkClassroom(ctx, st.ClassroomID, st.SchoolID); err != nil {
			return nil, err
		}
	}

	year := s.now().Year()
	seq, err := s.sequences.Next(ctx, sequenceEntity, target.Code, year)
	if err != nil {
		return nil, err
	}
	st.ID = uuid.New()
	st.StudentNumber = sequence.Format(target.Code, year, seq)

	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionCreate,
		Resource:   audit.ResourceStudent,
		ResourceID: st.ID.String(),
	})
	return st, nil
}

// List returns a page of students. Scoped actors are pinned to their own
// school.
func (s *Service) List(ctx context.Context, actor *shared.Principal, schoolID uuid.UUID, page shared.Page) ([]Student, int, error) {
	if actor.Scoped() {
		schoolID = actor.SchoolID
	}
	if schoolID == uuid.Nil {
		return nil, 0, shared.NotFound("school_not_found")
	}

	var (
		students []Student
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = s.repo.List(gctx, schoolID, page)
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
	return students, total, nil
}

// Get fetches a single student visible to the actor.
func (s *Service) Get(ctx context.Context, actor *shared.Principal, id uuid.UUID) (*Student, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Deleted() {
		return nil, shared.NotFound("student_not_found")
	}
	if err := authz.RequireOwner(actor, st.SchoolID); err != nil {
		return nil, err
	}
	return st, nil
}

// Update applies partial changes to a student. Classroom reassignment must
// stay within the student's school; moving schools is the transfer
// workflow's job, not an update.
func (s *Service) Update(ctx context.Context, actor *shared.Principal, id uuid.UUID, changes Changes) (*Student, error) {
	st, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if changes.ClassroomID != nil && *changes.ClassroomID != uuid.Nil {
		if err := s.checkClassroom(ctx, *changes.ClassroomID, st.SchoolID); err != nil {
			return nil, err
		}
	}
	changes.apply(st)
	if err := s.repo.Update(ctx, st); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionUpdate,
		Resource:   audit.ResourceStudent,
		ResourceID: st.ID.String(),
	})
	return st, nil
}

// Delete soft-deletes a student.
func (s *Service) Delete(ctx context.Context, actor *shared.Principal, id uuid.UUID) error {
	st, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, st.ID); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionDelete,
		Resource:   audit.ResourceStudent,
		ResourceID: st.ID.String(),
	})
	return nil
}

func (s *Service) checkClassroom(ctx context.Context, classroomID, schoolID uuid.UUID) error {
	c, err := s.classrooms.Get(ctx, classroomID)
	if err != nil {
		return err
	}
	if c.Deleted() || c.SchoolID != schoolID {
		return shared.NotFound("classroom_not_found")
	}
	return nil
}

// Changes carries optional field updates.
type Changes struct {
	FirstName   *string
	LastName    *string
	Email       *string
	ClassroomID *uuid.UUID
}

func (c Changes) apply(st *Student) {
	if c.FirstName != nil {
		st.FirstName = *c.FirstName
	}
	if c.LastName != nil {
		st.LastName = *c.LastName
	}
	if c.Email != nil {
		st.Email = *c.Email
	}
	if c.ClassroomID != nil {
		st.ClassroomID = *c.ClassroomID
	}
}
