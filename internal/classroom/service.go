package classroom

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lyceum-app/lyceum/internal/audit"
	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/school"
	"github.com/lyceum-app/lyceum/internal/shared"
)

// Service wraps classroom business rules. School admins only reach their
// own school; tenant ownership is re-checked here after each fetch.
type Service struct {
	repo    Repository
	schools school.Repository
	audit   *audit.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, schools school.Repository, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, schools: schools, audit: auditLogger}
}

// Create registers a classroom under a school.
func (s *Service) Create(ctx context.Context, actor *shared.Principal, c *Classroom) (*Classroom, error) {
	if err := authz.RequireOwner(actor, c.SchoolID); err != nil {
		return nil, err
	}
	target, err := s.schools.Get(ctx, c.SchoolID)
	if err != nil {
		return nil, err
	}
	if target.Deleted() {
		return nil, shared.NotFound("school_not_found")
	}
	c.ID = uuid.New()
	c.CreatedBy = actor.UserID
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionCreate,
		Resource:   audit.ResourceClassroom,
		ResourceID: c.ID.String(),
	})
	return c, nil
}

// List returns a page of classrooms. Scoped actors are pinned to their own
// school regardless of the requested filter.
func (s *Service) List(ctx context.Context, actor *shared.Principal, schoolID uuid.UUID, page shared.Page) ([]Classroom, int, error) {
	if actor.Scoped() {
		schoolID = actor.SchoolID
	}
	if schoolID == uuid.Nil {
		return nil, 0, shared.NotFound("school_not_found")
	}

	var (
		classrooms []Classroom
		total      int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		classrooms, err = s.repo.List(gctx, schoolID, page)
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
	return classrooms, total, nil
}

// Get fetches a single classroom visible to the actor.
func (s *Service) Get(ctx context.Context, actor *shared.Principal, id uuid.UUID) (*Classroom, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Deleted() {
		return nil, shared.NotFound("classroom_not_found")
	}
	if err := authz.RequireOwner(actor, c.SchoolID); err != nil {
		return nil, err
	}
	return c, nil
}

// Update applies partial changes to a classroom.
func (s *Service) Update(ctx context.Context, actor *shared.Principal, id uuid.UUID, changes Changes) (*Classroom, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	changes.apply(c)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionUpdate,
		Resource:   audit.ResourceClassroom,
		ResourceID: c.ID.String(),
	})
	return c, nil
}

// Delete soft-deletes a classroom unless students are still assigned.
func (s *Service) Delete(ctx context.Context, actor *shared.Principal, id uuid.UUID) error {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	count, err := s.repo.ActiveStudentCount(ctx, c.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.Conflict("classroom_has_students")
	}
	if err := s.repo.SoftDelete(ctx, c.ID); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionDelete,
		Resource:   audit.ResourceClassroom,
		ResourceID: c.ID.String(),
	})
	return nil
}

// Changes carries optional field updates.
type Changes struct {
	Name      *string
	Capacity  *int
	Resources *[]string
}

func (c Changes) apply(target *Classroom) {
	if c.Name != nil {
		target.Name = *c.Name
	}
	if c.Capacity != nil {
		target.Capacity = *c.Capacity
	}
	if c.Resources != nil {
		target.Resources = *c.Resources
	}
}
