package school

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lyceum-app/lyceum/internal/audit"
	"github.com/lyceum-app/lyceum/internal/shared"
	"github.com/lyceum-app/lyceum/internal/user"
)

// Service wraps school management rules. All operations are
// superadmin-only; the route guard enforces the role before calls arrive.
type Service struct {
	repo  Repository
	users user.Repository
	audit *audit.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, users user.Repository, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, users: users, audit: auditLogger}
}

// Create registers a new school.
func (s *Service) Create(ctx context.Context, actor *shared.Principal, school *School) (*School, error) {
	school.ID = uuid.New()
	school.CreatedBy = actor.UserID
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionCreate,
		Resource:   audit.ResourceSchool,
		ResourceID: school.ID.String(),
	})
	return school, nil
}

// Get fetches a school; soft-deleted schools read as absent.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*School, error) {
	school, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if school.Deleted() {
		return nil, shared.NotFound("school_not_found")
	}
	return school, nil
}

// Update applies partial changes to a school.
func (s *Service) Update(ctx context.Context, actor *shared.Principal, id uuid.UUID, changes Changes) (*School, error) {
	school, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changes.apply(school)
	if err := s.repo.Update(ctx, school); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionUpdate,
		Resource:   audit.ResourceSchool,
		ResourceID: school.ID.String(),
	})
	return school, nil
}

// Delete soft-deletes a school. A school still holding active students
// cannot be removed.
func (s *Service) Delete(ctx context.Context, actor *shared.Principal, id uuid.UUID) error {
	school, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.repo.ActiveStudentCount(ctx, school.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.Conflict("school_has_students")
	}
	if err := s.repo.SoftDelete(ctx, school.ID); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionDelete,
		Resource:   audit.ResourceSchool,
		ResourceID: school.ID.String(),
	})
	return nil
}

// CreateAdmin provisions a school-admin account bound to the school.
func (s *Service) CreateAdmin(ctx context.Context, actor *shared.Principal, schoolID uuid.UUID, firstName, lastName, email, password string) (*user.User, error) {
	school, err := s.Get(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("school: hash admin password: %w", err)
	}
	admin := &user.User{
		ID:           uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         shared.RoleSchoolAdmin,
		SchoolID:     school.ID,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionCreate,
		Resource:   audit.ResourceUser,
		ResourceID: admin.ID.String(),
		Meta:       map[string]any{"school": school.ID.String()},
	})
	return admin, nil
}

// Changes carries optional field updates; nil pointers leave the current
// value untouched.
type Changes struct {
	Name        *string
	Code        *string
	Address     *string
	Phone       *string
	Email       *string
	MaxCapacity *int
}

func (c Changes) apply(s *School) {
	if c.Name != nil {
		s.Name = *c.Name
	}
	if c.Code != nil {
		s.Code = *c.Code
	}
	if c.Address != nil {
		s.Address = *c.Address
	}
	if c.Phone != nil {
		s.Phone = *c.Phone
	}
	if c.Email != nil {
		s.Email = *c.Email
	}
	if c.MaxCapacity != nil {
		s.MaxCapacity = *c.MaxCapacity
	}
}
