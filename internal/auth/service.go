// Package auth implements account bootstrap, login and the token-pair
// session flow on top of the token service.
package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lyceum-app/lyceum/internal/audit"
	"github.com/lyceum-app/lyceum/internal/shared"
	"github.com/lyceum-app/lyceum/internal/token"
	"github.com/lyceum-app/lyceum/internal/user"
)

// Service handles authentication flows.
type Service struct {
	users  user.Repository
	tokens *token.Service
	audit  *audit.Logger
}

// NewService constructs a Service.
func NewService(users user.Repository, tokens *token.Service, auditLogger *audit.Logger) *Service {
	return &Service{users: users, tokens: tokens, audit: auditLogger}
}

// LoginResult carries both halves of the token pair plus the account.
type LoginResult struct {
	User        *user.User
	AccessToken string
	LongToken   string
}

// SetupInput creates the very first superadmin account.
type SetupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// SetupSuperadmin bootstraps the first superadmin. Once one exists the
// endpoint answers 404, indistinguishable from an unknown route.
func (s *Service) SetupSuperadmin(ctx context.Context, in SetupInput) (*user.User, error) {
	exists, err := s.users.SuperadminExists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NotFound("not_found")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	u := &user.User{
		ID:           uuid.New(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         shared.RoleSuperadmin,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.Entry{
		ActorID:    u.ID,
		Action:     audit.ActionCreate,
		Resource:   audit.ResourceUser,
		ResourceID: u.ID.String(),
	})
	return u, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email
// and wrong password share one error code.
func (s *Service) Login(ctx context.Context, email, password, device, ip string) (*LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if apiErr, ok := shared.AsError(err); ok && apiErr.Status == 404 {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, shared.ErrInvalidCredentials
	}

	longToken, err := s.tokens.CreateLongSession(ctx, u.ID, device, ip)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.tokens.CreateAccessToken(u.ID, u.Role, u.SchoolID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, AccessToken: accessToken, LongToken: longToken}, nil
}

// Logout revokes the long session. Repeating a logout is a no-op success.
func (s *Service) Logout(ctx context.Context, longToken string) error {
	return s.tokens.RevokeLongSession(ctx, longToken)
}

// Refresh trades a still-valid long session for a fresh access token. The
// role and school claims are re-read from the account so a role change
// takes effect on the next refresh; a deleted account invalidates the
// session outright.
func (s *Service) Refresh(ctx context.Context, longToken string) (string, *user.User, error) {
	userID, err := s.tokens.ValidateLongSession(ctx, longToken)
	if err != nil {
		return "", nil, err
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apiErr, ok := shared.AsError(err); ok && apiErr.Status == 404 {
			return "", nil, shared.ErrInvalidToken
		}
		return "", nil, err
	}
	accessToken, err := s.tokens.CreateAccessToken(u.ID, u.Role, u.SchoolID)
	if err != nil {
		return "", nil, err
	}
	return accessToken, u, nil
}

// Me returns the authenticated account.
func (s *Service) Me(ctx context.Context, actor *shared.Principal) (*user.User, error) {
	if actor == nil {
		return nil, shared.ErrUnauthorized
	}
	return s.users.FindByID(ctx, actor.UserID)
}
