package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lyceum-app/lyceum/internal/shared"
)

const tokenIssuer = "lyceum"

// Config holds token lifetimes and the access-token signing key.
type Config struct {
	AccessSecret []byte
	AccessTTL    time.Duration // default 1h
	SessionTTL   time.Duration // default 720h
}

// AccessClaims is the payload embedded in short-lived access tokens.
type AccessClaims struct {
	Role   string `json:"role"`
	School string `json:"school,omitempty"`
	jwt.RegisteredClaims
}

// Service issues, verifies, refreshes and revokes the two token kinds: the
// durable opaque long session and the stateless signed access token.
type Service struct {
	repo Repository
	cfg  Config
	now  func() time.Time
}

// NewService constructs a Service, applying lifetime defaults.
func NewService(repo Repository, cfg Config) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 720 * time.Hour
	}
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// CreateLongSession mints a high-entropy opaque token and persists the
// session record. The token string is the only copy handed to the caller.
func (s *Service) CreateLongSession(ctx context.Context, userID uuid.UUID, device, ip string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("token: generate: %w", err)
	}
	now := s.now().UTC()
	sess := &LongSession{
		ID:        uuid.New(),
		Token:     hex.EncodeToString(raw),
		UserID:    userID,
		Device:    device,
		IP:        ip,
		Status:    SessionActive,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return "", fmt.Errorf("token: create session: %w", err)
	}
	return sess.Token, nil
}

// CreateAccessToken signs a short-lived stateless credential carrying the
// caller's role and school claims. A random jti keeps rapid successive
// tokens for the same payload distinct.
func (s *Service) CreateAccessToken(userID uuid.UUID, role shared.Role, schoolID uuid.UUID) (string, error) {
	now := s.now()
	claims := AccessClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if schoolID != uuid.Nil {
		claims.School = schoolID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.AccessSecret)
}

// VerifyAccessToken checks signature and expiry and reconstructs the
// principal. Every failure mode is reported the same way; callers treat the
// request as unauthenticated.
func (s *Service) VerifyAccessToken(raw string) (*shared.Principal, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return s.cfg.AccessSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, shared.ErrUnauthorized
	}
	if !tok.Valid {
		return nil, shared.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, shared.ErrUnauthorized
	}
	role := shared.Role(claims.Role)
	if !role.Valid() {
		return nil, shared.ErrUnauthorized
	}
	principal := &shared.Principal{UserID: userID, Role: role}
	if claims.School != "" {
		schoolID, err := uuid.Parse(claims.School)
		if err != nil {
			return nil, shared.ErrUnauthorized
		}
		principal.SchoolID = schoolID
	}
	return principal, nil
}

// RevokeLongSession transitions a session to revoked. Revoking an already
// revoked session succeeds without a write, so logout stays idempotent.
func (s *Service) RevokeLongSession(ctx context.Context, token string) error {
	sess, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if sess.Status == SessionRevoked {
		return nil
	}
	return s.repo.UpdateStatus(ctx, sess.ID, SessionRevoked)
}

// ValidateLongSession returns the owning user for an active, unexpired
// session. Unknown and revoked tokens are indistinguishable to the caller.
func (s *Service) ValidateLongSession(ctx context.Context, token string) (uuid.UUID, error) {
	sess, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if apiErr, ok := shared.AsError(err); ok && apiErr.Status == 404 {
			return uuid.Nil, shared.ErrInvalidToken
		}
		return uuid.Nil, err
	}
	if sess.Status != SessionActive {
		return uuid.Nil, shared.ErrInvalidToken
	}
	if sess.Expired(s.now()) {
		return uuid.Nil, shared.ErrTokenExpired
	}
	return sess.UserID, nil
}
