package token

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyceum-app/lyceum/internal/shared"
	_ "github.com/lyceum-app/lyceum/testing"
)

type mockRepo struct {
	byToken map[string]*LongSession
	byID    map[uuid.UUID]*LongSession
	creates int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byToken: make(map[string]*LongSession),
		byID:    make(map[uuid.UUID]*LongSession),
	}
}

func (m *mockRepo) CreateSession(ctx context.Context, sess *LongSession) error {
	m.creates++
	copied := *sess
	m.byToken[sess.Token] = &copied
	m.byID[sess.ID] = &copied
	return nil
}

func (m *mockRepo) FindByToken(ctx context.Context, token string) (*LongSession, error) {
	sess, ok := m.byToken[token]
	if !ok {
		return nil, shared.NotFound("token_not_found")
	}
	copied := *sess
	return &copied, nil
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status SessionStatus) error {
	if sess, ok := m.byID[id]; ok {
		sess.Status = status
	}
	return nil
}

func (m *mockRepo) MarkExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, sess := range m.byID {
		if sess.Status == SessionActive && sess.ExpiresAt.Before(cutoff) {
			sess.Status = SessionExpired
			n++
		}
	}
	return n, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, Config{AccessSecret: []byte("test-secret")})
}

func TestCreateLongSession(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	tok, err := svc.CreateLongSession(context.Background(), uuid.New(), "Mozilla/5.0", "127.0.0.1")
	require.NoError(t, err)
	assert.Len(t, tok, 64, "expected 32 random bytes hex encoded")

	sess := repo.byToken[tok]
	require.NotNil(t, sess)
	assert.Equal(t, SessionActive, sess.Status)
	assert.Equal(t, "Mozilla/5.0", sess.Device)
	assert.Equal(t, "127.0.0.1", sess.IP)
	assert.True(t, sess.ExpiresAt.After(time.Now()), "expiry must be in the future at issuance")
}

func TestRevokeLongSessionIdempotent(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	tok, err := svc.CreateLongSession(context.Background(), uuid.New(), "", "")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeLongSession(context.Background(), tok))
	require.NoError(t, svc.RevokeLongSession(context.Background(), tok), "second revoke must succeed")
	assert.Equal(t, SessionRevoked, repo.byToken[tok].Status)
}

func TestRevokeLongSessionUnknownToken(t *testing.T) {
	svc := newTestService(newMockRepo())

	err := svc.RevokeLongSession(context.Background(), "no-such-token")
	apiErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "token_not_found", apiErr.Code)
	assert.Equal(t, 404, apiErr.Status)
}

func TestValidateLongSession(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	userID := uuid.New()

	tok, err := svc.CreateLongSession(context.Background(), userID, "", "")
	require.NoError(t, err)

	got, err := svc.ValidateLongSession(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestValidateLongSessionExpired(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	tok, err := svc.CreateLongSession(context.Background(), uuid.New(), "", "")
	require.NoError(t, err)

	// Stored status stays active; expiry is derived from the clock alone.
	svc.now = func() time.Time { return time.Now().Add(721 * time.Hour) }
	_, err = svc.ValidateLongSession(context.Background(), tok)
	assert.Equal(t, shared.ErrTokenExpired, err)
	assert.Equal(t, SessionActive, repo.byToken[tok].Status)
}

func TestValidateLongSessionRevokedAndMissingIndistinguishable(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	tok, err := svc.CreateLongSession(context.Background(), uuid.New(), "", "")
	require.NoError(t, err)
	require.NoError(t, svc.RevokeLongSession(context.Background(), tok))

	_, errRevoked := svc.ValidateLongSession(context.Background(), tok)
	_, errMissing := svc.ValidateLongSession(context.Background(), "unknown")
	assert.Equal(t, shared.ErrInvalidToken, errRevoked)
	assert.Equal(t, errRevoked, errMissing, "revoked and unknown tokens must be indistinguishable")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(newMockRepo())
	userID := uuid.New()
	schoolID := uuid.New()

	raw, err := svc.CreateAccessToken(userID, shared.RoleSchoolAdmin, schoolID)
	require.NoError(t, err)

	principal, err := svc.VerifyAccessToken(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, shared.RoleSchoolAdmin, principal.Role)
	assert.Equal(t, schoolID, principal.SchoolID)
}

func TestAccessTokenSuperadminHasNoSchool(t *testing.T) {
	svc := newTestService(newMockRepo())

	raw, err := svc.CreateAccessToken(uuid.New(), shared.RoleSuperadmin, uuid.Nil)
	require.NoError(t, err)

	principal, err := svc.VerifyAccessToken(raw)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, principal.SchoolID)
	assert.False(t, principal.Scoped())
}

func TestAccessTokensUniqueForIdenticalPayload(t *testing.T) {
	svc := newTestService(newMockRepo())
	userID := uuid.New()

	a, err := svc.CreateAccessToken(userID, shared.RoleSuperadmin, uuid.Nil)
	require.NoError(t, err)
	b, err := svc.CreateAccessToken(userID, shared.RoleSuperadmin, uuid.Nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "jti must keep rapid successive tokens distinct")
}

func TestVerifyAccessTokenRejectsTampering(t *testing.T) {
	svc := newTestService(newMockRepo())

	raw, err := svc.CreateAccessToken(uuid.New(), shared.RoleSuperadmin, uuid.Nil)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

	_, err = svc.VerifyAccessToken(tampered)
	assert.Equal(t, shared.ErrUnauthorized, err)
}

func TestVerifyAccessTokenRejectsWrongKey(t *testing.T) {
	issuer := NewService(newMockRepo(), Config{AccessSecret: []byte("key-a")})
	verifier := NewService(newMockRepo(), Config{AccessSecret: []byte("key-b")})

	raw, err := issuer.CreateAccessToken(uuid.New(), shared.RoleSuperadmin, uuid.Nil)
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(raw)
	assert.Equal(t, shared.ErrUnauthorized, err)
}

func TestVerifyAccessTokenRejectsExpired(t *testing.T) {
	svc := newTestService(newMockRepo())

	raw, err := svc.CreateAccessToken(uuid.New(), shared.RoleSuperadmin, uuid.Nil)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.VerifyAccessToken(raw)
	assert.Equal(t, shared.ErrUnauthorized, err)
}
