package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lyceum-app/lyceum/internal/app"
	"github.com/lyceum-app/lyceum/internal/audit"
	"github.com/lyceum-app/lyceum/internal/auth"
	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/classroom"
	"github.com/lyceum-app/lyceum/internal/policy"
	"github.com/lyceum-app/lyceum/internal/ratelimit"
	"github.com/lyceum-app/lyceum/internal/school"
	"github.com/lyceum-app/lyceum/internal/shared"
	"github.com/lyceum-app/lyceum/internal/student"
	"github.com/lyceum-app/lyceum/internal/token"
	"github.com/lyceum-app/lyceum/internal/transfer"
	"github.com/lyceum-app/lyceum/internal/user"
)

// In-memory repositories standing in for Postgres; each re-implements the
// storage guarantee the real schema provides (uniqueness on pending
// requests, compare-and-set resolution, atomic counters).

type memSessions struct {
	byToken map[string]*token.LongSession
}

func (m *memSessions) CreateSession(_ context.Context, s *token.LongSession) error {
	cp := *s
	m.byToken[s.Token] = &cp
	return nil
}

func (m *memSessions) FindByToken(_ context.Context, raw string) (*token.LongSession, error) {
	s, ok := m.byToken[raw]
	if !ok {
		return nil, shared.NotFound("token_not_found")
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) UpdateStatus(_ context.Context, id uuid.UUID, status token.SessionStatus) error {
	for _, s := range m.byToken {
		if s.ID == id {
			s.Status = status
		}
	}
	return nil
}

func (m *memSessions) MarkExpired(context.Context, time.Time) (int64, error) { return 0, nil }

type userModel = user.User

type memUserRepo struct {
	users map[uuid.UUID]*userModel
}

func (m *memUserRepo) Create(_ context.Context, u *userModel) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByEmail(_ context.Context, email string) (*userModel, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, shared.NotFound("user_not_found")
}

func (m *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*userModel, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.NotFound("user_not_found")
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) SuperadminExists(_ context.Context) (bool, error) {
	for _, u := range m.users {
		if u.Role == shared.RoleSuperadmin {
			return true, nil
		}
	}
	return false, nil
}

type memSchools struct {
	schools map[uuid.UUID]*school.School
}

func (m *memSchools) Create(_ context.Context, s *school.School) error {
	cp := *s
	m.schools[s.ID] = &cp
	return nil
}

func (m *memSchools) Get(_ context.Context, id uuid.UUID) (*school.School, error) {
	s, ok := m.schools[id]
	if !ok {
		return nil, shared.NotFound("school_not_found")
	}
	cp := *s
	return &cp, nil
}

func (m *memSchools) Update(_ context.Context, s *school.School) error { return nil }
func (m *memSchools) SoftDelete(_ context.Context, id uuid.UUID) error { return nil }
func (m *memSchools) ActiveStudentCount(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

type memClassrooms struct {
	classrooms map[uuid.UUID]*classroom.Classroom
}

func (m *memClassrooms) Create(_ context.Context, c *classroom.Classroom) error {
	cp := *c
	m.classrooms[c.ID] = &cp
	return nil
}

func (m *memClassrooms) Get(_ context.Context, id uuid.UUID) (*classroom.Classroom, error) {
	c, ok := m.classrooms[id]
	if !ok {
		return nil, shared.NotFound("classroom_not_found")
	}
	cp := *c
	return &cp, nil
}

func (m *memClassrooms) List(context.Context, uuid.UUID, shared.Page) ([]classroom.Classroom, error) {
	return nil, nil
}
func (m *memClassrooms) Count(context.Context, uuid.UUID) (int, error)          { return 0, nil }
func (m *memClassrooms) Update(context.Context, *classroom.Classroom) error     { return nil }
func (m *memClassrooms) SoftDelete(context.Context, uuid.UUID) error            { return nil }
func (m *memClassrooms) ActiveStudentCount(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

type memStudents struct {
	students map[uuid.UUID]*student.Student
}

func (m *memStudents) Create(_ context.Context, s *student.Student) error {
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *memStudents) Get(_ context.Context, id uuid.UUID) (*student.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, shared.NotFound("student_not_found")
	}
	cp := *s
	return &cp, nil
}

func (m *memStudents) List(context.Context, uuid.UUID, shared.Page) ([]student.Student, error) {
	return nil, nil
}
func (m *memStudents) Count(context.Context, uuid.UUID) (int, error) { return 0, nil }
func (m *memStudents) Update(_ context.Context, s *student.Student) error {
	cp := *s
	m.students[s.ID] = &cp
	return nil
}
func (m *memStudents) SoftDelete(context.Context, uuid.UUID) error { return nil }

type memTransfers struct {
	requests map[uuid.UUID]*transfer.TransferRequest
	students *memStudents
}

func (m *memTransfers) Create(_ context.Context, tr *transfer.TransferRequest) error {
	for _, existing := range m.requests {
		if existing.StudentID == tr.StudentID && existing.Status == transfer.StatusPending {
			return shared.Conflict("transfer_request_already_pending")
		}
	}
	cp := *tr
	m.requests[tr.ID] = &cp
	return nil
}

func (m *memTransfers) Get(_ context.Context, id uuid.UUID) (*transfer.TransferRequest, error) {
	tr, ok := m.requests[id]
	if !ok {
		return nil, shared.NotFound("transfer_request_not_found")
	}
	cp := *tr
	return &cp, nil
}

func (m *memTransfers) List(_ context.Context, schoolID uuid.UUID, _ shared.Page) ([]transfer.TransferRequest, error) {
	var out []transfer.TransferRequest
	for _, tr := range m.requests {
		if schoolID == uuid.Nil || tr.Involves(schoolID) {
			out = append(out, *tr)
		}
	}
	return out, nil
}

func (m *memTransfers) Count(_ context.Context, schoolID uuid.UUID) (int, error) {
	list, _ := m.List(context.Background(), schoolID, shared.Page{})
	return len(list), nil
}

func (m *memTransfers) Approve(_ context.Context, tr *transfer.TransferRequest, by uuid.UUID, at time.Time) (bool, error) {
	stored, ok := m.requests[tr.ID]
	if !ok || stored.Status != transfer.StatusPending {
		return false, nil
	}
	stored.Status = transfer.StatusApproved
	stored.RespondedBy = by
	stored.RespondedAt = &at
	if st, ok := m.students.students[tr.StudentID]; ok {
		st.SchoolID = tr.ToSchoolID
		st.ClassroomID = tr.ToClassroomID
	}
	return true, nil
}

func (m *memTransfers) Reject(_ context.Context, id uuid.UUID, by uuid.UUID, at time.Time) (bool, error) {
	stored, ok := m.requests[id]
	if !ok || stored.Status != transfer.StatusPending {
		return false, nil
	}
	stored.Status = transfer.StatusRejected
	stored.RespondedBy = by
	stored.RespondedAt = &at
	return true, nil
}

type memSequences struct{ next int }

func (m *memSequences) Next(context.Context, string, string, int) (int, error) {
	m.next++
	return m.next, nil
}

type env struct {
	server   *httptest.Server
	students *memStudents
	schoolA  uuid.UUID
	schoolB  uuid.UUID
	student  uuid.UUID
	class1A  uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	sessions := &memSessions{byToken: make(map[string]*token.LongSession)}
	tokens := token.NewService(sessions, token.Config{AccessSecret: []byte("e2e-secret")})

	policies := policy.Default()
	limiter := ratelimit.New(redisClient, logger)
	guard := authz.Middleware{Tokens: tokens, Policies: policies, Limiter: limiter, Logger: logger}

	var auditSink *audit.Logger

	e := &env{
		schoolA: uuid.New(),
		schoolB: uuid.New(),
		student: uuid.New(),
		class1A: uuid.New(),
	}

	users := &memUserRepo{users: make(map[uuid.UUID]*userModel)}
	seedAdmin(t, users, "root@lyceum.local", shared.RoleSuperadmin, uuid.Nil)
	seedAdmin(t, users, "a@lyceum.local", shared.RoleSchoolAdmin, e.schoolA)
	seedAdmin(t, users, "b@lyceum.local", shared.RoleSchoolAdmin, e.schoolB)

	schools := &memSchools{schools: map[uuid.UUID]*school.School{
		e.schoolA: {ID: e.schoolA, Name: "Greenwood High", Code: "GWH"},
		e.schoolB: {ID: e.schoolB, Name: "Northgate High", Code: "NTH"},
	}}
	classrooms := &memClassrooms{classrooms: map[uuid.UUID]*classroom.Classroom{
		e.class1A: {ID: e.class1A, SchoolID: e.schoolB, Name: "1-A"},
	}}
	e.students = &memStudents{students: map[uuid.UUID]*student.Student{
		e.student: {
			ID:            e.student,
			StudentNumber: "GWH-2026-0001",
			FirstName:     "Ada",
			LastName:      "Lovelace",
			Email:         "ada@example.com",
			SchoolID:      e.schoolA,
		},
	}}
	transfers := &memTransfers{requests: make(map[uuid.UUID]*transfer.TransferRequest), students: e.students}

	authHandler := auth.NewHandler(logger, auth.NewService(users, tokens, auditSink), guard)
	schoolHandler := school.NewHandler(logger, school.NewService(schools, users, auditSink), guard)
	classroomHandler := classroom.NewHandler(logger, classroom.NewService(classrooms, schools, auditSink), guard)
	studentHandler := student.NewHandler(logger, student.NewService(e.students, schools, classrooms, &memSequences{}, auditSink), guard)
	transferHandler := transfer.NewHandler(logger, transfer.NewService(transfers, e.students, schools, classrooms, auditSink), guard)

	router, err := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Guard:            guard,
		Policies:         policies,
		AuthHandler:      authHandler,
		SchoolHandler:    schoolHandler,
		ClassroomHandler: classroomHandler,
		StudentHandler:   studentHandler,
		TransferHandler:  transferHandler,
	})
	require.NoError(t, err)

	e.server = httptest.NewServer(router)
	t.Cleanup(e.server.Close)
	return e
}

func seedAdmin(t *testing.T, repo *memUserRepo, email string, role shared.Role, schoolID uuid.UUID) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("e2e password"), bcrypt.MinCost)
	require.NoError(t, err)
	id := uuid.New()
	repo.users[id] = &userModel{
		ID:           id,
		FirstName:    "Test",
		LastName:     "Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		SchoolID:     schoolID,
	}
}

func (e *env) do(t *testing.T, method, path, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (e *env) login(t *testing.T, email string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": "e2e password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login %s: %v", email, body)
	tokenStr, _ := body["accessToken"].(string)
	require.NotEmpty(t, tokenStr)
	return tokenStr
}

func TestTransferFlowEndToEnd(t *testing.T) {
	e := newEnv(t)

	adminA := e.login(t, "a@lyceum.local")
	adminB := e.login(t, "b@lyceum.local")

	// Source-school admin proposes the move.
	resp, body := e.do(t, http.MethodPost, "/api/v1/transfer-requests", adminA, map[string]any{
		"studentId":     e.student.String(),
		"toSchoolId":    e.schoolB.String(),
		"toClassroomId": e.class1A.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "propose: %v", body)
	request := body["transferRequest"].(map[string]any)
	requestID := request["id"].(string)
	assert.Equal(t, "pending", request["status"])
	snapshot := request["snapshot"].(map[string]any)
	assert.Equal(t, "GWH-2026-0001", snapshot["studentNumber"])

	// A second proposal for the same student conflicts.
	resp, body = e.do(t, http.MethodPost, "/api/v1/transfer-requests", adminA, map[string]any{
		"studentId":  e.student.String(),
		"toSchoolId": e.schoolB.String(),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "transfer_request_already_pending", body["error"])

	// The source side cannot approve its own proposal.
	resp, body = e.do(t, http.MethodPost, "/api/v1/transfer-requests/"+requestID+"/approve", adminA, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["error"])

	// The destination admin approves; the student moves atomically.
	resp, body = e.do(t, http.MethodPost, "/api/v1/transfer-requests/"+requestID+"/approve", adminB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "approve: %v", body)
	approved := body["transferRequest"].(map[string]any)
	assert.Equal(t, "approved", approved["status"])
	assert.NotEmpty(t, approved["respondedBy"])
	assert.NotEmpty(t, approved["respondedAt"])

	moved := e.students.students[e.student]
	assert.Equal(t, e.schoolB, moved.SchoolID)
	assert.Equal(t, e.class1A, moved.ClassroomID)

	// Approving again is a conflict, not a second move.
	resp, body = e.do(t, http.MethodPost, "/api/v1/transfer-requests/"+requestID+"/approve", adminB, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "transfer_request_not_pending", body["error"])
}

func TestUnauthenticatedAndUnauthorizedAccess(t *testing.T) {
	e := newEnv(t)

	// No token at all.
	resp, body := e.do(t, http.MethodGet, "/api/v1/transfer-requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])
	assert.Equal(t, float64(http.StatusUnauthorized), body["code"])

	// A school admin may not create schools.
	adminA := e.login(t, "a@lyceum.local")
	resp, body = e.do(t, http.MethodPost, "/api/v1/schools", adminA, map[string]any{
		"name":        "Rogue Academy",
		"code":        "RGA",
		"maxCapacity": 100,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["error"])
}

func TestStudentVisibilityAcrossTenants(t *testing.T) {
	e := newEnv(t)
	adminB := e.login(t, "b@lyceum.local")

	// Student still belongs to school A; school B's admin gets 403, which
	// requires the record to have been found first.
	resp, body := e.do(t, http.MethodGet, "/api/v1/students/"+e.student.String(), adminB, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["error"])

	resp, body = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/students/%s", uuid.New()), adminB, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "student_not_found", body["error"])
}

func TestLoginRateLimitHeaders(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "a@lyceum.local",
		"password": "e2e password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "10", resp.Header.Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
}
