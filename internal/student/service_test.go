package student

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyceum-app/lyceum/internal/classroom"
	"github.com/lyceum-app/lyceum/internal/school"
	"github.com/lyceum-app/lyceum/internal/shared"
)

type mockRepo struct {
	students map[uuid.UUID]*Student
	created  []*Student
}

func newMockRepo() *mockRepo {
	return &mockRepo{students: make(map[uuid.UUID]*Student)}
}

func (m *mockRepo) Create(_ context.Context, s *Student) error {
	cp := *s
	m.students[s.ID] = &cp
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, shared.NotFound("student_not_found")
	}
	cp := *s
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, schoolID uuid.UUID, page shared.Page) ([]Student, error) {
	var out []Student
	for _, s := range m.students {
		if s.SchoolID == schoolID && s.DeletedAt == nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockRepo) Count(_ context.Context, schoolID uuid.UUID) (int, error) {
	n := 0
	for _, s := range m.students {
		if s.SchoolID == schoolID && s.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) Update(_ context.Context, s *Student) error {
	cp := *s
	m.students[s.ID] = &cp
	return nil
}

func (m *mockRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if s, ok := m.students[id]; ok {
		now := time.Now()
		s.DeletedAt = &now
	}
	return nil
}

type mockSchoolRepo struct {
	schools map[uuid.UUID]*school.School
}

func (m *mockSchoolRepo) Create(context.Context, *school.School) error { return nil }
func (m *mockSchoolRepo) Update(context.Context, *school.School) error { return nil }
func (m *mockSchoolRepo) SoftDelete(context.Context, uuid.UUID) error  { return nil }
func (m *mockSchoolRepo) ActiveStudentCount(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

func (m *mockSchoolRepo) Get(_ context.Context, id uuid.UUID) (*school.School, error) {
	s, ok := m.schools[id]
	if !ok {
		return nil, shared.NotFound("school_not_found")
	}
	return s, nil
}

type mockClassroomRepo struct {
	classrooms map[uuid.UUID]*classroom.Classroom
}

func (m *mockClassroomRepo) Create(context.Context, *classroom.Classroom) error { return nil }
func (m *mockClassroomRepo) Update(context.Context, *classroom.Classroom) error { return nil }
func (m *mockClassroomRepo) SoftDelete(context.Context, uuid.UUID) error        { return nil }
func (m *mockClassroomRepo) List(context.Context, uuid.UUID, shared.Page) ([]classroom.Classroom, error) {
	return nil, nil
}
func (m *mockClassroomRepo) Count(context.Context, uuid.UUID) (int, error) { return 0, nil }
func (m *mockClassroomRepo) ActiveStudentCount(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

func (m *mockClassroomRepo) Get(_ context.Context, id uuid.UUID) (*classroom.Classroom, error) {
	c, ok := m.classrooms[id]
	if !ok {
		return nil, shared.NotFound("classroom_not_found")
	}
	return c, nil
}

type mockSequences struct {
	next int
}

func (m *mockSequences) Next(_ context.Context, _, _ string, _ int) (int, error) {
	m.next++
	return m.next, nil
}

func newTestService(repo *mockRepo, schools *mockSchoolRepo, classrooms *mockClassroomRepo, seqs *mockSequences) *Service {
	svc := NewService(repo, schools, classrooms, seqs, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return svc
}

func admin(schoolID uuid.UUID) *shared.Principal {
	return &shared.Principal{UserID: uuid.New(), Role: shared.RoleSchoolAdmin, SchoolID: schoolID}
}

func TestCreateMintsStudentNumber(t *testing.T) {
	schoolID := uuid.New()
	schools := &mockSchoolRepo{schools: map[uuid.UUID]*school.School{
		schoolID: {ID: schoolID, Code: "GWH"},
	}}
	repo := newMockRepo()
	svc := newTestService(repo, schools, &mockClassroomRepo{}, &mockSequences{next: 6})

	created, err := svc.Create(context.Background(), admin(schoolID), &Student{
		SchoolID:  schoolID,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "GWH-2026-0007", created.StudentNumber)
	assert.NotEqual(t, uuid.Nil, created.ID)
	require.Len(t, repo.created, 1)
}

func TestCreateRejectsForeignSchool(t *testing.T) {
	schoolID := uuid.New()
	schools := &mockSchoolRepo{schools: map[uuid.UUID]*school.School{
		schoolID: {ID: schoolID, Code: "GWH"},
	}}
	svc := newTestService(newMockRepo(), schools, &mockClassroomRepo{}, &mockSequences{})

	_, err := svc.Create(context.Background(), admin(uuid.New()), &Student{SchoolID: schoolID})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCreateRejectsDeletedSchool(t *testing.T) {
	schoolID := uuid.New()
	now := time.Now()
	schools := &mockSchoolRepo{schools: map[uuid.UUID]*school.School{
		schoolID: {ID: schoolID, Code: "GWH", DeletedAt: &now},
	}}
	svc := newTestService(newMockRepo(), schools, &mockClassroomRepo{}, &mockSequences{})

	_, err := svc.Create(context.Background(), admin(schoolID), &Student{SchoolID: schoolID})
	var appErr *shared.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "school_not_found", appErr.Code)
}

func TestCreateRejectsClassroomFromOtherSchool(t *testing.T) {
	schoolID := uuid.New()
	classroomID := uuid.New()
	schools := &mockSchoolRepo{schools: map[uuid.UUID]*school.School{
		schoolID: {ID: schoolID, Code: "GWH"},
	}}
	classrooms := &mockClassroomRepo{classrooms: map[uuid.UUID]*classroom.Classroom{
		classroomID: {ID: classroomID, SchoolID: uuid.New(), Name: "1-A"},
	}}
	svc := newTestService(newMockRepo(), schools, classrooms, &mockSequences{})

	_, err := svc.Create(context.Background(), admin(schoolID), &Student{
		SchoolID:    schoolID,
		ClassroomID: classroomID,
	})
	var appErr *shared.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "classroom_not_found", appErr.Code)
}

func TestGetHidesSoftDeleted(t *testing.T) {
	schoolID := uuid.New()
	repo := newMockRepo()
	now := time.Now()
	id := uuid.New()
	repo.students[id] = &Student{ID: id, SchoolID: schoolID, DeletedAt: &now}
	svc := newTestService(repo, &mockSchoolRepo{}, &mockClassroomRepo{}, &mockSequences{})

	_, err := svc.Get(context.Background(), admin(schoolID), id)
	var appErr *shared.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "student_not_found", appErr.Code)
}

func TestUpdateReassignsClassroomWithinSchool(t *testing.T) {
	schoolID := uuid.New()
	classroomID := uuid.New()
	repo := newMockRepo()
	id := uuid.New()
	repo.students[id] = &Student{ID: id, SchoolID: schoolID, FirstName: "Ada"}
	classrooms := &mockClassroomRepo{classrooms: map[uuid.UUID]*classroom.Classroom{
		classroomID: {ID: classroomID, SchoolID: schoolID, Name: "2-B"},
	}}
	svc := newTestService(repo, &mockSchoolRepo{}, classrooms, &mockSequences{})

	updated, err := svc.Update(context.Background(), admin(schoolID), id, Changes{ClassroomID: &classroomID})
	require.NoError(t, err)
	assert.Equal(t, classroomID, updated.ClassroomID)
	assert.Equal(t, "Ada", updated.FirstName)
}

func TestListScopedActorIsPinnedToOwnSchool(t *testing.T) {
	own := uuid.New()
	other := uuid.New()
	repo := newMockRepo()
	mine := uuid.New()
	repo.students[mine] = &Student{ID: mine, SchoolID: own}
	theirs := uuid.New()
	repo.students[theirs] = &Student{ID: theirs, SchoolID: other}
	svc := newTestService(repo, &mockSchoolRepo{}, &mockClassroomRepo{}, &mockSequences{})

	students, total, err := svc.List(context.Background(), admin(own), other, shared.Page{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, mine, students[0].ID)
}

func TestDeleteSoftDeletes(t *testing.T) {
	schoolID := uuid.New()
	repo := newMockRepo()
	id := uuid.New()
	repo.students[id] = &Student{ID: id, SchoolID: schoolID}
	svc := newTestService(repo, &mockSchoolRepo{}, &mockClassroomRepo{}, &mockSequences{})

	require.NoError(t, svc.Delete(context.Background(), admin(schoolID), id))
	assert.NotNil(t, repo.students[id].DeletedAt)
}