package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupay/edupay-api/internal/models"
	appErrors "github.com/edupay/edupay-api/pkg/errors"
)

type mockStudentRepo struct {
	students   map[string]models.Student
	byNumber   map[string]string
	emails     map[string]string
	feeCounts  map[string]int
	deleted    []string
	lastFilter models.StudentFilter
	listTotal  int
	err        error
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	students := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		students = append(students, s)
	}
	return students, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	if id, ok := m.byNumber[studentID]; ok {
		return m.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByStudentID(ctx context.Context, studentID string, excludeID string) (bool, error) {
	if id, ok := m.byNumber[studentID]; ok {
		if excludeID == "" || id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	if id, ok := m.emails[email]; ok {
		if excludeID == "" || id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	if student.ID == "" {
		student.ID = "generated"
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) CountFees(ctx context.Context, id string) (int, error) {
	return m.feeCounts[id], nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := m.students[id]; !ok {
		return false, nil
	}
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return true, nil
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{byNumber: map[string]string{}, emails: map[string]string{}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		StudentID: "STD-001",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, "std-001@example.com", student.Email)
	assert.Equal(t, 1, len(repo.students))
}

func TestStudentServiceCreateMissingFields(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{StudentID: "STD-001"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.students)
}

func TestStudentServiceCreateDuplicateNumber(t *testing.T) {
	repo := &mockStudentRepo{byNumber: map[string]string{"STD-001": "other"}, emails: map[string]string{}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{StudentID: "STD-001", FirstName: "A", LastName: "B"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceGetFallsBackToStudentNumber(t *testing.T) {
	repo := &mockStudentRepo{
		students: map[string]models.Student{"uuid-1": {ID: "uuid-1", StudentID: "STD-001"}},
		byNumber: map[string]string{"STD-001": "uuid-1"},
	}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	student, err := svc.Get(context.Background(), "STD-001", "")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", student.ID)
}

func TestStudentServiceGetUsesFallbackIdentifier(t *testing.T) {
	repo := &mockStudentRepo{
		students: map[string]models.Student{"uuid-1": {ID: "uuid-1", StudentID: "STD-001"}},
		byNumber: map[string]string{"STD-001": "uuid-1"},
	}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	student, err := svc.Get(context.Background(), "unknown", "STD-001")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", student.ID)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "unknown", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdatePartialPatch(t *testing.T) {
	repo := &mockStudentRepo{
		students: map[string]models.Student{"uuid-1": {ID: "uuid-1", StudentID: "STD-001", FirstName: "Old", LastName: "Name", Email: "old@example.com"}},
		byNumber: map[string]string{"STD-001": "uuid-1"},
		emails:   map[string]string{"old@example.com": "uuid-1"},
	}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	first := "New"
	updated, err := svc.Update(context.Background(), "uuid-1", UpdateStudentRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.FirstName)
	assert.Equal(t, "Name", updated.LastName)
	assert.Equal(t, "old@example.com", updated.Email)
}

func TestStudentServiceDeleteBlockedByFees(t *testing.T) {
	repo := &mockStudentRepo{
		students:  map[string]models.Student{"uuid-1": {ID: "uuid-1"}},
		feeCounts: map[string]int{"uuid-1": 2},
	}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "uuid-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDependentRecords.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"uuid-1": {ID: "uuid-1"}}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "uuid-1")
	require.NoError(t, err)
	assert.Contains(t, repo.deleted, "uuid-1")
}
