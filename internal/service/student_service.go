package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupay/edupay-api/internal/models"
	appErrors "github.com/edupay/edupay-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.Student, error)
	ExistsByStudentID(ctx context.Context, studentID string, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	CountFees(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	StudentID   string     `json:"student_id" validate:"required"`
	FirstName   string     `json:"first_name" validate:"required"`
	LastName    string     `json:"last_name" validate:"required"`
	Email       string     `json:"email" validate:"omitempty,email"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	Grade       string     `json:"grade"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      string     `json:"gender"`
}

// UpdateStudentRequest holds payload for updating students. Nil fields are
// left untouched.
type UpdateStudentRequest struct {
	StudentID   *string    `json:"student_id" validate:"omitempty,min=1"`
	FirstName   *string    `json:"first_name" validate:"omitempty,min=1"`
	LastName    *string    `json:"last_name" validate:"omitempty,min=1"`
	Email       *string    `json:"email" validate:"omitempty,email"`
	Phone       *string    `json:"phone"`
	Address     *string    `json:"address"`
	Grade       *string    `json:"grade"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      *string    `json:"gender"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get resolves a student through an ordered list of lookup strategies: the
// internal identifier, then the external student number, then the caller
// supplied fallback identifier (x-student-id header) matched against both.
// The first strategy that produces a record wins.
func (s *StudentService) Get(ctx context.Context, id string, fallbackID string) (*models.Student, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student identifier is required")
	}

	lookups := []func(context.Context) (*models.Student, error){
		func(ctx context.Context) (*models.Student, error) { return s.repo.FindByID(ctx, id) },
		func(ctx context.Context) (*models.Student, error) { return s.repo.FindByStudentID(ctx, id) },
	}
	if fallbackID != "" && fallbackID != id {
		lookups = append(lookups,
			func(ctx context.Context) (*models.Student, error) { return s.repo.FindByID(ctx, fallbackID) },
			func(ctx context.Context) (*models.Student, error) { return s.repo.FindByStudentID(ctx, fallbackID) },
		)
	}

	for _, lookup := range lookups {
		student, err := lookup(ctx)
		if err == nil {
			return student, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

// Create registers a new student, enforcing student_id and email uniqueness.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student_id, first_name and last_name are required")
	}
	if req.Email == "" {
		req.Email = fmt.Sprintf("%s@example.com", strings.ToLower(req.StudentID))
	}

	if err := s.checkUniqueness(ctx, req.StudentID, req.Email, ""); err != nil {
		return nil, err
	}

	student := &models.Student{
		StudentID:   req.StudentID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Grade:       req.Grade,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update applies a partial field patch to an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if req.StudentID != nil {
		student.StudentID = *req.StudentID
	}
	if req.FirstName != nil {
		student.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		student.LastName = *req.LastName
	}
	if req.Email != nil {
		student.Email = *req.Email
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.Address != nil {
		student.Address = *req.Address
	}
	if req.Grade != nil {
		student.Grade = *req.Grade
	}
	if req.DateOfBirth != nil {
		student.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != nil {
		student.Gender = *req.Gender
	}

	if err := s.checkUniqueness(ctx, student.StudentID, student.Email, id); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student. Deletion is blocked while fee records reference
// the student so the ledger never holds orphaned obligations.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	feeCount, err := s.repo.CountFees(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student fees")
	}
	if feeCount > 0 {
		return appErrors.Clone(appErrors.ErrDependentRecords, "student has fee records; settle or remove them first")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

func (s *StudentService) checkUniqueness(ctx context.Context, studentID, email, excludeID string) error {
	exists, err := s.repo.ExistsByStudentID(ctx, studentID, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student_id")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "student_id already exists")
	}
	exists, err = s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}
	return nil
}
