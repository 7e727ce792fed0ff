package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupay/edupay-api/internal/models"
	appErrors "github.com/edupay/edupay-api/pkg/errors"
)

type feeRepository interface {
	CreateFeeType(ctx context.Context, feeType *models.FeeType) error
	ListFeeTypes(ctx context.Context) ([]models.FeeType, error)
	FindFeeTypeByID(ctx context.Context, id string) (*models.FeeType, error)
	CountFeesByType(ctx context.Context, feeTypeID string) (int, error)
	DeleteFeeType(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, fee *models.Fee) error
	FindByID(ctx context.Context, id string) (*models.FeeDetail, error)
	List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, int, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.FeeDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.FeeStatus) (bool, error)
	CountPayments(ctx context.Context, feeID string) (int, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type feeStudentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateFeeTypeRequest holds payload for creating fee categories.
type CreateFeeTypeRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// CreateFeeRequest holds payload for assigning a fee to a student.
type CreateFeeRequest struct {
	StudentID string    `json:"student_id" validate:"required"`
	FeeTypeID string    `json:"fee_type_id" validate:"required"`
	Amount    float64   `json:"amount" validate:"required,gt=0"`
	DueDate   time.Time `json:"due_date" validate:"required"`
}

// FeeService handles fee and fee type use-cases.
type FeeService struct {
	repo      feeRepository
	students  feeStudentLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService constructs the fee service.
func NewFeeService(repo feeRepository, students feeStudentLookup, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{repo: repo, students: students, validator: validate, logger: logger}
}

// CreateFeeType registers a new fee category.
func (s *FeeService) CreateFeeType(ctx context.Context, req CreateFeeTypeRequest) (*models.FeeType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name is required")
	}
	feeType := &models.FeeType{Name: req.Name, Description: req.Description}
	if err := s.repo.CreateFeeType(ctx, feeType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee type")
	}
	return feeType, nil
}

// ListFeeTypes returns all fee categories, newest first.
func (s *FeeService) ListFeeTypes(ctx context.Context) ([]models.FeeType, error) {
	feeTypes, err := s.repo.ListFeeTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee types")
	}
	return feeTypes, nil
}

// DeleteFeeType removes a fee category unless fees still reference it.
func (s *FeeService) DeleteFeeType(ctx context.Context, id string) error {
	if _, err := s.repo.FindFeeTypeByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "fee type not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee type")
	}
	count, err := s.repo.CountFeesByType(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check fee type usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrDependentRecords, "fee type is referenced by existing fees")
	}
	deleted, err := s.repo.DeleteFeeType(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete fee type")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "fee type not found")
	}
	return nil
}

// Create assigns a fee to a student. The referenced student and fee type
// must both exist.
func (s *FeeService) Create(ctx context.Context, req CreateFeeRequest) (*models.FeeDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student_id, fee_type_id, a positive amount and due_date are required")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.repo.FindFeeTypeByID(ctx, req.FeeTypeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee type")
	}

	fee := &models.Fee{
		StudentID: req.StudentID,
		FeeTypeID: req.FeeTypeID,
		Amount:    req.Amount,
		DueDate:   req.DueDate,
		Status:    models.FeeStatusPending,
	}
	if err := s.repo.Create(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee")
	}
	return s.Get(ctx, fee.ID)
}

// Get returns a single fee with its fee type details.
func (s *FeeService) Get(ctx context.Context, id string) (*models.FeeDetail, error) {
	fee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	return fee, nil
}

// List returns fees matching the filter, ordered by due date.
func (s *FeeService) List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of pending, partial, paid")
	}
	fees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fees")
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
	return fees, pagination, nil
}

// ListByStudent returns all fees for one student ordered by due date.
func (s *FeeService) ListByStudent(ctx context.Context, studentID string) ([]models.FeeDetail, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	fees, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student fees")
	}
	return fees, nil
}

// UpdateStatus overrides a fee's status. The payment flow keeps status in
// step with the ledger; this exists for administrative corrections.
func (s *FeeService) UpdateStatus(ctx context.Context, id string, status models.FeeStatus) (*models.FeeDetail, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of pending, partial, paid")
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update fee status")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
	}
	return s.Get(ctx, id)
}

// Delete removes a fee unless payments have been recorded against it.
func (s *FeeService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	count, err := s.repo.CountPayments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check fee payments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrDependentRecords, "fee has recorded payments")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete fee")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "fee not found")
	}
	return nil
}
