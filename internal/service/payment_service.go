package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edupay/edupay-api/internal/models"
	appErrors "github.com/edupay/edupay-api/pkg/errors"
)

type paymentRepository interface {
	Record(ctx context.Context, payment *models.Payment) (*models.PaymentReceipt, error)
	ListByFee(ctx context.Context, feeID string) ([]models.Payment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error)
	Stats(ctx context.Context, since time.Time) (*models.PaymentStats, error)
}

type paymentCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type paymentStudentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// RecordPaymentRequest holds payload for recording a payment against a fee.
type RecordPaymentRequest struct {
	FeeID           string  `json:"fee_id" validate:"required"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod   string  `json:"payment_method" validate:"required"`
	ReferenceNumber *string `json:"reference_number"`
}

const (
	statsCacheKey      = "payments:stats"
	dashboardCacheKey  = "dashboard:summary"
	paymentCachePrefix = "payments:*"
)

// PaymentService handles the payment recording flow and payment queries.
type PaymentService struct {
	repo            paymentRepository
	students        paymentStudentLookup
	cache           paymentCache
	metrics         *MetricsService
	validator       *validator.Validate
	logger          *zap.Logger
	statsWindowDays int
	statsCacheTTL   time.Duration
}

// NewPaymentService constructs the payment service. statsWindowDays bounds
// the aggregate window for payment statistics; values below 1 fall back to 30.
func NewPaymentService(repo paymentRepository, students paymentStudentLookup, cache paymentCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, statsWindowDays int, statsCacheTTL time.Duration) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if statsWindowDays < 1 {
		statsWindowDays = 30
	}
	if statsCacheTTL <= 0 {
		statsCacheTTL = 5 * time.Minute
	}
	return &PaymentService{
		repo:            repo,
		students:        students,
		cache:           cache,
		metrics:         metrics,
		validator:       validate,
		logger:          logger,
		statsWindowDays: statsWindowDays,
		statsCacheTTL:   statsCacheTTL,
	}
}

// Record persists a payment and settles the owning fee's status in a single
// transaction. It returns the payment together with the fee's new status and
// running total.
func (s *PaymentService) Record(ctx context.Context, req RecordPaymentRequest) (*models.PaymentReceipt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "fee_id, a positive amount and payment_method are required")
	}

	payment := &models.Payment{
		FeeID:           req.FeeID,
		Amount:          req.Amount,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
	}
	receipt, err := s.repo.Record(ctx, payment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.invalidateCaches(ctx)
	s.metrics.RecordPayment(receipt.FeeStatus, receipt.Amount)

	s.logger.Info("payment recorded",
		zap.String("payment_id", receipt.ID),
		zap.String("fee_id", receipt.FeeID),
		zap.Float64("amount", receipt.Amount),
		zap.String("fee_status", string(receipt.FeeStatus)),
	)
	return receipt, nil
}

// ListByFee returns payments recorded against one fee, newest first.
func (s *PaymentService) ListByFee(ctx context.Context, feeID string) ([]models.Payment, error) {
	payments, err := s.repo.ListByFee(ctx, feeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// ListByStudent returns all payments across a student's fees, newest first.
func (s *PaymentService) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	payments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student payments")
	}
	return payments, nil
}

// Stats returns payment aggregates over the configured trailing window.
// Results are served from cache when fresh.
func (s *PaymentService) Stats(ctx context.Context) (*models.PaymentStats, error) {
	if s.cache != nil {
		var cached models.PaymentStats
		if hit, err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	since := time.Now().AddDate(0, 0, -s.statsWindowDays)
	stats, err := s.repo.Stats(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute payment stats")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.statsCacheTTL); err != nil {
			s.logger.Warn("failed to cache payment stats", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *PaymentService) invalidateCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{paymentCachePrefix, fmt.Sprintf("%s*", dashboardCacheKey)} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate cache", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
