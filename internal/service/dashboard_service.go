package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edupay/edupay-api/internal/dto"
	appErrors "github.com/edupay/edupay-api/pkg/errors"
)

type summaryRepository interface {
	Summary(ctx context.Context) (*dto.DashboardSummary, error)
}

// DashboardService serves the pre-aggregated admin dashboard summary. All
// totals are computed in SQL; clients never receive raw collections to
// reduce on their own.
type DashboardService struct {
	repo     summaryRepository
	cache    *CacheService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(repo summaryRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, cacheTTL: cacheTTL}
}

// Summary returns the dashboard aggregate and reports cache utilisation.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, bool, error) {
	var cached dto.DashboardSummary
	if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute dashboard summary")
	}

	if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
	}
	return summary, false, nil
}
