package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:snapshot"

type dashboardRepository interface {
	Snapshot(ctx context.Context) (*models.DashboardSnapshot, error)
}

// DashboardService serves the admin dashboard snapshot through the
// cache. Workflow mutations invalidate the dashboard:* pattern, so a
// stale snapshot lives at most one TTL.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(repo dashboardRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Snapshot returns the aggregate counts, cached when possible.
func (s *DashboardService) Snapshot(ctx context.Context) (*models.DashboardSnapshot, error) {
	var cached models.DashboardSnapshot
	if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	snapshot, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard snapshot")
	}

	if err := s.cache.Set(ctx, dashboardCacheKey, snapshot, s.ttl); err != nil {
		s.logger.Warn("failed to cache dashboard snapshot", zap.Error(err))
	}

	return snapshot, nil
}
