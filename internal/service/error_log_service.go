package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type errorLogRepository interface {
	Create(ctx context.Context, entry *models.ErrorLog) error
	Resolve(ctx context.Context, id, adminID string) error
	List(ctx context.Context, filter models.ErrorLogFilter) ([]models.ErrorLog, int, error)
}

// ErrorLogService records server failures and serves the admin
// error console.
type ErrorLogService struct {
	repo   errorLogRepository
	logger *zap.Logger
}

// NewErrorLogService constructs an ErrorLogService instance.
func NewErrorLogService(repo errorLogRepository, logger *zap.Logger) *ErrorLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogService{repo: repo, logger: logger}
}

// Record persists a failure entry. Failures to persist are logged and
// swallowed so the original error still reaches the client.
func (s *ErrorLogService) Record(ctx context.Context, entry *models.ErrorLog) {
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to persist error log", zap.Error(err))
	}
}

// Resolve marks an entry handled.
func (s *ErrorLogService) Resolve(ctx context.Context, claims *models.JWTClaims, id string) error {
	if err := s.repo.Resolve(ctx, id, claims.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "error log entry not found or already resolved")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve error log")
	}
	return nil
}

// List returns failure entries for the admin console.
func (s *ErrorLogService) List(ctx context.Context, filter models.ErrorLogFilter) ([]models.ErrorLog, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list error logs")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return entries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
