package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type registrationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	Create(ctx context.Context, reg *models.Registration) error
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error)
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	FindLocation(ctx context.Context, id string) (*models.Location, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
}

type registrationKYCRepository interface {
	FindByUser(ctx context.Context, userID string) (*models.KYCRecord, error)
}

type registrationAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RegistrationService manages plan subscriptions and the expiry sweep.
type RegistrationService struct {
	repo      registrationRepository
	kyc       registrationKYCRepository
	audit     registrationAuditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(repo registrationRepository, kyc registrationKYCRepository, audit registrationAuditWriter, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &RegistrationService{repo: repo, kyc: kyc, audit: audit, validator: validate, logger: logger}
}

// Create subscribes the caller to a plan. Registration requires a
// verified identity.
func (s *RegistrationService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateRegistrationRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	record, err := s.kyc.FindByUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "identity verification required before registering")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load kyc record")
	}
	if record.Status != models.KYCVerified {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "identity verification required before registering")
	}

	if _, err := s.repo.FindLocation(ctx, req.LocationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "location not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}

	reg := &models.Registration{
		UserID:     claims.UserID,
		LocationID: req.LocationID,
		PlanName:   req.PlanName,
		Months:     req.Months,
		LockerQty:  req.LockerQty,
		Status:     models.RegistrationActive,
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}

	if s.audit != nil {
		payload, _ := json.Marshal(map[string]string{"plan": req.PlanName, "location_id": req.LocationID})
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionRegistration,
			Resource:   "registration",
			ResourceID: &reg.ID,
			NewValues:  payload,
		}); err != nil {
			s.logger.Warn("failed to record registration audit log", zap.Error(err))
		}
	}

	return reg, nil
}

// Get returns a registration; customers may only see their own.
func (s *RegistrationService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if claims.Role == models.RoleCustomer && reg.UserID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "registration belongs to another customer")
	}
	return reg, nil
}

// List returns registrations. Customers are pinned to their own.
func (s *RegistrationService) List(ctx context.Context, claims *models.JWTClaims, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	if claims.Role == models.RoleCustomer {
		filter.UserID = claims.UserID
	}

	regs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return regs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Locations returns all mailroom sites.
func (s *RegistrationService) Locations(ctx context.Context) ([]models.Location, error) {
	locations, err := s.repo.ListLocations(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list locations")
	}
	return locations, nil
}

// ExpirySweep flips ACTIVE registrations past their purchased months to
// EXPIRED. Invoked by the background queue and the admin sync endpoint.
func (s *RegistrationService) ExpirySweep(ctx context.Context) (int64, error) {
	affected, err := s.repo.MarkExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep expired registrations")
	}
	if affected > 0 {
		s.logger.Info("registration expiry sweep completed", zap.Int64("expired", affected))
	}
	return affected, nil
}
