package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	"github.com/ja-yanga/keep-ph-api/internal/repository"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type lockerRepository interface {
	FindByID(ctx context.Context, id string) (*models.Locker, error)
	List(ctx context.Context, filter models.LockerFilter) ([]models.Locker, int, error)
	Assign(ctx context.Context, assignment *models.LockerAssignment) error
	Unassign(ctx context.Context, assignmentID string) error
	FindAssignment(ctx context.Context, id string) (*models.LockerAssignment, error)
	ListAssignments(ctx context.Context, registrationID string) ([]models.LockerAssignment, error)
	CountAssignments(ctx context.Context, registrationID string) (int, error)
}

type lockerRegistrationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
}

type lockerAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// LockerLimits bounds locker assignments per registration.
type LockerLimits struct {
	MaxPerRegistration int
}

// LockerService manages the locker assignment ledger.
type LockerService struct {
	repo          lockerRepository
	registrations lockerRegistrationRepository
	audit         lockerAuditWriter
	validator     *validator.Validate
	logger        *zap.Logger
	limits        LockerLimits
}

// NewLockerService constructs a LockerService instance.
func NewLockerService(repo lockerRepository, registrations lockerRegistrationRepository, audit lockerAuditWriter, validate *validator.Validate, logger *zap.Logger, limits LockerLimits) *LockerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if limits.MaxPerRegistration <= 0 {
		limits.MaxPerRegistration = 3
	}
	return &LockerService{repo: repo, registrations: registrations, audit: audit, validator: validate, logger: logger, limits: limits}
}

// List returns lockers matching the filter.
func (s *LockerService) List(ctx context.Context, filter models.LockerFilter) ([]models.Locker, *models.Pagination, error) {
	lockers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lockers")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}

	return lockers, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Assign claims a locker for a registration. The registration must be
// active, under its purchased locker quantity, and the locker still
// available when the conditional claim lands.
func (s *LockerService) Assign(ctx context.Context, claims *models.JWTClaims, req dto.AssignLockerRequest) (*models.LockerAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	reg, err := s.registrations.FindByID(ctx, req.RegistrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if reg.Status != models.RegistrationActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration is not active")
	}

	locker, err := s.repo.FindByID(ctx, req.LockerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "locker not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load locker")
	}
	if locker.LocationID != reg.LocationID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "locker is at a different location")
	}

	count, err := s.repo.CountAssignments(ctx, req.RegistrationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	limit := reg.LockerQty
	if limit <= 0 || limit > s.limits.MaxPerRegistration {
		limit = s.limits.MaxPerRegistration
	}
	if count >= limit {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration already holds its locker quota")
	}

	assignment := &models.LockerAssignment{
		RegistrationID: req.RegistrationID,
		LockerID:       req.LockerID,
		AssignedBy:     claims.UserID,
	}
	if err := s.repo.Assign(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrLockerClaimed) {
			return nil, appErrors.Clone(appErrors.ErrLockerUnavailable, "locker was claimed by another assignment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign locker")
	}

	s.recordAudit(ctx, claims, models.AuditActionLockerAssign, assignment.ID, map[string]string{
		"registration_id": req.RegistrationID,
		"locker_id":       req.LockerID,
	})

	return assignment, nil
}

// Unassign releases a locker back to the pool.
func (s *LockerService) Unassign(ctx context.Context, claims *models.JWTClaims, assignmentID string) error {
	if _, err := s.repo.FindAssignment(ctx, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if err := s.repo.Unassign(ctx, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release locker")
	}

	s.recordAudit(ctx, claims, models.AuditActionLockerUnassign, assignmentID, nil)
	return nil
}

// Assignments returns the active locker assignments of a registration.
// Customers may only inspect their own registrations.
func (s *LockerService) Assignments(ctx context.Context, claims *models.JWTClaims, registrationID string) ([]models.LockerAssignment, error) {
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if claims.Role == models.RoleCustomer && reg.UserID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "registration belongs to another customer")
	}

	assignments, err := s.repo.ListAssignments(ctx, registrationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

func (s *LockerService) recordAudit(ctx context.Context, claims *models.JWTClaims, action, resourceID string, values map[string]string) {
	if s.audit == nil {
		return
	}
	var payload []byte
	if values != nil {
		payload, _ = json.Marshal(values)
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     action,
		Resource:   "locker",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record locker audit log", zap.Error(err))
	}
}
