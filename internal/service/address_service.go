package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type addressRepository interface {
	FindByID(ctx context.Context, id string) (*models.Address, error)
	ListByUser(ctx context.Context, userID string) ([]models.Address, error)
	Create(ctx context.Context, addr *models.Address) error
	Update(ctx context.Context, addr *models.Address) error
	ClearDefault(ctx context.Context, userID string) error
	Delete(ctx context.Context, id, userID string) error
}

type addressPackageRepository interface {
	CountPendingReleaseByAddress(ctx context.Context, addressID string) (int, error)
}

// AddressService manages the customer's saved release addresses.
type AddressService struct {
	repo      addressRepository
	packages  addressPackageRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAddressService constructs an AddressService instance.
func NewAddressService(repo addressRepository, packages addressPackageRepository, validate *validator.Validate, logger *zap.Logger) *AddressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &AddressService{repo: repo, packages: packages, validator: validate, logger: logger}
}

// List returns the caller's addresses, default first.
func (s *AddressService) List(ctx context.Context, claims *models.JWTClaims) ([]models.Address, error) {
	addresses, err := s.repo.ListByUser(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list addresses")
	}
	return addresses, nil
}

// Create adds a saved address for the caller.
func (s *AddressService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateAddressRequest) (*models.Address, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid address payload")
	}

	if req.IsDefault {
		if err := s.repo.ClearDefault(ctx, claims.UserID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear default address")
		}
	}

	addr := &models.Address{
		UserID:     claims.UserID,
		Label:      req.Label,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		Region:     req.Region,
		PostalCode: req.PostalCode,
		IsDefault:  req.IsDefault,
	}
	if err := s.repo.Create(ctx, addr); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create address")
	}
	return addr, nil
}

// Update edits an address the caller owns.
func (s *AddressService) Update(ctx context.Context, claims *models.JWTClaims, addressID string, req dto.UpdateAddressRequest) (*models.Address, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid address payload")
	}

	addr, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "address not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load address")
	}
	if addr.UserID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "address belongs to another customer")
	}

	if req.IsDefault && !addr.IsDefault {
		if err := s.repo.ClearDefault(ctx, claims.UserID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear default address")
		}
	}

	addr.Label = req.Label
	addr.Line1 = req.Line1
	addr.Line2 = req.Line2
	addr.City = req.City
	addr.Region = req.Region
	addr.PostalCode = req.PostalCode
	addr.IsDefault = req.IsDefault

	if err := s.repo.Update(ctx, addr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "address not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update address")
	}
	return addr, nil
}

// Delete removes an address unless a release request still references
// it.
func (s *AddressService) Delete(ctx context.Context, claims *models.JWTClaims, addressID string) error {
	addr, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "address not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load address")
	}
	if addr.UserID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "address belongs to another customer")
	}

	pending, err := s.packages.CountPendingReleaseByAddress(ctx, addressID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check release requests")
	}
	if pending > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "address is referenced by a pending release request")
	}

	if err := s.repo.Delete(ctx, addressID, claims.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "address not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete address")
	}
	return nil
}
