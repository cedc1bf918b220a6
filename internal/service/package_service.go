package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/lifecycle"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	"github.com/ja-yanga/keep-ph-api/internal/repository"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type packageRepository interface {
	FindByID(ctx context.Context, id string) (*models.Package, error)
	FindOwner(ctx context.Context, packageID string) (string, error)
	Create(ctx context.Context, pkg *models.Package) error
	Transition(ctx context.Context, params repository.TransitionParams) error
	List(ctx context.Context, filter models.PackageFilter) ([]dto.PackageItem, int, error)
	AttachFile(ctx context.Context, file *models.PackageFile) error
	ListFiles(ctx context.Context, packageID string) ([]models.PackageFile, error)
	CountScanFiles(ctx context.Context, registrationID string) (int, error)
	ListStatusEvents(ctx context.Context, packageID string) ([]models.PackageStatusEvent, error)
}

type packageAddressRepository interface {
	FindByID(ctx context.Context, id string) (*models.Address, error)
}

type packageRegistrationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
}

type packageAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type packageCacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// PackageLimits carries the workflow quotas enforced by the service.
type PackageLimits struct {
	MaxScanFiles int
}

// PackageService orchestrates package intake and lifecycle transitions.
type PackageService struct {
	repo          packageRepository
	addresses     packageAddressRepository
	registrations packageRegistrationRepository
	audit         packageAuditWriter
	cache         packageCacheInvalidator
	validator     *validator.Validate
	logger        *zap.Logger
	limits        PackageLimits
}

// NewPackageService constructs a PackageService instance.
func NewPackageService(
	repo packageRepository,
	addresses packageAddressRepository,
	registrations packageRegistrationRepository,
	audit packageAuditWriter,
	cache packageCacheInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
	limits PackageLimits,
) *PackageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if limits.MaxScanFiles <= 0 {
		limits.MaxScanFiles = 20
	}
	return &PackageService{
		repo:          repo,
		addresses:     addresses,
		registrations: registrations,
		audit:         audit,
		cache:         cache,
		validator:     validate,
		logger:        logger,
		limits:        limits,
	}
}

// Intake registers a newly received physical item against an active
// registration. Admin only; the package starts in STORED.
func (s *PackageService) Intake(ctx context.Context, claims *models.JWTClaims, req dto.CreatePackageRequest) (*models.Package, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid package payload")
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

	pkg := &models.Package{
		RegistrationID: req.RegistrationID,
		PackageType:    models.PackageType(req.PackageType),
		Description:    req.Description,
		Status:         models.StatusStored,
	}
	if err := s.repo.Create(ctx, pkg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create package")
	}

	if req.PhotoPath != nil && *req.PhotoPath != "" {
		file := &models.PackageFile{
			PackageID:  pkg.ID,
			Kind:       models.FileKindPhoto,
			Path:       *req.PhotoPath,
			MimeType:   "image/jpeg",
			UploadedBy: claims.UserID,
		}
		if err := s.repo.AttachFile(ctx, file); err != nil {
			s.logger.Warn("failed to attach intake photo", zap.String("package_id", pkg.ID), zap.Error(err))
		}
	}

	s.recordAudit(ctx, claims, models.AuditActionPackageIntake, pkg.ID, map[string]string{"status": string(pkg.Status)})
	s.invalidateDashboard(ctx)

	return pkg, nil
}

// Do applies one lifecycle action to a package. Ownership, actor role,
// state machine rules, and action-specific payload requirements are all
// enforced here; the conditional update in the repository guards
// against concurrent transitions.
func (s *PackageService) Do(ctx context.Context, claims *models.JWTClaims, packageID string, req dto.PackageActionRequest) (*models.Package, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid action payload")
	}

	action := lifecycle.Action(req.Action)
	if !lifecycle.Known(action) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown package action")
	}

	pkg, err := s.repo.FindByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "package not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load package")
	}

	actor := lifecycle.ActorAdmin
	if claims.Role == models.RoleCustomer {
		actor = lifecycle.ActorCustomer
		ownerID, err := s.repo.FindOwner(ctx, packageID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve package owner")
		}
		if ownerID != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "package belongs to another customer")
		}
	}

	next, err := lifecycle.Next(pkg.Status, action, actor)
	if err != nil {
		return nil, err
	}

	params := repository.TransitionParams{
		PackageID:  pkg.ID,
		FromStatus: pkg.Status,
		ToStatus:   next,
		Action:     string(action),
		ActorID:    claims.UserID,
	}

	switch action {
	case lifecycle.ActionRequestRelease:
		if err := s.applyReleaseDetails(ctx, claims, req, &params); err != nil {
			return nil, err
		}
	case lifecycle.ActionRequestScan:
		if err := s.checkScanAllowed(ctx, pkg); err != nil {
			return nil, err
		}
	case lifecycle.ActionCancelRequest, lifecycle.ActionRejectRequest:
		// returning to STORED clears any staged release details
		params.AddressID = nil
		params.ProxyName = nil
		params.ProxyMobile = nil
	case lifecycle.ActionCompleteScan:
		if err := s.requireFile(ctx, pkg.ID, models.FileKindScan, "scan completion requires a scanned document on file"); err != nil {
			return nil, err
		}
	case lifecycle.ActionConfirmReceipt:
		if err := s.requireFile(ctx, pkg.ID, models.FileKindProof, "receipt confirmation requires a release proof on file"); err != nil {
			return nil, err
		}
		params.AddressID = pkg.ReleaseAddressID
		params.ProxyName = pkg.ProxyName
		params.ProxyMobile = pkg.ProxyMobile
	default:
		params.AddressID = pkg.ReleaseAddressID
		params.ProxyName = pkg.ProxyName
		params.ProxyMobile = pkg.ProxyMobile
	}

	if err := s.repo.Transition(ctx, params); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "package status changed, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}

	pkg.Status = next
	pkg.ReleaseAddressID = params.AddressID
	pkg.ProxyName = params.ProxyName
	pkg.ProxyMobile = params.ProxyMobile

	s.recordAudit(ctx, claims, models.AuditActionPackageAction, pkg.ID, map[string]string{
		"action": string(action),
		"from":   string(params.FromStatus),
		"to":     string(next),
	})
	s.invalidateDashboard(ctx)

	return pkg, nil
}

// applyReleaseDetails stages the delivery target for a release request.
// A saved address and proxy pickup are alternatives: proxy pickup needs
// a name plus contact mobile and stands on its own; otherwise an
// address is mandatory.
func (s *PackageService) applyReleaseDetails(ctx context.Context, claims *models.JWTClaims, req dto.PackageActionRequest, params *repository.TransitionParams) error {
	if req.PickupOnBehalf() {
		if req.ProxyMobile == nil || *req.ProxyMobile == "" {
			return appErrors.Clone(appErrors.ErrValidation, "proxy pickup requires a contact mobile")
		}
		params.ProxyName = req.ProxyName
		params.ProxyMobile = req.ProxyMobile
	} else if req.AddressID == nil || *req.AddressID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "release requires a saved address or proxy pickup details")
	}

	if req.AddressID != nil && *req.AddressID != "" {
		addr, err := s.addresses.FindByID(ctx, *req.AddressID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "release address not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load release address")
		}
		if addr.UserID != claims.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "address belongs to another customer")
		}
		params.AddressID = req.AddressID
	}
	return nil
}

func (s *PackageService) requireFile(ctx context.Context, packageID string, kind models.PackageFileKind, msg string) error {
	files, err := s.repo.ListFiles(ctx, packageID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load package files")
	}
	for _, f := range files {
		if f.Kind == kind {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, msg)
}

func (s *PackageService) checkScanAllowed(ctx context.Context, pkg *models.Package) error {
	if pkg.PackageType == models.PackageTypeParcel {
		return appErrors.Clone(appErrors.ErrValidation, "parcels cannot be scanned")
	}
	count, err := s.repo.CountScanFiles(ctx, pkg.RegistrationID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count scanned documents")
	}
	if count >= s.limits.MaxScanFiles {
		return appErrors.Clone(appErrors.ErrStorageFull, "scan storage quota reached")
	}
	return nil
}

// Get returns one package with its media and enforces ownership for
// customers.
func (s *PackageService) Get(ctx context.Context, claims *models.JWTClaims, packageID string) (*dto.PackageItem, error) {
	pkg, err := s.repo.FindByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "package not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load package")
	}

	if claims.Role == models.RoleCustomer {
		ownerID, err := s.repo.FindOwner(ctx, packageID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve package owner")
		}
		if ownerID != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "package belongs to another customer")
		}
	}

	files, err := s.repo.ListFiles(ctx, packageID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load package files")
	}

	return &dto.PackageItem{
		ID:             pkg.ID,
		RegistrationID: pkg.RegistrationID,
		PackageType:    pkg.PackageType,
		Status:         pkg.Status,
		Description:    pkg.Description,
		ReceivedAt:     pkg.ReceivedAt,
		Files:          files,
	}, nil
}

// List returns packages matching the filter. Customers are pinned to
// their own packages regardless of the requested filter.
func (s *PackageService) List(ctx context.Context, claims *models.JWTClaims, filter models.PackageFilter) ([]dto.PackageItem, *models.Pagination, error) {
	if claims.Role == models.RoleCustomer {
		filter.UserID = claims.UserID
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list packages")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// AttachFile stores a media record against a package. Scan uploads are
// bounded by the per-registration quota.
func (s *PackageService) AttachFile(ctx context.Context, claims *models.JWTClaims, packageID string, req dto.AttachFileRequest) (*models.PackageFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid file payload")
	}

	pkg, err := s.repo.FindByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "package not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load package")
	}

	kind := models.PackageFileKind(req.Kind)
	if kind == models.FileKindScan {
		count, err := s.repo.CountScanFiles(ctx, pkg.RegistrationID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count scanned documents")
		}
		if count >= s.limits.MaxScanFiles {
			return nil, appErrors.Clone(appErrors.ErrStorageFull, "scan storage quota reached")
		}
	}

	file := &models.PackageFile{
		PackageID:  packageID,
		Kind:       kind,
		Path:       req.Path,
		MimeType:   req.MimeType,
		SizeBytes:  req.Size,
		UploadedBy: claims.UserID,
	}
	if err := s.repo.AttachFile(ctx, file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file record")
	}

	return file, nil
}

// History returns the transition trail for a package.
func (s *PackageService) History(ctx context.Context, claims *models.JWTClaims, packageID string) ([]models.PackageStatusEvent, error) {
	if claims.Role == models.RoleCustomer {
		ownerID, err := s.repo.FindOwner(ctx, packageID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "package not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve package owner")
		}
		if ownerID != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "package belongs to another customer")
		}
	}

	events, err := s.repo.ListStatusEvents(ctx, packageID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status events")
	}
	return events, nil
}

func (s *PackageService) recordAudit(ctx context.Context, claims *models.JWTClaims, action, resourceID string, values map[string]string) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(values)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     action,
		Resource:   "package",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record package audit log", zap.Error(err))
	}
}

func (s *PackageService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
