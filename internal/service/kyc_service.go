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
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type kycRepository interface {
	FindByUser(ctx context.Context, userID string) (*models.KYCRecord, error)
	FindByID(ctx context.Context, id string) (*models.KYCRecord, error)
	Create(ctx context.Context, record *models.KYCRecord) error
	Resubmit(ctx context.Context, id string, docType models.KYCDocumentType, docRef string) error
	ApplyVerdict(ctx context.Context, review *models.KYCReview) error
	List(ctx context.Context, filter models.KYCFilter) ([]models.KYCRecord, int, error)
	ListReviews(ctx context.Context, kycID string) ([]models.KYCReview, error)
}

type kycAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// KYCService runs the identity verification workflow.
type KYCService struct {
	repo      kycRepository
	audit     kycAuditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewKYCService constructs a KYCService instance.
func NewKYCService(repo kycRepository, audit kycAuditWriter, validate *validator.Validate, logger *zap.Logger) *KYCService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &KYCService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Submit files the customer's identity document. A first submission
// creates the record; after a rejection the same call resubmits. A
// verified record refuses further submissions, and a pending one must
// be reviewed first.
func (s *KYCService) Submit(ctx context.Context, claims *models.JWTClaims, req dto.SubmitKYCRequest) (*models.KYCRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid kyc payload")
	}

	existing, err := s.repo.FindByUser(ctx, claims.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load kyc record")
	}

	docType := models.KYCDocumentType(req.DocumentType)

	if existing != nil {
		switch existing.Status {
		case models.KYCVerified:
			return nil, appErrors.Clone(appErrors.ErrFinalized, "identity already verified")
		case models.KYCSubmitted:
			return nil, appErrors.Clone(appErrors.ErrConflict, "a submission is already awaiting review")
		case models.KYCRejected:
			if err := s.repo.Resubmit(ctx, existing.ID, docType, req.DocumentRef); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resubmit kyc")
			}
			s.recordAudit(ctx, claims, models.AuditActionKYCSubmit, existing.ID, map[string]string{"resubmission": "true"})
			return s.repo.FindByID(ctx, existing.ID)
		}
	}

	record := &models.KYCRecord{
		UserID:       claims.UserID,
		DocumentType: docType,
		DocumentRef:  req.DocumentRef,
		Status:       models.KYCSubmitted,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create kyc record")
	}

	s.recordAudit(ctx, claims, models.AuditActionKYCSubmit, record.ID, nil)
	return record, nil
}

// Status returns the caller's verification record.
func (s *KYCService) Status(ctx context.Context, claims *models.JWTClaims) (*models.KYCRecord, error) {
	record, err := s.repo.FindByUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no kyc submission on file")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load kyc record")
	}
	return record, nil
}

// Review applies an admin verdict. Only a SUBMITTED record can be
// reviewed; a verdict on anything else conflicts.
func (s *KYCService) Review(ctx context.Context, claims *models.JWTClaims, kycID string, req dto.KYCVerdictRequest) (*models.KYCRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verdict payload")
	}

	record, err := s.repo.FindByID(ctx, kycID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "kyc record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load kyc record")
	}
	if record.Status != models.KYCSubmitted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "record is not awaiting review")
	}

	newStatus := models.KYCStatus(req.Status)
	if newStatus == models.KYCRejected && (req.Remarks == nil || *req.Remarks == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection requires remarks")
	}

	review := &models.KYCReview{
		KYCID:          record.ID,
		PreviousStatus: record.Status,
		NewStatus:      newStatus,
		Remarks:        req.Remarks,
		ReviewedBy:     claims.UserID,
	}
	if err := s.repo.ApplyVerdict(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply verdict")
	}

	s.recordAudit(ctx, claims, models.AuditActionKYCVerdict, record.ID, map[string]string{"status": string(newStatus)})
	return s.repo.FindByID(ctx, record.ID)
}

// List returns verification records for the admin review queue.
func (s *KYCService) List(ctx context.Context, filter models.KYCFilter) ([]models.KYCRecord, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list kyc records")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return records, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Reviews returns the verdict history of a record.
func (s *KYCService) Reviews(ctx context.Context, kycID string) ([]models.KYCReview, error) {
	reviews, err := s.repo.ListReviews(ctx, kycID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list kyc reviews")
	}
	return reviews, nil
}

func (s *KYCService) recordAudit(ctx context.Context, claims *models.JWTClaims, action, resourceID string, values map[string]string) {
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
		Resource:   "kyc",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record kyc audit log", zap.Error(err))
	}
}
