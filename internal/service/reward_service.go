package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

type rewardRepository interface {
	FindByID(ctx context.Context, id string) (*models.RewardClaim, error)
	Create(ctx context.Context, claim *models.RewardClaim) error
	CountOpenForUser(ctx context.Context, userID string) (int, error)
	UpdateStatus(ctx context.Context, id string, status models.RewardStatus, proofPath *string, processedBy string, paidAt *time.Time) error
	List(ctx context.Context, filter models.RewardFilter) ([]models.RewardClaim, int, error)
}

type rewardUserRepository interface {
	CountReferrals(ctx context.Context, userID string) (int, error)
}

type rewardAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RewardConfig sets the referral count required before a claim opens.
type RewardConfig struct {
	ReferralThreshold int
}

// RewardService handles referral reward claims.
type RewardService struct {
	repo      rewardRepository
	users     rewardUserRepository
	audit     rewardAuditWriter
	validator *validator.Validate
	logger    *zap.Logger
	config    RewardConfig
}

// NewRewardService constructs a RewardService instance.
func NewRewardService(repo rewardRepository, users rewardUserRepository, audit rewardAuditWriter, validate *validator.Validate, logger *zap.Logger, config RewardConfig) *RewardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.ReferralThreshold <= 0 {
		config.ReferralThreshold = 3
	}
	return &RewardService{repo: repo, users: users, audit: audit, validator: validate, logger: logger, config: config}
}

// Claim opens a reward claim once the caller's referral count reaches
// the threshold. Only one claim may be in flight at a time.
func (s *RewardService) Claim(ctx context.Context, claims *models.JWTClaims) (*models.RewardClaim, error) {
	referrals, err := s.users.CountReferrals(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count referrals")
	}
	if referrals < s.config.ReferralThreshold {
		return nil, appErrors.Clone(appErrors.ErrValidation, "referral count below reward threshold")
	}

	open, err := s.repo.CountOpenForUser(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open claims")
	}
	if open > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a reward claim is already in flight")
	}

	claim := &models.RewardClaim{
		UserID:        claims.UserID,
		ReferralCount: referrals,
		Status:        models.RewardPending,
	}
	if err := s.repo.Create(ctx, claim); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reward claim")
	}

	s.recordAudit(ctx, claims, models.AuditActionRewardClaim, claim.ID, map[string]string{"referrals": strconv.Itoa(referrals)})
	return claim, nil
}

// Update advances a claim toward PAID. PROCESSING needs a payment
// proof path; a pending claim may jump straight to PAID when the proof
// arrives with the payout. PAID stamps the payout moment and is final.
func (s *RewardService) Update(ctx context.Context, claims *models.JWTClaims, claimID string, req dto.UpdateRewardRequest) (*models.RewardClaim, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reward payload")
	}

	claim, err := s.repo.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reward claim not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reward claim")
	}
	if claim.Status == models.RewardPaid {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "reward claim already paid")
	}

	newStatus := models.RewardStatus(req.Status)
	switch newStatus {
	case models.RewardProcessing:
		if claim.Status != models.RewardPending {
			return nil, appErrors.Clone(appErrors.ErrConflict, "claim is not pending")
		}
		if req.ProofPath == nil || *req.ProofPath == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "processing requires a payment proof")
		}
	case models.RewardPaid:
		if claim.Status == models.RewardPending && (req.ProofPath == nil || *req.ProofPath == "") {
			return nil, appErrors.Clone(appErrors.ErrValidation, "payout requires a payment proof")
		}
	}

	var paidAt *time.Time
	if newStatus == models.RewardPaid {
		now := time.Now().UTC()
		paidAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, claim.ID, newStatus, req.ProofPath, claims.UserID, paidAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reward claim")
	}

	s.recordAudit(ctx, claims, models.AuditActionRewardUpdate, claim.ID, map[string]string{"status": string(newStatus)})
	return s.repo.FindByID(ctx, claim.ID)
}

// List returns claims. Customers see only their own.
func (s *RewardService) List(ctx context.Context, claims *models.JWTClaims, filter models.RewardFilter) ([]models.RewardClaim, *models.Pagination, error) {
	if claims.Role == models.RoleCustomer {
		filter.UserID = claims.UserID
	}

	rewards, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reward claims")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return rewards, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *RewardService) recordAudit(ctx context.Context, claims *models.JWTClaims, action, resourceID string, values map[string]string) {
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
		Resource:   "reward",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record reward audit log", zap.Error(err))
	}
}
