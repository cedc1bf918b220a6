package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ja-yanga/keep-ph-api/internal/models"
)

// RewardRepository persists referral reward claims.
type RewardRepository struct {
	db *sqlx.DB
}

// NewRewardRepository constructs the repository.
func NewRewardRepository(db *sqlx.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

const rewardColumns = `id, user_id, referral_count, status, proof_path, processed_by, paid_at, created_at, updated_at`

// FindByID returns a claim by identifier.
func (r *RewardRepository) FindByID(ctx context.Context, id string) (*models.RewardClaim, error) {
	query := fmt.Sprintf(`SELECT %s FROM reward_claims WHERE id = $1 LIMIT 1`, rewardColumns)
	var claim models.RewardClaim
	if err := r.db.GetContext(ctx, &claim, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reward claim by id: %w", err)
	}
	return &claim, nil
}

// Create inserts a new claim in PENDING status.
func (r *RewardRepository) Create(ctx context.Context, claim *models.RewardClaim) error {
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now
	}
	claim.UpdatedAt = now
	if claim.Status == "" {
		claim.Status = models.RewardPending
	}

	const query = `INSERT INTO reward_claims (id, user_id, referral_count, status, proof_path, processed_by, paid_at, created_at, updated_at)
VALUES (:id, :user_id, :referral_count, :status, :proof_path, :processed_by, :paid_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, claim); err != nil {
		return fmt.Errorf("create reward claim: %w", err)
	}
	return nil
}

// CountOpenForUser counts claims not yet paid for a user. A customer
// may only have one claim in flight.
func (r *RewardRepository) CountOpenForUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM reward_claims WHERE user_id = $1 AND status <> 'PAID'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count open reward claims: %w", err)
	}
	return count, nil
}

// UpdateStatus advances a claim and records proof/processor details.
func (r *RewardRepository) UpdateStatus(ctx context.Context, id string, status models.RewardStatus, proofPath *string, processedBy string, paidAt *time.Time) error {
	const query = `UPDATE reward_claims SET status = $2, proof_path = COALESCE($3, proof_path), processed_by = $4, paid_at = $5, updated_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, proofPath, processedBy, paidAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("update reward claim: %w", err)
	}
	return nil
}

// List returns claims matching the filter with a total count.
func (r *RewardRepository) List(ctx context.Context, filter models.RewardFilter) ([]models.RewardClaim, int, error) {
	baseQuery := `FROM reward_claims WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", rewardColumns, baseQuery, pageSize, offset)

	var claims []models.RewardClaim
	if err := r.db.SelectContext(ctx, &claims, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reward claims: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reward claims: %w", err)
	}

	return claims, total, nil
}
