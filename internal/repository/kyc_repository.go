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

// KYCRepository persists verification records and their review trail.
type KYCRepository struct {
	db *sqlx.DB
}

// NewKYCRepository constructs the repository.
func NewKYCRepository(db *sqlx.DB) *KYCRepository {
	return &KYCRepository{db: db}
}

const kycColumns = `id, user_id, document_type, document_ref, status, remarks, reviewed_by, reviewed_at, submitted_at, updated_at`

// FindByUser returns the verification record for a user.
func (r *KYCRepository) FindByUser(ctx context.Context, userID string) (*models.KYCRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM kyc_records WHERE user_id = $1 LIMIT 1`, kycColumns)
	var record models.KYCRecord
	if err := r.db.GetContext(ctx, &record, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find kyc by user: %w", err)
	}
	return &record, nil
}

// FindByID returns a verification record by identifier.
func (r *KYCRepository) FindByID(ctx context.Context, id string) (*models.KYCRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM kyc_records WHERE id = $1 LIMIT 1`, kycColumns)
	var record models.KYCRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find kyc by id: %w", err)
	}
	return &record, nil
}

// Create inserts a first-time submission.
func (r *KYCRepository) Create(ctx context.Context, record *models.KYCRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = now
	}
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = models.KYCSubmitted
	}

	const query = `INSERT INTO kyc_records (id, user_id, document_type, document_ref, status, remarks, reviewed_by, reviewed_at, submitted_at, updated_at)
VALUES (:id, :user_id, :document_type, :document_ref, :status, :remarks, :reviewed_by, :reviewed_at, :submitted_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create kyc record: %w", err)
	}
	return nil
}

// Resubmit replaces the document details after a rejection and resets
// the status to SUBMITTED.
func (r *KYCRepository) Resubmit(ctx context.Context, id string, docType models.KYCDocumentType, docRef string) error {
	const query = `UPDATE kyc_records SET document_type = $2, document_ref = $3, status = 'SUBMITTED', remarks = NULL, reviewed_by = NULL, reviewed_at = NULL, submitted_at = $4, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, docType, docRef, time.Now().UTC()); err != nil {
		return fmt.Errorf("resubmit kyc record: %w", err)
	}
	return nil
}

// ApplyVerdict updates the record status and appends a review row in
// one transaction.
func (r *KYCRepository) ApplyVerdict(ctx context.Context, review *models.KYCReview) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin kyc verdict: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const update = `UPDATE kyc_records SET status = $2, remarks = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $5 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, update, review.KYCID, review.NewStatus, review.Remarks, review.ReviewedBy, now); err != nil {
		return fmt.Errorf("update kyc status: %w", err)
	}

	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.CreatedAt = now
	const insert = `INSERT INTO kyc_reviews (id, kyc_id, previous_status, new_status, remarks, reviewed_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, insert, review.ID, review.KYCID, review.PreviousStatus, review.NewStatus, review.Remarks, review.ReviewedBy, now); err != nil {
		return fmt.Errorf("insert kyc review: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit kyc verdict: %w", err)
	}
	return nil
}

// List returns verification records matching the filter with a count.
func (r *KYCRepository) List(ctx context.Context, filter models.KYCFilter) ([]models.KYCRecord, int, error) {
	baseQuery := `FROM kyc_records k JOIN users u ON u.id = k.user_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("k.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.email) LIKE $%d OR LOWER(u.full_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	listQuery := fmt.Sprintf(`SELECT k.id, k.user_id, k.document_type, k.document_ref, k.status, k.remarks, k.reviewed_by, k.reviewed_at, k.submitted_at, k.updated_at %s ORDER BY k.submitted_at DESC LIMIT %d OFFSET %d`, baseQuery, pageSize, offset)

	var records []models.KYCRecord
	if err := r.db.SelectContext(ctx, &records, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list kyc records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count kyc records: %w", err)
	}

	return records, total, nil
}

// ListReviews returns the review trail for a record.
func (r *KYCRepository) ListReviews(ctx context.Context, kycID string) ([]models.KYCReview, error) {
	const query = `SELECT id, kyc_id, previous_status, new_status, remarks, reviewed_by, created_at FROM kyc_reviews WHERE kyc_id = $1 ORDER BY created_at ASC`
	var reviews []models.KYCReview
	if err := r.db.SelectContext(ctx, &reviews, query, kycID); err != nil {
		return nil, fmt.Errorf("list kyc reviews: %w", err)
	}
	return reviews, nil
}
