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

// ErrorLogRepository records unexpected server failures for the admin
// console.
type ErrorLogRepository struct {
	db *sqlx.DB
}

// NewErrorLogRepository constructs the repository.
func NewErrorLogRepository(db *sqlx.DB) *ErrorLogRepository {
	return &ErrorLogRepository{db: db}
}

const errorLogColumns = `id, method, path, status_code, message, request_id, user_id, resolved, resolved_by, resolved_at, created_at`

// Create inserts an error log entry.
func (r *ErrorLogRepository) Create(ctx context.Context, entry *models.ErrorLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO error_logs (id, method, path, status_code, message, request_id, user_id, resolved, resolved_by, resolved_at, created_at)
VALUES (:id, :method, :path, :status_code, :message, :request_id, :user_id, :resolved, :resolved_by, :resolved_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create error log: %w", err)
	}
	return nil
}

// Resolve marks an entry as handled by an admin.
func (r *ErrorLogRepository) Resolve(ctx context.Context, id, adminID string) error {
	const query = `UPDATE error_logs SET resolved = TRUE, resolved_by = $2, resolved_at = $3 WHERE id = $1 AND resolved = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, adminID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("resolve error log: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve error log rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns log entries matching the filter with a total count.
func (r *ErrorLogRepository) List(ctx context.Context, filter models.ErrorLogFilter) ([]models.ErrorLog, int, error) {
	baseQuery := `FROM error_logs WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Resolved != nil {
		conditions = append(conditions, fmt.Sprintf("resolved = $%d", len(args)+1))
		args = append(args, *filter.Resolved)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", errorLogColumns, baseQuery, pageSize, offset)

	var entries []models.ErrorLog
	if err := r.db.SelectContext(ctx, &entries, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list error logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count error logs: %w", err)
	}

	return entries, total, nil
}
