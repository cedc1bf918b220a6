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

// ErrLockerClaimed is returned when a conditional locker claim matched
// no row because another assignment won the race.
var ErrLockerClaimed = fmt.Errorf("locker already claimed")

// LockerRepository manages lockers and their assignment ledger.
type LockerRepository struct {
	db *sqlx.DB
}

// NewLockerRepository constructs the repository.
func NewLockerRepository(db *sqlx.DB) *LockerRepository {
	return &LockerRepository{db: db}
}

// FindByID returns a locker by identifier.
func (r *LockerRepository) FindByID(ctx context.Context, id string) (*models.Locker, error) {
	const query = `SELECT id, locker_code, location_id, is_available, created_at, updated_at FROM lockers WHERE id = $1 LIMIT 1`
	var locker models.Locker
	if err := r.db.GetContext(ctx, &locker, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find locker by id: %w", err)
	}
	return &locker, nil
}

// List returns lockers matching the filter with a total count.
func (r *LockerRepository) List(ctx context.Context, filter models.LockerFilter) ([]models.Locker, int, error) {
	baseQuery := `FROM lockers WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", len(args)+1))
		args = append(args, filter.LocationID)
	}
	if filter.Available != nil {
		conditions = append(conditions, fmt.Sprintf("is_available = $%d", len(args)+1))
		args = append(args, *filter.Available)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(locker_code) LIKE $%d", len(args)+1))
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
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, locker_code, location_id, is_available, created_at, updated_at %s ORDER BY locker_code ASC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var lockers []models.Locker
	if err := r.db.SelectContext(ctx, &lockers, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list lockers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count lockers: %w", err)
	}

	return lockers, total, nil
}

// Assign claims the locker with a conditional update and inserts the
// assignment row in one transaction. The claim matches only while
// is_available is TRUE; losing the race yields ErrLockerClaimed.
func (r *LockerRepository) Assign(ctx context.Context, assignment *models.LockerAssignment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin locker assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const claim = `UPDATE lockers SET is_available = FALSE, updated_at = $2 WHERE id = $1 AND is_available = TRUE`
	res, err := tx.ExecContext(ctx, claim, assignment.LockerID, now)
	if err != nil {
		return fmt.Errorf("claim locker: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("locker claim rows affected: %w", err)
	}
	if affected == 0 {
		return ErrLockerClaimed
	}

	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = now
	const insert = `INSERT INTO locker_assignments (id, registration_id, locker_id, assigned_by, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insert, assignment.ID, assignment.RegistrationID, assignment.LockerID, assignment.AssignedBy, now); err != nil {
		return fmt.Errorf("insert locker assignment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit locker assignment: %w", err)
	}
	return nil
}

// Unassign removes the assignment and releases the locker in one
// transaction.
func (r *LockerRepository) Unassign(ctx context.Context, assignmentID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin locker unassignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockerID string
	const find = `SELECT locker_id FROM locker_assignments WHERE id = $1`
	if err = tx.GetContext(ctx, &lockerID, find, assignmentID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("find locker assignment: %w", err)
	}

	const remove = `DELETE FROM locker_assignments WHERE id = $1`
	if _, err = tx.ExecContext(ctx, remove, assignmentID); err != nil {
		return fmt.Errorf("delete locker assignment: %w", err)
	}

	const release = `UPDATE lockers SET is_available = TRUE, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, release, lockerID, time.Now().UTC()); err != nil {
		return fmt.Errorf("release locker: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit locker unassignment: %w", err)
	}
	return nil
}

// FindAssignment returns an assignment by identifier.
func (r *LockerRepository) FindAssignment(ctx context.Context, id string) (*models.LockerAssignment, error) {
	const query = `SELECT la.id, la.registration_id, la.locker_id, la.assigned_by, la.created_at, l.locker_code, l.location_id
FROM locker_assignments la
JOIN lockers l ON l.id = la.locker_id
WHERE la.id = $1 LIMIT 1`
	var assignment models.LockerAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find locker assignment: %w", err)
	}
	return &assignment, nil
}

// ListAssignments returns active assignments for a registration.
func (r *LockerRepository) ListAssignments(ctx context.Context, registrationID string) ([]models.LockerAssignment, error) {
	const query = `SELECT la.id, la.registration_id, la.locker_id, la.assigned_by, la.created_at, l.locker_code, l.location_id
FROM locker_assignments la
JOIN lockers l ON l.id = la.locker_id
WHERE la.registration_id = $1
ORDER BY la.created_at ASC`
	var assignments []models.LockerAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, registrationID); err != nil {
		return nil, fmt.Errorf("list locker assignments: %w", err)
	}
	return assignments, nil
}

// CountAssignments counts active assignments for a registration.
func (r *LockerRepository) CountAssignments(ctx context.Context, registrationID string) (int, error) {
	const query = `SELECT COUNT(*) FROM locker_assignments WHERE registration_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, registrationID); err != nil {
		return 0, fmt.Errorf("count locker assignments: %w", err)
	}
	return count, nil
}
