package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
)

// ErrStaleStatus is returned when a conditional status update matched
// no row, meaning the package moved under the caller.
var ErrStaleStatus = fmt.Errorf("package status changed concurrently")

// PackageRepository provides persistence for packages, their media
// files, and the transition event trail.
type PackageRepository struct {
	db *sqlx.DB
}

// NewPackageRepository constructs the repository.
func NewPackageRepository(db *sqlx.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

const packageColumns = `id, registration_id, package_type, status, description, received_at, release_address_id, proxy_name, proxy_mobile, updated_at`

// FindByID returns a package by identifier.
func (r *PackageRepository) FindByID(ctx context.Context, id string) (*models.Package, error) {
	query := fmt.Sprintf(`SELECT %s FROM packages WHERE id = $1 LIMIT 1`, packageColumns)
	var pkg models.Package
	if err := r.db.GetContext(ctx, &pkg, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find package by id: %w", err)
	}
	return &pkg, nil
}

// FindOwner resolves the user owning the package's registration.
func (r *PackageRepository) FindOwner(ctx context.Context, packageID string) (string, error) {
	const query = `SELECT reg.user_id FROM packages p JOIN registrations reg ON reg.id = p.registration_id WHERE p.id = $1`
	var userID string
	if err := r.db.GetContext(ctx, &userID, query, packageID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find package owner: %w", err)
	}
	return userID, nil
}

// Create inserts a package in STORED status.
func (r *PackageRepository) Create(ctx context.Context, pkg *models.Package) error {
	if pkg.ID == "" {
		pkg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pkg.ReceivedAt.IsZero() {
		pkg.ReceivedAt = now
	}
	pkg.UpdatedAt = now
	if pkg.Status == "" {
		pkg.Status = models.StatusStored
	}

	const query = `INSERT INTO packages (id, registration_id, package_type, status, description, received_at, release_address_id, proxy_name, proxy_mobile, updated_at)
VALUES (:id, :registration_id, :package_type, :status, :description, :received_at, :release_address_id, :proxy_name, :proxy_mobile, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, pkg); err != nil {
		return fmt.Errorf("create package: %w", err)
	}
	return nil
}

// TransitionParams carries one conditional status transition.
type TransitionParams struct {
	PackageID   string
	FromStatus  models.PackageStatus
	ToStatus    models.PackageStatus
	Action      string
	ActorID     string
	AddressID   *string
	ProxyName   *string
	ProxyMobile *string
}

// Transition applies a status change guarded by the expected current
// status, and appends a status event in the same transaction. When the
// row no longer holds FromStatus the update matches nothing and
// ErrStaleStatus is returned.
func (r *PackageRepository) Transition(ctx context.Context, params TransitionParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin package transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const update = `UPDATE packages SET status = $3, release_address_id = $4, proxy_name = $5, proxy_mobile = $6, updated_at = $7 WHERE id = $1 AND status = $2`
	res, err := tx.ExecContext(ctx, update, params.PackageID, params.FromStatus, params.ToStatus, params.AddressID, params.ProxyName, params.ProxyMobile, now)
	if err != nil {
		return fmt.Errorf("update package status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("package transition rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleStatus
	}

	const event = `INSERT INTO package_status_events (id, package_id, from_status, to_status, action, actor_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, event, uuid.NewString(), params.PackageID, params.FromStatus, params.ToStatus, params.Action, params.ActorID, now); err != nil {
		return fmt.Errorf("insert package status event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit package transition: %w", err)
	}
	return nil
}

// List returns package projections matching the filter with a total count.
func (r *PackageRepository) List(ctx context.Context, filter models.PackageFilter) ([]dto.PackageItem, int, error) {
	baseQuery := `FROM packages p
JOIN registrations reg ON reg.id = p.registration_id
JOIN users u ON u.id = reg.user_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("reg.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.RegistrationID != "" {
		conditions = append(conditions, fmt.Sprintf("p.registration_id = $%d", len(args)+1))
		args = append(args, filter.RegistrationID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("p.package_type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.description) LIKE $%d OR LOWER(u.full_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("p.received_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("p.received_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"received_at": "p.received_at",
		"updated_at":  "p.updated_at",
		"status":      "p.status",
	}
	sortColumn, ok := allowedSorts[sortBy]
	if !ok {
		sortColumn = "p.received_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
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

	listQuery := fmt.Sprintf(`SELECT p.id, p.registration_id, p.package_type, p.status, p.description, p.received_at, u.full_name AS owner_name %s ORDER BY %s %s LIMIT %d OFFSET %d`, baseQuery, sortColumn, sortOrder, pageSize, offset)

	var items []dto.PackageItem
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list packages: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count packages: %w", err)
	}

	return items, total, nil
}

// AttachFile stores a media record against a package.
func (r *PackageRepository) AttachFile(ctx context.Context, file *models.PackageFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO package_files (id, package_id, kind, path, mime_type, size_bytes, uploaded_by, created_at) VALUES (:id, :package_id, :kind, :path, :mime_type, :size_bytes, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("attach package file: %w", err)
	}
	return nil
}

// ListFiles returns media records for a package.
func (r *PackageRepository) ListFiles(ctx context.Context, packageID string) ([]models.PackageFile, error) {
	const query = `SELECT id, package_id, kind, path, mime_type, size_bytes, uploaded_by, created_at FROM package_files WHERE package_id = $1 ORDER BY created_at ASC`
	var files []models.PackageFile
	if err := r.db.SelectContext(ctx, &files, query, packageID); err != nil {
		return nil, fmt.Errorf("list package files: %w", err)
	}
	return files, nil
}

// FindFileByID returns a single media record.
func (r *PackageRepository) FindFileByID(ctx context.Context, id string) (*models.PackageFile, error) {
	const query = `SELECT id, package_id, kind, path, mime_type, size_bytes, uploaded_by, created_at FROM package_files WHERE id = $1 LIMIT 1`
	var file models.PackageFile
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find package file: %w", err)
	}
	return &file, nil
}

// CountScanFiles counts scanned documents stored for a registration,
// used to enforce the scan storage quota.
func (r *PackageRepository) CountScanFiles(ctx context.Context, registrationID string) (int, error) {
	const query = `SELECT COUNT(*) FROM package_files pf JOIN packages p ON p.id = pf.package_id WHERE p.registration_id = $1 AND pf.kind = 'SCAN'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, registrationID); err != nil {
		return 0, fmt.Errorf("count scan files: %w", err)
	}
	return count, nil
}

// CountPendingReleaseByAddress counts release requests referencing an
// address, used to block address deletion mid-request.
func (r *PackageRepository) CountPendingReleaseByAddress(ctx context.Context, addressID string) (int, error) {
	const query = `SELECT COUNT(*) FROM packages WHERE release_address_id = $1 AND status = 'REQUEST_TO_RELEASE'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, addressID); err != nil {
		return 0, fmt.Errorf("count pending releases by address: %w", err)
	}
	return count, nil
}

// ListStatusEvents returns the transition trail for a package.
func (r *PackageRepository) ListStatusEvents(ctx context.Context, packageID string) ([]models.PackageStatusEvent, error) {
	const query = `SELECT id, package_id, from_status, to_status, action, actor_id, created_at FROM package_status_events WHERE package_id = $1 ORDER BY created_at ASC`
	var events []models.PackageStatusEvent
	if err := r.db.SelectContext(ctx, &events, query, packageID); err != nil {
		return nil, fmt.Errorf("list package status events: %w", err)
	}
	return events, nil
}
