package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ja-yanga/keep-ph-api/internal/models"
)

// AddressRepository persists customer release addresses.
type AddressRepository struct {
	db *sqlx.DB
}

// NewAddressRepository constructs the repository.
func NewAddressRepository(db *sqlx.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

const addressColumns = `id, user_id, label, line1, line2, city, region, postal_code, is_default, created_at, updated_at`

// FindByID returns an address by identifier.
func (r *AddressRepository) FindByID(ctx context.Context, id string) (*models.Address, error) {
	query := fmt.Sprintf(`SELECT %s FROM addresses WHERE id = $1 LIMIT 1`, addressColumns)
	var addr models.Address
	if err := r.db.GetContext(ctx, &addr, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find address by id: %w", err)
	}
	return &addr, nil
}

// ListByUser returns all addresses owned by a user, default first.
func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]models.Address, error) {
	query := fmt.Sprintf(`SELECT %s FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`, addressColumns)
	var addresses []models.Address
	if err := r.db.SelectContext(ctx, &addresses, query, userID); err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

// Create inserts a new address. When the address is marked default the
// caller is expected to have cleared the previous default via
// ClearDefault inside the same request.
func (r *AddressRepository) Create(ctx context.Context, addr *models.Address) error {
	if addr.ID == "" {
		addr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	addr.CreatedAt = now
	addr.UpdatedAt = now

	const query = `INSERT INTO addresses (id, user_id, label, line1, line2, city, region, postal_code, is_default, created_at, updated_at)
VALUES (:id, :user_id, :label, :line1, :line2, :city, :region, :postal_code, :is_default, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, addr); err != nil {
		return fmt.Errorf("create address: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an address.
func (r *AddressRepository) Update(ctx context.Context, addr *models.Address) error {
	addr.UpdatedAt = time.Now().UTC()
	const query = `UPDATE addresses SET label = :label, line1 = :line1, line2 = :line2, city = :city, region = :region, postal_code = :postal_code, is_default = :is_default, updated_at = :updated_at
WHERE id = :id AND user_id = :user_id`
	result, err := r.db.NamedExecContext(ctx, query, addr)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update address rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClearDefault unsets the default flag on every address of a user.
func (r *AddressRepository) ClearDefault(ctx context.Context, userID string) error {
	const query = `UPDATE addresses SET is_default = FALSE, updated_at = $2 WHERE user_id = $1 AND is_default = TRUE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear default address: %w", err)
	}
	return nil
}

// Delete removes an address owned by the user.
func (r *AddressRepository) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM addresses WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete address rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
