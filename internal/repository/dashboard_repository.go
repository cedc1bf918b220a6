package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ja-yanga/keep-ph-api/internal/models"
)

// DashboardRepository exposes the aggregate queries behind the admin
// dashboard snapshot.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository instantiates the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Snapshot runs the dashboard aggregates in a single round of queries.
func (r *DashboardRepository) Snapshot(ctx context.Context) (*models.DashboardSnapshot, error) {
	snapshot := &models.DashboardSnapshot{
		PackagesByStatus: make(map[models.PackageStatus]int),
		GeneratedAt:      time.Now().UTC(),
	}

	type statusCount struct {
		Status models.PackageStatus `db:"status"`
		Count  int                  `db:"count"`
	}

	var statusCounts []statusCount
	const packagesQuery = `SELECT status, COUNT(*) AS count FROM packages GROUP BY status`
	if err := r.db.SelectContext(ctx, &statusCounts, packagesQuery); err != nil {
		return nil, fmt.Errorf("query package status counts: %w", err)
	}
	for _, sc := range statusCounts {
		snapshot.PackagesByStatus[sc.Status] = sc.Count
	}

	const pendingKYCQuery = `SELECT COUNT(*) FROM kyc_records WHERE status = 'SUBMITTED'`
	if err := r.db.GetContext(ctx, &snapshot.PendingKYC, pendingKYCQuery); err != nil {
		return nil, fmt.Errorf("query pending kyc count: %w", err)
	}

	const pendingRewardsQuery = `SELECT COUNT(*) FROM reward_claims WHERE status = 'PENDING'`
	if err := r.db.GetContext(ctx, &snapshot.PendingRewardClaims, pendingRewardsQuery); err != nil {
		return nil, fmt.Errorf("query pending reward count: %w", err)
	}

	type lockerCount struct {
		Total    int `db:"total"`
		Occupied int `db:"occupied"`
	}
	var lockers lockerCount
	const lockersQuery = `SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_available THEN 0 ELSE 1 END), 0) AS occupied FROM lockers`
	if err := r.db.GetContext(ctx, &lockers, lockersQuery); err != nil {
		return nil, fmt.Errorf("query locker occupancy: %w", err)
	}
	snapshot.LockersTotal = lockers.Total
	snapshot.LockersOccupied = lockers.Occupied

	type registrationCount struct {
		Active  int `db:"active"`
		Expired int `db:"expired"`
	}
	var registrations registrationCount
	const registrationsQuery = `SELECT
        COALESCE(SUM(CASE WHEN status = 'ACTIVE' THEN 1 ELSE 0 END), 0) AS active,
        COALESCE(SUM(CASE WHEN status = 'EXPIRED' THEN 1 ELSE 0 END), 0) AS expired
        FROM registrations`
	if err := r.db.GetContext(ctx, &registrations, registrationsQuery); err != nil {
		return nil, fmt.Errorf("query registration counts: %w", err)
	}
	snapshot.ActiveRegistrations = registrations.Active
	snapshot.ExpiredRegistrations = registrations.Expired

	return snapshot, nil
}
