package models

import "time"

// RegistrationStatus tracks whether a subscription is still current.
type RegistrationStatus string

const (
	RegistrationActive  RegistrationStatus = "ACTIVE"
	RegistrationExpired RegistrationStatus = "EXPIRED"
)

// Registration is a customer's subscription to a plan at a location.
// It owns packages and locker assignments. Expiry is created_at plus
// the purchased months.
type Registration struct {
	ID         string             `db:"id" json:"id"`
	UserID     string             `db:"user_id" json:"user_id"`
	LocationID string             `db:"location_id" json:"location_id"`
	PlanName   string             `db:"plan_name" json:"plan_name"`
	Months     int                `db:"months" json:"months"`
	LockerQty  int                `db:"locker_qty" json:"locker_qty"`
	Status     RegistrationStatus `db:"status" json:"status"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updated_at"`
}

// ExpiresAt computes the subscription end.
func (r Registration) ExpiresAt() time.Time {
	return r.CreatedAt.AddDate(0, r.Months, 0)
}

// Location is a mailroom site lockers and registrations belong to.
type Location struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RegistrationFilter scopes registration listings.
type RegistrationFilter struct {
	UserID     string
	LocationID string
	Status     *RegistrationStatus
	Search     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
