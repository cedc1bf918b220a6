package models

import "time"

// Locker is a physical locker at a location. IsAvailable is false
// exactly while an active assignment exists.
type Locker struct {
	ID          string    `db:"id" json:"id"`
	LockerCode  string    `db:"locker_code" json:"locker_code"`
	LocationID  string    `db:"location_id" json:"location_id"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// LockerAssignment binds a registration to a locker.
type LockerAssignment struct {
	ID             string    `db:"id" json:"id"`
	RegistrationID string    `db:"registration_id" json:"registration_id"`
	LockerID       string    `db:"locker_id" json:"locker_id"`
	AssignedBy     string    `db:"assigned_by" json:"assigned_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`

	// Joined for listings.
	LockerCode string `db:"locker_code" json:"locker_code,omitempty"`
	LocationID string `db:"location_id" json:"location_id,omitempty"`
}

// LockerFilter scopes locker listings.
type LockerFilter struct {
	LocationID string
	Available  *bool
	Search     string
	Page       int
	PageSize   int
}
