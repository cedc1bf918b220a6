package models

import "time"

// Address is a customer's saved shipping address, selectable when
// requesting a package release.
type Address struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Label      string    `db:"label" json:"label"`
	Line1      string    `db:"line1" json:"line1"`
	Line2      *string   `db:"line2" json:"line2,omitempty"`
	City       string    `db:"city" json:"city"`
	Region     string    `db:"region" json:"region"`
	PostalCode *string   `db:"postal_code" json:"postal_code,omitempty"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
