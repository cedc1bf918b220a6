package models

import "time"

// ErrorLog persists unexpected server failures for the admin console.
type ErrorLog struct {
	ID         string     `db:"id" json:"id"`
	Method     string     `db:"method" json:"method"`
	Path       string     `db:"path" json:"path"`
	StatusCode int        `db:"status_code" json:"status_code"`
	Message    string     `db:"message" json:"message"`
	RequestID  string     `db:"request_id" json:"request_id"`
	UserID     *string    `db:"user_id" json:"user_id,omitempty"`
	Resolved   bool       `db:"resolved" json:"resolved"`
	ResolvedBy *string    `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// ErrorLogFilter scopes admin error log listings.
type ErrorLogFilter struct {
	Resolved *bool
	Page     int
	PageSize int
}
