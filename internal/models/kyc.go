package models

import "time"

// KYCStatus tracks identity verification. A record exists only after
// first submission; VERIFIED is immutable, REJECTED allows resubmission.
type KYCStatus string

const (
	KYCSubmitted KYCStatus = "SUBMITTED"
	KYCVerified  KYCStatus = "VERIFIED"
	KYCRejected  KYCStatus = "REJECTED"
)

// KYCDocumentType enumerates accepted identity documents.
type KYCDocumentType string

const (
	KYCDocumentPassport       KYCDocumentType = "PASSPORT"
	KYCDocumentNationalID     KYCDocumentType = "NATIONAL_ID"
	KYCDocumentDriversLicense KYCDocumentType = "DRIVERS_LICENSE"
)

// KYCRecord is the single verification record per user.
type KYCRecord struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"user_id"`
	DocumentType KYCDocumentType `db:"document_type" json:"document_type"`
	DocumentRef  string          `db:"document_ref" json:"document_ref"`
	Status       KYCStatus       `db:"status" json:"status"`
	Remarks      *string         `db:"remarks" json:"remarks,omitempty"`
	ReviewedBy   *string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	SubmittedAt  time.Time       `db:"submitted_at" json:"submitted_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// KYCReview records one admin verdict for the history trail.
type KYCReview struct {
	ID             string    `db:"id" json:"id"`
	KYCID          string    `db:"kyc_id" json:"kyc_id"`
	PreviousStatus KYCStatus `db:"previous_status" json:"previous_status"`
	NewStatus      KYCStatus `db:"new_status" json:"new_status"`
	Remarks        *string   `db:"remarks" json:"remarks,omitempty"`
	ReviewedBy     string    `db:"reviewed_by" json:"reviewed_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// KYCFilter scopes admin KYC listings.
type KYCFilter struct {
	Status   *KYCStatus
	Search   string
	Page     int
	PageSize int
}
