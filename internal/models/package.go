package models

import "time"

// PackageType classifies the physical item held in the mailroom.
type PackageType string

const (
	PackageTypeParcel   PackageType = "PARCEL"
	PackageTypeDocument PackageType = "DOCUMENT"
	PackageTypeMail     PackageType = "MAIL"
)

// PackageStatus is the lifecycle state of a package. Transitions are
// validated centrally by the lifecycle package; DISPOSED and RETRIEVED
// are terminal.
type PackageStatus string

const (
	StatusStored           PackageStatus = "STORED"
	StatusRequestToRelease PackageStatus = "REQUEST_TO_RELEASE"
	StatusReleased         PackageStatus = "RELEASED"
	StatusRequestToDispose PackageStatus = "REQUEST_TO_DISPOSE"
	StatusDisposed         PackageStatus = "DISPOSED"
	StatusRequestToScan    PackageStatus = "REQUEST_TO_SCAN"
	StatusRetrieved        PackageStatus = "RETRIEVED"
)

// IsTerminal reports whether a package can accept further transitions.
func (s PackageStatus) IsTerminal() bool {
	return s == StatusDisposed || s == StatusRetrieved
}

// Package represents one physical mail or parcel item.
type Package struct {
	ID               string        `db:"id" json:"id"`
	RegistrationID   string        `db:"registration_id" json:"registration_id"`
	PackageType      PackageType   `db:"package_type" json:"package_type"`
	Status           PackageStatus `db:"status" json:"status"`
	Description      string        `db:"description" json:"description"`
	ReceivedAt       time.Time     `db:"received_at" json:"received_at"`
	ReleaseAddressID *string       `db:"release_address_id" json:"release_address_id,omitempty"`
	ProxyName        *string       `db:"proxy_name" json:"proxy_name,omitempty"`
	ProxyMobile      *string       `db:"proxy_mobile" json:"proxy_mobile,omitempty"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// PackageFileKind distinguishes the media attached to a package.
type PackageFileKind string

const (
	FileKindPhoto PackageFileKind = "PHOTO"
	FileKindScan  PackageFileKind = "SCAN"
	FileKindProof PackageFileKind = "PROOF"
)

// PackageFile is a stored media record (photo, scanned document, or
// release proof) belonging to a package.
type PackageFile struct {
	ID         string          `db:"id" json:"id"`
	PackageID  string          `db:"package_id" json:"package_id"`
	Kind       PackageFileKind `db:"kind" json:"kind"`
	Path       string          `db:"path" json:"path"`
	MimeType   string          `db:"mime_type" json:"mime_type"`
	SizeBytes  int64           `db:"size_bytes" json:"size_bytes"`
	UploadedBy string          `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// PackageFilter captures listing criteria for packages.
type PackageFilter struct {
	RegistrationID string
	UserID         string
	Status         *PackageStatus
	Type           *PackageType
	Search         string
	DateFrom       *time.Time
	DateTo         *time.Time
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// PackageStatusEvent records one transition for the audit trail.
type PackageStatusEvent struct {
	ID         string        `db:"id" json:"id"`
	PackageID  string        `db:"package_id" json:"package_id"`
	FromStatus PackageStatus `db:"from_status" json:"from_status"`
	ToStatus   PackageStatus `db:"to_status" json:"to_status"`
	Action     string        `db:"action" json:"action"`
	ActorID    string        `db:"actor_id" json:"actor_id"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}
