package dto

import (
	"time"

	"github.com/ja-yanga/keep-ph-api/internal/models"
)

// PackageActionRequest is the single mutation payload for package
// transitions. Action-specific fields are validated by the service.
type PackageActionRequest struct {
	Action      string  `json:"action" validate:"required"`
	AddressID   *string `json:"address_id,omitempty"`
	ProxyName   *string `json:"proxy_name,omitempty"`
	ProxyMobile *string `json:"proxy_mobile,omitempty" validate:"omitempty,ph_mobile"`
	Remarks     *string `json:"remarks,omitempty"`
}

// PickupOnBehalf reports whether the request carries proxy pickup details.
func (r PackageActionRequest) PickupOnBehalf() bool {
	return r.ProxyName != nil && *r.ProxyName != ""
}

// CreatePackageRequest is the admin intake payload.
type CreatePackageRequest struct {
	RegistrationID string  `json:"registration_id" validate:"required"`
	PackageType    string  `json:"package_type" validate:"required,oneof=PARCEL DOCUMENT MAIL"`
	Description    string  `json:"description" validate:"max=500"`
	PhotoPath      *string `json:"photo_path,omitempty"`
}

// PackageItem is the list/detail projection returned to clients.
type PackageItem struct {
	ID             string               `db:"id" json:"id"`
	RegistrationID string               `db:"registration_id" json:"registration_id"`
	PackageType    models.PackageType   `db:"package_type" json:"package_type"`
	Status         models.PackageStatus `db:"status" json:"status"`
	Description    string               `db:"description" json:"description"`
	ReceivedAt     time.Time            `db:"received_at" json:"received_at"`
	OwnerName      string               `db:"owner_name" json:"owner_name,omitempty"`
	Files          []models.PackageFile `json:"files,omitempty"`
}

// AttachFileRequest records an uploaded media file against a package.
type AttachFileRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=PHOTO SCAN PROOF"`
	Path     string `json:"path" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
	Size     int64  `json:"size" validate:"gte=0"`
}
