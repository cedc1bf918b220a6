package dto

// SubmitKYCRequest is the customer identity submission payload.
type SubmitKYCRequest struct {
	DocumentType string `json:"document_type" validate:"required,oneof=PASSPORT NATIONAL_ID DRIVERS_LICENSE"`
	DocumentRef  string `json:"document_ref" validate:"required"`
}

// KYCVerdictRequest is the admin review payload.
type KYCVerdictRequest struct {
	Status  string  `json:"status" validate:"required,oneof=VERIFIED REJECTED"`
	Remarks *string `json:"remarks,omitempty" validate:"omitempty,max=500"`
}
