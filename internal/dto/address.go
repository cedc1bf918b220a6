package dto

// CreateAddressRequest adds a saved shipping address.
type CreateAddressRequest struct {
	Label      string  `json:"label" validate:"max=50"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	Region     string  `json:"region" validate:"required,max=100"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=10"`
	IsDefault  bool    `json:"is_default"`
}

// UpdateAddressRequest mirrors the create payload for edits.
type UpdateAddressRequest struct {
	Label      string  `json:"label" validate:"max=50"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	Region     string  `json:"region" validate:"required,max=100"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=10"`
	IsDefault  bool    `json:"is_default"`
}
