package dto

// UpdateRewardRequest advances a claim. PROCESSING requires a proof
// path; PAID closes the claim.
type UpdateRewardRequest struct {
	Status    string  `json:"status" validate:"required,oneof=PROCESSING PAID"`
	ProofPath *string `json:"proof_path,omitempty"`
}
