package models

import "time"

// RewardStatus tracks a referral reward claim. PAID is terminal.
type RewardStatus string

const (
	RewardPending    RewardStatus = "PENDING"
	RewardProcessing RewardStatus = "PROCESSING"
	RewardPaid       RewardStatus = "PAID"
)

// RewardClaim is created when a user claims a referral-threshold
// reward and is advanced only by admin action.
type RewardClaim struct {
	ID            string       `db:"id" json:"id"`
	UserID        string       `db:"user_id" json:"user_id"`
	ReferralCount int          `db:"referral_count" json:"referral_count"`
	Status        RewardStatus `db:"status" json:"status"`
	ProofPath     *string      `db:"proof_path" json:"proof_path,omitempty"`
	ProcessedBy   *string      `db:"processed_by" json:"processed_by,omitempty"`
	PaidAt        *time.Time   `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// RewardFilter scopes reward claim listings.
type RewardFilter struct {
	UserID   string
	Status   *RewardStatus
	Page     int
	PageSize int
}
