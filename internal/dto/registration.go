package dto

// CreateRegistrationRequest subscribes a customer to a plan at a location.
type CreateRegistrationRequest struct {
	LocationID string `json:"location_id" validate:"required"`
	PlanName   string `json:"plan_name" validate:"required,max=100"`
	Months     int    `json:"months" validate:"required,gte=1,lte=36"`
	LockerQty  int    `json:"locker_qty" validate:"gte=0"`
}
