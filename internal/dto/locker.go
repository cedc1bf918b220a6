package dto

// AssignLockerRequest binds a registration to an available locker.
type AssignLockerRequest struct {
	RegistrationID string `json:"registration_id" validate:"required"`
	LockerID       string `json:"locker_id" validate:"required"`
}
