package model

type Gender string

const (
	GenderMale    Gender = "MALE"
	GenderFemale  Gender = "FEMALE"
	GenderOther   Gender = "OTHER"
	GenderUnknown Gender = "UNKNOWN"
)

type Patient struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Gender      Gender `json:"gender" db:"gender"`
	Email       string `json:"email" db:"email"`
	DateOfBirth Date   `json:"date_of_birth" db:"date_of_birth"`
	UserID      *int64 `json:"user_id" db:"user_id"`
	Timestamps
	SoftDelete
}

type PatientSummary struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Gender Gender `json:"gender,omitempty" db:"gender"`
}

// CreatePatientRequest is also used for full (PUT) updates.
// date_of_birth is parsed by the service so format errors can be keyed by field.
type CreatePatientRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Gender      Gender `json:"gender" binding:"omitempty,oneof=MALE FEMALE OTHER UNKNOWN"`
	Email       string `json:"email" binding:"omitempty,email,max=254"`
	DateOfBirth string `json:"date_of_birth" binding:"required"`
	UserID      *int64 `json:"user_id"`
}

// UpdatePatientRequest carries a partial (PATCH) update.
type UpdatePatientRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Gender      *Gender `json:"gender" binding:"omitempty,oneof=MALE FEMALE OTHER UNKNOWN"`
	Email       *string `json:"email" binding:"omitempty,email,max=254"`
	DateOfBirth *string `json:"date_of_birth"`
	UserID      *int64  `json:"user_id"`
}
