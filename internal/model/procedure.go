package model

import "time"

type ProcedureStatus string

const (
	ProcedureStatusPlanned   ProcedureStatus = "PLANNED"
	ProcedureStatusScheduled ProcedureStatus = "SCHEDULED"
	ProcedureStatusCompleted ProcedureStatus = "COMPLETED"
	ProcedureStatusCancelled ProcedureStatus = "CANCELLED"
	ProcedureStatusNoShow    ProcedureStatus = "NO_SHOW"
	ProcedureStatusVoid      ProcedureStatus = "VOID"
)

// ActiveStatuses are the statuses that require a future schedule and that
// the scheduled-patients report includes.
var ActiveStatuses = []ProcedureStatus{ProcedureStatusPlanned, ProcedureStatusScheduled}

func (s ProcedureStatus) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

type Procedure struct {
	ID              int64           `json:"id" db:"id"`
	PatientID       int64           `json:"patient_id" db:"patient_id"`
	ClinicianID     int64           `json:"clinician_id" db:"clinician_id"`
	ProcedureTypeID int64           `json:"procedure_type_id" db:"procedure_type_id"`
	Name            string          `json:"name" db:"name"`
	ScheduledAt     time.Time       `json:"scheduled_at" db:"scheduled_at"`
	DurationMinutes *int            `json:"duration_minutes" db:"duration_minutes"`
	Status          ProcedureStatus `json:"status" db:"status"`
	Notes           string          `json:"notes" db:"notes"`
	Timestamps
	SoftDelete
}

// ProcedureView is a procedure joined with the names of what it references
type ProcedureView struct {
	ID              int64                `json:"id"`
	ProcedureType   ProcedureTypeSummary `json:"procedure_type"`
	Patient         PatientSummary       `json:"patient"`
	Clinician       ClinicianSummary     `json:"clinician"`
	Name            string               `json:"name"`
	ScheduledAt     time.Time            `json:"scheduled_at"`
	DurationMinutes *int                 `json:"duration_minutes"`
	Status          ProcedureStatus      `json:"status"`
	Notes           string               `json:"notes"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// CreateProcedureRequest uses pointers so that omitted references can be
// reported as missing rather than as id 0. scheduled_at is parsed by the
// service so format errors are keyed by field.
type CreateProcedureRequest struct {
	PatientID       *int64          `json:"patient_id"`
	ClinicianID     *int64          `json:"clinician_id"`
	ProcedureTypeID *int64          `json:"procedure_type_id"`
	Name            string          `json:"name" binding:"max=255"`
	ScheduledAt     *string         `json:"scheduled_at"`
	DurationMinutes *int            `json:"duration_minutes" binding:"omitempty,min=1"`
	Status          ProcedureStatus `json:"status" binding:"omitempty,oneof=PLANNED SCHEDULED COMPLETED CANCELLED NO_SHOW VOID"`
	Notes           string          `json:"notes"`
}
