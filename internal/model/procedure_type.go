package model

// ProcedureType is a catalog entry. Retired types (IsActive false) cannot be
// used for new procedures but existing procedures keep referencing them.
type ProcedureType struct {
	ID                     int64  `json:"id" db:"id"`
	Name                   string `json:"name" db:"name"`
	Code                   string `json:"code" db:"code"`
	DefaultDurationMinutes *int   `json:"default_duration_minutes" db:"default_duration_minutes"`
	DepartmentID           *int64 `json:"department_id" db:"department_id"`
	IsActive               bool   `json:"is_active" db:"is_active"`
	Timestamps
}

type ProcedureTypeSummary struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type CreateProcedureTypeRequest struct {
	Name                   string `json:"name" binding:"required,max=255"`
	Code                   string `json:"code" binding:"required,max=64"`
	DefaultDurationMinutes *int   `json:"default_duration_minutes" binding:"omitempty,min=1"`
	DepartmentID           *int64 `json:"department_id"`
	IsActive               *bool  `json:"is_active"`
}
