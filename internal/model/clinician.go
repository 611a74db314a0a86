package model

type Clinician struct {
	ID           int64  `json:"id" db:"id"`
	UserID       int64  `json:"user_id" db:"user_id"`
	DepartmentID int64  `json:"department_id" db:"department_id"`
	Name         string `json:"name" db:"name"`
	Timestamps
	SoftDelete
}

type ClinicianSummary struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

func (c *Clinician) Summary() ClinicianSummary {
	return ClinicianSummary{ID: c.ID, Name: c.Name}
}

type CreateClinicianRequest struct {
	UserID       int64  `json:"user_id" binding:"required"`
	DepartmentID int64  `json:"department_id" binding:"required"`
	Name         string `json:"name" binding:"required,max=255"`
}
