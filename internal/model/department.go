package model

// Department groups clinicians and, optionally, procedure types.
// A department that still has clinicians cannot be deleted.
type Department struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	IsActive    bool   `json:"is_active" db:"is_active"`
	Timestamps
}

type DepartmentSummary struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

func (d *Department) Summary() DepartmentSummary {
	return DepartmentSummary{ID: d.ID, Name: d.Name}
}

type CreateDepartmentRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}
