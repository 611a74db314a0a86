package model

import "time"

// CareRelationship links a patient to a clinician for a period of time.
// It is active while RelationshipEnd is nil and the row is not soft-deleted.
type CareRelationship struct {
	ID                int64      `json:"id" db:"id"`
	PatientID         int64      `json:"patient_id" db:"patient_id"`
	ClinicianID       int64      `json:"clinician_id" db:"clinician_id"`
	RelationshipStart time.Time  `json:"relationship_start" db:"relationship_start"`
	RelationshipEnd   *time.Time `json:"relationship_end" db:"relationship_end"`
	IsPrimary         bool       `json:"is_primary" db:"is_primary"`
	Notes             string     `json:"notes" db:"notes"`
	Timestamps
	SoftDelete
}

// IsActive only looks at the row itself; the patient and clinician
// must also be live for the link to count.
func (r *CareRelationship) IsActive() bool {
	return r.RelationshipEnd == nil && !r.IsDeleted()
}

type CreateCareRelationshipRequest struct {
	PatientID         int64      `json:"patient_id" binding:"required"`
	ClinicianID       int64      `json:"clinician_id" binding:"required"`
	RelationshipStart *time.Time `json:"relationship_start"`
	IsPrimary         bool       `json:"is_primary"`
	Notes             string     `json:"notes"`
}

type EndCareRelationshipRequest struct {
	RelationshipEnd *time.Time `json:"relationship_end"`
}
