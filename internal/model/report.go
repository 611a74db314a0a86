package model

import "time"

type ClinicianPatientCount struct {
	Clinician    ClinicianSummary `json:"clinician"`
	PatientCount int              `json:"patient_count"`
}

// ClinicianPatientCountPage is the response of the clinician patient-count report.
// Department is null when the report was not restricted to one department.
type ClinicianPatientCountPage struct {
	Department *DepartmentSummary      `json:"department"`
	Count      int                     `json:"count"`
	Next       *string                 `json:"next"`
	Previous   *string                 `json:"previous"`
	Results    []ClinicianPatientCount `json:"results"`
}

type ScheduledProcedureSummary struct {
	ID              int64           `json:"id"`
	Status          ProcedureStatus `json:"status"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	DurationMinutes *int            `json:"duration_minutes"`
}

// ScheduledPatient is one row of the scheduled-patients report
type ScheduledPatient struct {
	Procedure ScheduledProcedureSummary `json:"procedure"`
	Patient   PatientSummary            `json:"patient"`
	Clinician ClinicianSummary          `json:"clinician"`
}
