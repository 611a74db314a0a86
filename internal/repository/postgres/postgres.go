package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinical-api/internal/repository"
)

// NewRepositories wires every postgres repository around db.
func NewRepositories(db *sqlx.DB) repository.Repositories {
	base := NewBaseRepository(db)
	return repository.Repositories{
		Users:             NewUserRepository(base),
		Departments:       NewDepartmentRepository(base),
		Clinicians:        NewClinicianRepository(base),
		Patients:          NewPatientRepository(base),
		CareRelationships: NewCareRelationshipRepository(base),
		ProcedureTypes:    NewProcedureTypeRepository(base),
		Procedures:        NewProcedureRepository(base),
		Reports:           NewReportRepository(base),
		Outbox:            NewOutboxRepository(base),
		Ping:              db.PingContext,
	}
}
