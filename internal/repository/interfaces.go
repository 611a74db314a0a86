package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jwalitptl/clinical-api/internal/model"
)

var (
	// ErrNotFound is returned for missing and soft-deleted rows alike
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint would be violated
	ErrConflict = errors.New("record already exists")
	// ErrProtected is returned when a row is still referenced
	ErrProtected = errors.New("record is referenced by other records")
)

// Page is a limit/offset window over an ordered result set
type Page struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type DepartmentRepository interface {
	Create(ctx context.Context, dept *model.Department) error
	GetByID(ctx context.Context, id int64) (*model.Department, error)
	List(ctx context.Context, page Page) ([]*model.Department, int, error)
	Delete(ctx context.Context, id int64) error
}

type ClinicianFilter struct {
	DepartmentID *int64
	ClinicianID  *int64
}

type ClinicianRepository interface {
	Create(ctx context.Context, clinician *model.Clinician) error
	GetByID(ctx context.Context, id int64) (*model.Clinician, error)
	// GetByUserID returns the live clinician profile owned by the user.
	GetByUserID(ctx context.Context, userID int64) (*model.Clinician, error)
	List(ctx context.Context, filter ClinicianFilter, page Page) ([]*model.Clinician, int, error)
	SoftDelete(ctx context.Context, id int64) error
}

type PatientFilter struct {
	// ActiveClinicianID restricts to patients with an active link to the clinician
	ActiveClinicianID *int64
	// Search is a case-insensitive substring of name or email
	Search string
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	GetByID(ctx context.Context, id int64) (*model.Patient, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Patient, error)
	List(ctx context.Context, filter PatientFilter, page Page) ([]*model.Patient, int, error)
	Update(ctx context.Context, patient *model.Patient) error
	SoftDelete(ctx context.Context, id int64) error
}

type CareRelationshipRepository interface {
	Create(ctx context.Context, rel *model.CareRelationship) error
	GetByID(ctx context.Context, id int64) (*model.CareRelationship, error)
	ListForPatient(ctx context.Context, patientID int64) ([]*model.CareRelationship, error)
	End(ctx context.Context, id int64, at time.Time) error
	SoftDelete(ctx context.Context, id int64) error
	// HasActiveLink reports whether an active link exists between the two.
	HasActiveLink(ctx context.Context, clinicianID, patientID int64) (bool, error)
}

type ProcedureTypeRepository interface {
	Create(ctx context.Context, pt *model.ProcedureType) error
	GetByID(ctx context.Context, id int64) (*model.ProcedureType, error)
	List(ctx context.Context, page Page) ([]*model.ProcedureType, int, error)
	Retire(ctx context.Context, id int64) error
}

type ProcedureFilter struct {
	ClinicianID *int64
}

type ProcedureRepository interface {
	Create(ctx context.Context, procedure *model.Procedure) error
	GetByID(ctx context.Context, id int64) (*model.Procedure, error)
	// GetView returns the procedure with its referenced names; procedures whose
	// patient or clinician is soft-deleted are not found.
	GetView(ctx context.Context, id int64) (*model.ProcedureView, error)
	List(ctx context.Context, filter ProcedureFilter, page Page) ([]*model.ProcedureView, int, error)
	SoftDelete(ctx context.Context, id int64) error
}

type ScheduledFilter struct {
	ProcedureTypeID int64
	Statuses        []model.ProcedureStatus
	DateFrom        *model.Date
	DateTo          *model.Date
	DepartmentID    *int64
	ClinicianID     *int64
}

type ReportRepository interface {
	// ClinicianPatientCounts returns live clinicians matching filter ordered by
	// name then id, each with the number of distinct patients under active care,
	// together with the total number of matching clinicians.
	ClinicianPatientCounts(ctx context.Context, filter ClinicianFilter, page Page) ([]model.ClinicianPatientCount, int, error)
	ScheduledPatients(ctx context.Context, filter ScheduledFilter, page Page) ([]model.ScheduledPatient, int, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	// ClaimPending returns up to limit events that are due, locking them
	// against concurrent workers.
	ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// Repositories bundles every repository of one storage backend
type Repositories struct {
	Users             UserRepository
	Departments       DepartmentRepository
	Clinicians        ClinicianRepository
	Patients          PatientRepository
	CareRelationships CareRelationshipRepository
	ProcedureTypes    ProcedureTypeRepository
	Procedures        ProcedureRepository
	Reports           ReportRepository
	Outbox            OutboxRepository
	Ping              func(ctx context.Context) error
}
