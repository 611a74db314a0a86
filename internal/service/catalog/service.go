// Package catalog maintains the reference data the clinical workflows build
// on: departments, clinicians, care relationships and procedure types.
// Writes are reserved to patient administrators.
package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/service/access"
	"github.com/jwalitptl/clinical-api/pkg/errors"
)

const msgInvalidPK = `Invalid pk "%d" - object does not exist.`

// PatientReader resolves a patient within the caller's visible set.
type PatientReader interface {
	GetPatient(ctx context.Context, p *model.Principal, id int64) (*model.Patient, error)
}

type Service struct {
	users       repository.UserRepository
	departments repository.DepartmentRepository
	clinicians  repository.ClinicianRepository
	patients    repository.PatientRepository
	links       repository.CareRelationshipRepository
	types       repository.ProcedureTypeRepository
	visible     PatientReader
	guard       *access.Guard
	now         func() time.Time
}

type Option func(*Service)

// WithClock replaces the clock used for default relationship start and end times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repos repository.Repositories, visible PatientReader, guard *access.Guard, opts ...Option) *Service {
	s := &Service{
		users:       repos.Users,
		departments: repos.Departments,
		clinicians:  repos.Clinicians,
		patients:    repos.Patients,
		links:       repos.CareRelationships,
		types:       repos.ProcedureTypes,
		visible:     visible,
		guard:       guard,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// notFound maps a repository miss onto a 404 for resource.
func notFound(err error, resource, op string) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFound(resource)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// checkRef adds a field error when the referenced row does not exist.
func checkRef(err error, fields errors.FieldErrors, field string, id int64) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, repository.ErrNotFound):
		fields.Add(field, fmt.Sprintf(msgInvalidPK, id))
		return nil
	default:
		return fmt.Errorf("failed to resolve %s: %w", field, err)
	}
}
