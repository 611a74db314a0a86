package patient

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/service/access"
	"github.com/jwalitptl/clinical-api/internal/service/event"
	"github.com/jwalitptl/clinical-api/pkg/errors"
)

const (
	MsgDateFormat     = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	MsgFutureBirth    = "Date of birth cannot be in the future."
	MsgUserTaken      = "patient with this user already exists."
	msgInvalidUserRef = `Invalid pk "%d" - object does not exist.`
)

type Service struct {
	repo   repository.PatientRepository
	links  repository.CareRelationshipRepository
	guard  *access.Guard
	events *event.EventService
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces the clock used to reject future birth dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo repository.PatientRepository, links repository.CareRelationshipRepository,
	guard *access.Guard, events *event.EventService, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		links:  links,
		guard:  guard,
		events: events,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPatients returns the patients visible to p, narrowed by search.
// Admins see every live patient; clinicians see the patients they are
// actively caring for.
func (s *Service) ListPatients(ctx context.Context, p *model.Principal, search string, page repository.Page) ([]*model.Patient, int, error) {
	if err := s.guard.RequireStaff(ctx, p, "patient.list"); err != nil {
		return nil, 0, err
	}

	filter := repository.PatientFilter{Search: strings.TrimSpace(search)}
	if id, ok := p.ClinicianID(); ok {
		filter.ActiveClinicianID = &id
	}

	patients, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

// GetPatient returns a patient visible to p. Patients outside the caller's
// scope are reported as not found.
func (s *Service) GetPatient(ctx context.Context, p *model.Principal, id int64) (*model.Patient, error) {
	if p == nil {
		return nil, errors.Unauthorized(access.MsgNotAuthenticated)
	}

	switch p.Role() {
	case model.RoleAdmin:
	case model.RoleClinician:
		linked, err := s.links.HasActiveLink(ctx, p.Clinician.ID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check care relationship: %w", err)
		}
		if !linked {
			return nil, s.guard.Hide(ctx, p, "patient.get", "Patient")
		}
	default:
		return nil, s.guard.Hide(ctx, p, "patient.get", "Patient")
	}

	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("Patient")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) CreatePatient(ctx context.Context, p *model.Principal, req *model.CreatePatientRequest) (*model.Patient, error) {
	if err := s.guard.RequireAdmin(ctx, p, "patient.create"); err != nil {
		return nil, err
	}

	patient := &model.Patient{}
	if err := s.apply(patient, req); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, s.writeError(err, patient, "create")
	}

	s.events.Record(ctx, model.EventPatientCreated, eventPayload(patient))
	return patient, nil
}

// ReplacePatient overwrites every writable field.
func (s *Service) ReplacePatient(ctx context.Context, p *model.Principal, id int64, req *model.CreatePatientRequest) (*model.Patient, error) {
	if err := s.guard.RequireAdmin(ctx, p, "patient.update"); err != nil {
		return nil, err
	}

	patient, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(patient, req); err != nil {
		return nil, err
	}
	return s.save(ctx, patient)
}

// UpdatePatient changes only the fields present in req.
func (s *Service) UpdatePatient(ctx context.Context, p *model.Principal, id int64, req *model.UpdatePatientRequest) (*model.Patient, error) {
	if err := s.guard.RequireAdmin(ctx, p, "patient.update"); err != nil {
		return nil, err
	}

	patient, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := errors.FieldErrors{}
	if req.Name != nil {
		patient.Name = strings.TrimSpace(*req.Name)
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
	}
	if req.Email != nil {
		patient.Email = strings.TrimSpace(*req.Email)
	}
	if req.DateOfBirth != nil {
		if dob, ok := s.parseBirthDate(*req.DateOfBirth, fields); ok {
			patient.DateOfBirth = dob
		}
	}
	if req.UserID != nil {
		patient.UserID = req.UserID
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}
	return s.save(ctx, patient)
}

func (s *Service) DeletePatient(ctx context.Context, p *model.Principal, id int64) error {
	if err := s.guard.RequireAdmin(ctx, p, "patient.delete"); err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("Patient")
		}
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	s.events.Record(ctx, model.EventPatientDeleted, map[string]int64{"id": id})
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*model.Patient, error) {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("Patient")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) save(ctx context.Context, patient *model.Patient) (*model.Patient, error) {
	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, s.writeError(err, patient, "update")
	}
	s.events.Record(ctx, model.EventPatientUpdated, eventPayload(patient))
	return patient, nil
}

func (s *Service) apply(patient *model.Patient, req *model.CreatePatientRequest) error {
	fields := errors.FieldErrors{}

	patient.Name = strings.TrimSpace(req.Name)
	patient.Email = strings.TrimSpace(req.Email)
	patient.UserID = req.UserID
	patient.Gender = req.Gender
	if patient.Gender == "" {
		patient.Gender = model.GenderUnknown
	}
	if dob, ok := s.parseBirthDate(req.DateOfBirth, fields); ok {
		patient.DateOfBirth = dob
	}
	return fields.Err()
}

func (s *Service) parseBirthDate(raw string, fields errors.FieldErrors) (model.Date, bool) {
	dob, err := model.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		fields.Add("date_of_birth", MsgDateFormat)
		return model.Date{}, false
	}
	if dob.After(model.DateOf(s.now())) {
		fields.Add("date_of_birth", MsgFutureBirth)
		return model.Date{}, false
	}
	return dob, true
}

func (s *Service) writeError(err error, patient *model.Patient, op string) error {
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		return errors.NotFound("Patient")
	case stderrors.Is(err, repository.ErrProtected) && patient.UserID != nil:
		return errors.Validation("user_id", fmt.Sprintf(msgInvalidUserRef, *patient.UserID))
	case stderrors.Is(err, repository.ErrConflict):
		return errors.Validation("user_id", MsgUserTaken)
	default:
		return fmt.Errorf("failed to %s patient: %w", op, err)
	}
}

// eventPayload carries identifiers only; names and emails stay out of the outbox.
func eventPayload(patient *model.Patient) map[string]interface{} {
	return map[string]interface{}{
		"id":      patient.ID,
		"gender":  patient.Gender,
		"user_id": patient.UserID,
	}
}
