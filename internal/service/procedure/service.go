package procedure

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
	"github.com/jwalitptl/clinical-api/pkg/metrics"
)

const (
	MsgRequired        = "This field is required."
	MsgInvalidPK       = `Invalid pk "%d" - object does not exist.`
	MsgDatetimeFormat  = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."
	MsgMustBeFuture    = "scheduled_at must be in the future for PLANNED or SCHEDULED procedures."
	MsgSelfAssignOnly  = "Clinicians can only assign procedures to themselves."
	MsgNoPatientAccess = "You do not have access to this patient."
)

type Service struct {
	procedures repository.ProcedureRepository
	patients   repository.PatientRepository
	clinicians repository.ClinicianRepository
	types      repository.ProcedureTypeRepository
	links      repository.CareRelationshipRepository
	guard      *access.Guard
	events     *event.EventService
	metrics    *metrics.Metrics
	now        func() time.Time
}

type Option func(*Service)

// WithClock replaces the clock that scheduled_at is validated against.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repos repository.Repositories, guard *access.Guard, events *event.EventService,
	m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		procedures: repos.Procedures,
		patients:   repos.Patients,
		clinicians: repos.Clinicians,
		types:      repos.ProcedureTypes,
		links:      repos.CareRelationships,
		guard:      guard,
		events:     events,
		metrics:    m,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListProcedures returns the procedures visible to p, latest first.
// Clinicians only see procedures assigned to them.
func (s *Service) ListProcedures(ctx context.Context, p *model.Principal, page repository.Page) ([]*model.ProcedureView, int, error) {
	if err := s.guard.RequireStaff(ctx, p, "procedure.list"); err != nil {
		return nil, 0, err
	}

	var filter repository.ProcedureFilter
	if id, ok := p.ClinicianID(); ok {
		filter.ClinicianID = &id
	}

	procedures, total, err := s.procedures.List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list procedures: %w", err)
	}
	return procedures, total, nil
}

func (s *Service) GetProcedure(ctx context.Context, p *model.Principal, id int64) (*model.ProcedureView, error) {
	if p == nil {
		return nil, errors.Unauthorized(access.MsgNotAuthenticated)
	}
	if p.Role() == model.RoleNone {
		return nil, s.guard.Hide(ctx, p, "procedure.get", "Procedure")
	}

	view, err := s.procedures.GetView(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("Procedure")
		}
		return nil, fmt.Errorf("failed to get procedure: %w", err)
	}

	if clinicianID, ok := p.ClinicianID(); ok && view.Clinician.ID != clinicianID {
		return nil, s.guard.Hide(ctx, p, "procedure.get", "Procedure")
	}
	return view, nil
}

// draft is a create request whose references have been resolved.
type draft struct {
	patient     *model.Patient
	clinician   *model.Clinician
	pt          *model.ProcedureType
	scheduledAt time.Time
	status      model.ProcedureStatus
}

// CreateProcedure validates and stores a procedure. Reference and format
// errors are reported first; scheduling and ownership rules are only
// checked once every field resolved.
func (s *Service) CreateProcedure(ctx context.Context, p *model.Principal, req *model.CreateProcedureRequest) (*model.ProcedureView, error) {
	if err := s.guard.RequireStaff(ctx, p, "procedure.create"); err != nil {
		return nil, err
	}

	d, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, d); err != nil {
		return nil, err
	}

	procedure := &model.Procedure{
		PatientID:       d.patient.ID,
		ClinicianID:     d.clinician.ID,
		ProcedureTypeID: d.pt.ID,
		Name:            strings.TrimSpace(req.Name),
		ScheduledAt:     d.scheduledAt,
		DurationMinutes: req.DurationMinutes,
		Status:          d.status,
		Notes:           req.Notes,
	}
	if procedure.DurationMinutes == nil && d.pt.DefaultDurationMinutes != nil {
		duration := *d.pt.DefaultDurationMinutes
		procedure.DurationMinutes = &duration
	}
	if procedure.Name == "" {
		procedure.Name = d.pt.Name
	}

	if err := s.procedures.Create(ctx, procedure); err != nil {
		if stderrors.Is(err, repository.ErrProtected) {
			return nil, errors.NonField("A referenced record no longer exists.")
		}
		return nil, fmt.Errorf("failed to create procedure: %w", err)
	}

	s.metrics.ProcedureCreated()
	s.events.Record(ctx, model.EventProcedureCreated, map[string]interface{}{
		"id":                procedure.ID,
		"patient_id":        procedure.PatientID,
		"clinician_id":      procedure.ClinicianID,
		"procedure_type_id": procedure.ProcedureTypeID,
		"status":            procedure.Status,
		"scheduled_at":      procedure.ScheduledAt,
	})

	return &model.ProcedureView{
		ID:              procedure.ID,
		ProcedureType:   model.ProcedureTypeSummary{ID: d.pt.ID, Name: d.pt.Name},
		Patient:         model.PatientSummary{ID: d.patient.ID, Name: d.patient.Name},
		Clinician:       d.clinician.Summary(),
		Name:            procedure.Name,
		ScheduledAt:     procedure.ScheduledAt,
		DurationMinutes: procedure.DurationMinutes,
		Status:          procedure.Status,
		Notes:           procedure.Notes,
		CreatedAt:       procedure.CreatedAt,
		UpdatedAt:       procedure.UpdatedAt,
	}, nil
}

func (s *Service) resolve(ctx context.Context, req *model.CreateProcedureRequest) (*draft, error) {
	fields := errors.FieldErrors{}
	d := &draft{status: req.Status}
	if d.status == "" {
		d.status = model.ProcedureStatusPlanned
	}

	if req.PatientID == nil {
		fields.Add("patient_id", MsgRequired)
	} else {
		patient, err := s.patients.GetByID(ctx, *req.PatientID)
		if err := reference(err, fields, "patient_id", *req.PatientID); err != nil {
			return nil, err
		}
		d.patient = patient
	}

	if req.ClinicianID == nil {
		fields.Add("clinician_id", MsgRequired)
	} else {
		clinician, err := s.clinicians.GetByID(ctx, *req.ClinicianID)
		if err := reference(err, fields, "clinician_id", *req.ClinicianID); err != nil {
			return nil, err
		}
		d.clinician = clinician
	}

	if req.ProcedureTypeID == nil {
		fields.Add("procedure_type_id", MsgRequired)
	} else {
		pt, err := s.types.GetByID(ctx, *req.ProcedureTypeID)
		if err == nil && !pt.IsActive {
			err = repository.ErrNotFound
		}
		if err := reference(err, fields, "procedure_type_id", *req.ProcedureTypeID); err != nil {
			return nil, err
		}
		d.pt = pt
	}

	if req.ScheduledAt == nil || strings.TrimSpace(*req.ScheduledAt) == "" {
		fields.Add("scheduled_at", MsgRequired)
	} else if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(*req.ScheduledAt)); err != nil {
		fields.Add("scheduled_at", MsgDatetimeFormat)
	} else {
		d.scheduledAt = t.UTC()
	}

	if err := fields.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// reference records a field error for a missing row and passes other
// failures through.
func reference(err error, fields errors.FieldErrors, field string, id int64) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, repository.ErrNotFound):
		fields.Add(field, fmt.Sprintf(MsgInvalidPK, id))
		return nil
	default:
		return fmt.Errorf("failed to resolve %s: %w", field, err)
	}
}

// authorize applies the scheduling window and, for clinicians, the
// self-assignment and active-care rules.
func (s *Service) authorize(ctx context.Context, p *model.Principal, d *draft) error {
	fields := errors.FieldErrors{}

	if d.status.IsActive() && d.scheduledAt.Before(s.now()) {
		fields.Add("scheduled_at", MsgMustBeFuture)
	}

	if clinicianID, ok := p.ClinicianID(); ok {
		if d.clinician.ID != clinicianID {
			fields.Add("clinician_id", MsgSelfAssignOnly)
		}
		linked, err := s.links.HasActiveLink(ctx, clinicianID, d.patient.ID)
		if err != nil {
			return fmt.Errorf("failed to check care relationship: %w", err)
		}
		if !linked {
			fields.Add("patient_id", MsgNoPatientAccess)
		}
	}

	return fields.Err()
}

// DeleteProcedure soft-deletes a procedure. Admin only.
func (s *Service) DeleteProcedure(ctx context.Context, p *model.Principal, id int64) error {
	if err := s.guard.RequireAdmin(ctx, p, "procedure.delete"); err != nil {
		return err
	}

	if err := s.procedures.SoftDelete(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("Procedure")
		}
		return fmt.Errorf("failed to delete procedure: %w", err)
	}

	s.events.Record(ctx, model.EventProcedureDeleted, map[string]int64{"id": id})
	return nil
}
