package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type procedureRepository struct{ s *Store }

func (r *procedureRepository) Create(ctx context.Context, procedure *model.Procedure) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.patients[procedure.PatientID]; !ok {
		return repository.ErrProtected
	}
	if _, ok := r.s.clinicians[procedure.ClinicianID]; !ok {
		return repository.ErrProtected
	}
	if _, ok := r.s.types[procedure.ProcedureTypeID]; !ok {
		return repository.ErrProtected
	}

	now := r.s.stamp()
	procedure.ID = r.s.nextID()
	procedure.CreatedAt, procedure.UpdatedAt = now, now
	r.s.procedures[procedure.ID] = *procedure
	return nil
}

func (r *procedureRepository) GetByID(ctx context.Context, id int64) (*model.Procedure, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.procedures[id]
	if !ok || p.IsDeleted() {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// viewLocked joins pr with its references. ok is false when the procedure,
// its patient or its clinician is deleted.
func (s *Store) viewLocked(pr model.Procedure) (*model.ProcedureView, bool) {
	if pr.IsDeleted() {
		return nil, false
	}
	patient, ok := s.patients[pr.PatientID]
	if !ok || patient.IsDeleted() {
		return nil, false
	}
	clinician, ok := s.clinicians[pr.ClinicianID]
	if !ok || clinician.IsDeleted() {
		return nil, false
	}
	pt := s.types[pr.ProcedureTypeID]

	return &model.ProcedureView{
		ID:              pr.ID,
		ProcedureType:   model.ProcedureTypeSummary{ID: pt.ID, Name: pt.Name},
		Patient:         model.PatientSummary{ID: patient.ID, Name: patient.Name},
		Clinician:       clinician.Summary(),
		Name:            pr.Name,
		ScheduledAt:     pr.ScheduledAt,
		DurationMinutes: pr.DurationMinutes,
		Status:          pr.Status,
		Notes:           pr.Notes,
		CreatedAt:       pr.CreatedAt,
		UpdatedAt:       pr.UpdatedAt,
	}, true
}

func (r *procedureRepository) GetView(ctx context.Context, id int64) (*model.ProcedureView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	pr, ok := r.s.procedures[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	view, ok := r.s.viewLocked(pr)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return view, nil
}

func (r *procedureRepository) List(ctx context.Context, filter repository.ProcedureFilter, page repository.Page) ([]*model.ProcedureView, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.ProcedureView
	for _, pr := range r.s.procedures {
		if filter.ClinicianID != nil && pr.ClinicianID != *filter.ClinicianID {
			continue
		}
		if view, ok := r.s.viewLocked(pr); ok {
			out = append(out, view)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		}
		return out[i].ID > out[j].ID
	})
	return window(out, page), len(out), nil
}

func (r *procedureRepository) SoftDelete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pr, ok := r.s.procedures[id]
	if !ok || pr.IsDeleted() {
		return repository.ErrNotFound
	}
	now := r.s.stamp()
	pr.DeletedAt = ptr(now)
	pr.UpdatedAt = now
	r.s.procedures[id] = pr
	return nil
}

type reportRepository struct{ s *Store }

func (r *reportRepository) ClinicianPatientCounts(ctx context.Context, filter repository.ClinicianFilter, page repository.Page) ([]model.ClinicianPatientCount, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	patients := map[int64]map[int64]struct{}{}
	for _, l := range r.s.links {
		if !r.s.activeLinkLocked(l) {
			continue
		}
		if patients[l.ClinicianID] == nil {
			patients[l.ClinicianID] = map[int64]struct{}{}
		}
		patients[l.ClinicianID][l.PatientID] = struct{}{}
	}

	clinicians := r.s.matchingClinicians(filter)
	counts := make([]model.ClinicianPatientCount, 0, len(clinicians))
	for _, c := range clinicians {
		counts = append(counts, model.ClinicianPatientCount{
			Clinician:    c.Summary(),
			PatientCount: len(patients[c.ID]),
		})
	}
	return window(counts, page), len(counts), nil
}

func (r *reportRepository) ScheduledPatients(ctx context.Context, filter repository.ScheduledFilter, page repository.Page) ([]model.ScheduledPatient, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	statuses := map[model.ProcedureStatus]bool{}
	for _, st := range filter.Statuses {
		statuses[st] = true
	}

	var out []model.ScheduledPatient
	for _, pr := range r.s.procedures {
		if pr.IsDeleted() || pr.ProcedureTypeID != filter.ProcedureTypeID {
			continue
		}
		if len(statuses) > 0 && !statuses[pr.Status] {
			continue
		}
		if filter.ClinicianID != nil && pr.ClinicianID != *filter.ClinicianID {
			continue
		}
		patient, ok := r.s.patients[pr.PatientID]
		if !ok || patient.IsDeleted() {
			continue
		}
		clinician, ok := r.s.clinicians[pr.ClinicianID]
		if !ok || clinician.IsDeleted() {
			continue
		}
		if filter.DepartmentID != nil && clinician.DepartmentID != *filter.DepartmentID {
			continue
		}
		day := model.DateOf(pr.ScheduledAt)
		if filter.DateFrom != nil && filter.DateFrom.After(day) {
			continue
		}
		if filter.DateTo != nil && day.After(*filter.DateTo) {
			continue
		}

		out = append(out, model.ScheduledPatient{
			Procedure: model.ScheduledProcedureSummary{
				ID:              pr.ID,
				Status:          pr.Status,
				ScheduledAt:     pr.ScheduledAt,
				DurationMinutes: pr.DurationMinutes,
			},
			Patient:   model.PatientSummary{ID: patient.ID, Name: patient.Name, Gender: patient.Gender},
			Clinician: clinician.Summary(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Procedure, out[j].Procedure
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		return a.ID < b.ID
	})
	return window(out, page), len(out), nil
}

type outboxRepository struct{ s *Store }

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := r.s.stamp()
	event.Status = model.OutboxStatusPending
	event.CreatedAt, event.UpdatedAt = now, now
	r.s.outbox[event.ID] = *event
	return nil
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.stamp()
	var due []*model.OutboxEvent
	for _, e := range r.s.outbox {
		if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusRetry {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		e := e
		due = append(due, &e)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *outboxRepository) update(id uuid.UUID, fn func(e *model.OutboxEvent)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&e)
	e.UpdatedAt = r.s.stamp()
	r.s.outbox[id] = e
	return nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(e *model.OutboxEvent) {
		e.Status = model.OutboxStatusProcessed
		e.ErrorMessage = nil
		e.ProcessedAt = ptr(r.s.stamp())
	})
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	return r.update(id, func(e *model.OutboxEvent) {
		e.Status = model.OutboxStatusRetry
		e.ErrorMessage = ptr(errMsg)
		e.RetryAt = ptr(retryAt)
		e.RetryCount++
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.update(id, func(e *model.OutboxEvent) {
		e.Status = model.OutboxStatusFailed
		e.ErrorMessage = ptr(errMsg)
		e.RetryCount++
	})
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.s.outbox, id)
			n++
		}
	}
	return n, nil
}
