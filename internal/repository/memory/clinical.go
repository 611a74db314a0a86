package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type patientRepository struct{ s *Store }

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkUserLocked(patient); err != nil {
		return err
	}

	now := r.s.stamp()
	patient.ID = r.s.nextID()
	patient.CreatedAt, patient.UpdatedAt = now, now
	r.s.patients[patient.ID] = *patient
	return nil
}

func (r *patientRepository) checkUserLocked(patient *model.Patient) error {
	if patient.UserID == nil {
		return nil
	}
	if _, ok := r.s.users[*patient.UserID]; !ok {
		return repository.ErrProtected
	}
	for _, p := range r.s.patients {
		if p.ID != patient.ID && p.UserID != nil && *p.UserID == *patient.UserID {
			return repository.ErrConflict
		}
	}
	return nil
}

func (r *patientRepository) GetByID(ctx context.Context, id int64) (*model.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.patients[id]
	if !ok || p.IsDeleted() {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *patientRepository) GetByUserID(ctx context.Context, userID int64) (*model.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.patients {
		if p.UserID != nil && *p.UserID == userID && !p.IsDeleted() {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *patientRepository) List(ctx context.Context, filter repository.PatientFilter, page repository.Page) ([]*model.Patient, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var linked map[int64]bool
	if filter.ActiveClinicianID != nil {
		linked = map[int64]bool{}
		for _, l := range r.s.links {
			if l.ClinicianID == *filter.ActiveClinicianID && r.s.activeLinkLocked(l) {
				linked[l.PatientID] = true
			}
		}
	}
	search := strings.ToLower(filter.Search)

	var out []*model.Patient
	for _, p := range r.s.patients {
		if p.IsDeleted() {
			continue
		}
		if linked != nil && !linked[p.ID] {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Email), search) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	order := newNameOrder()
	sort.Slice(out, func(i, j int) bool {
		return order.less(out[i].Name, out[i].ID, out[j].Name, out[j].ID)
	})
	return window(out, page), len(out), nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.patients[patient.ID]
	if !ok || existing.IsDeleted() {
		return repository.ErrNotFound
	}
	if err := r.checkUserLocked(patient); err != nil {
		return err
	}

	patient.CreatedAt = existing.CreatedAt
	patient.UpdatedAt = r.s.stamp()
	patient.DeletedAt = nil
	r.s.patients[patient.ID] = *patient
	return nil
}

func (r *patientRepository) SoftDelete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.patients[id]
	if !ok || p.IsDeleted() {
		return repository.ErrNotFound
	}
	now := r.s.stamp()
	p.DeletedAt = ptr(now)
	p.UpdatedAt = now
	r.s.patients[id] = p
	return nil
}

type careRelationshipRepository struct{ s *Store }

func (r *careRelationshipRepository) Create(ctx context.Context, rel *model.CareRelationship) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.patients[rel.PatientID]; !ok {
		return repository.ErrProtected
	}
	if _, ok := r.s.clinicians[rel.ClinicianID]; !ok {
		return repository.ErrProtected
	}
	for _, l := range r.s.links {
		if l.PatientID == rel.PatientID && l.ClinicianID == rel.ClinicianID &&
			l.RelationshipStart.Equal(rel.RelationshipStart) {
			return repository.ErrConflict
		}
	}

	now := r.s.stamp()
	rel.ID = r.s.nextID()
	rel.CreatedAt, rel.UpdatedAt = now, now
	r.s.links[rel.ID] = *rel
	return nil
}

func (r *careRelationshipRepository) GetByID(ctx context.Context, id int64) (*model.CareRelationship, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	l, ok := r.s.links[id]
	if !ok || l.IsDeleted() {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r *careRelationshipRepository) ListForPatient(ctx context.Context, patientID int64) ([]*model.CareRelationship, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.CareRelationship
	for _, l := range r.s.links {
		if l.PatientID != patientID || l.IsDeleted() {
			continue
		}
		if c, ok := r.s.clinicians[l.ClinicianID]; !ok || c.IsDeleted() {
			continue
		}
		l := l
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RelationshipStart.Equal(out[j].RelationshipStart) {
			return out[i].RelationshipStart.After(out[j].RelationshipStart)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *careRelationshipRepository) End(ctx context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.links[id]
	if !ok || l.IsDeleted() || l.RelationshipEnd != nil {
		return repository.ErrNotFound
	}
	l.RelationshipEnd = ptr(at)
	l.UpdatedAt = r.s.stamp()
	r.s.links[id] = l
	return nil
}

func (r *careRelationshipRepository) SoftDelete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.links[id]
	if !ok || l.IsDeleted() {
		return repository.ErrNotFound
	}
	now := r.s.stamp()
	l.DeletedAt = ptr(now)
	l.UpdatedAt = now
	r.s.links[id] = l
	return nil
}

func (r *careRelationshipRepository) HasActiveLink(ctx context.Context, clinicianID, patientID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, l := range r.s.links {
		if l.ClinicianID == clinicianID && l.PatientID == patientID && r.s.activeLinkLocked(l) {
			return true, nil
		}
	}
	return false, nil
}

type procedureTypeRepository struct{ s *Store }

func (r *procedureTypeRepository) Create(ctx context.Context, pt *model.ProcedureType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.types {
		if t.Code == pt.Code {
			return repository.ErrConflict
		}
	}
	if pt.DepartmentID != nil {
		if _, ok := r.s.departments[*pt.DepartmentID]; !ok {
			return repository.ErrProtected
		}
	}

	now := r.s.stamp()
	pt.ID = r.s.nextID()
	pt.CreatedAt, pt.UpdatedAt = now, now
	r.s.types[pt.ID] = *pt
	return nil
}

func (r *procedureTypeRepository) GetByID(ctx context.Context, id int64) (*model.ProcedureType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.types[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *procedureTypeRepository) List(ctx context.Context, page repository.Page) ([]*model.ProcedureType, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*model.ProcedureType, 0, len(r.s.types))
	for _, t := range r.s.types {
		t := t
		out = append(out, &t)
	}
	order := newNameOrder()
	sort.Slice(out, func(i, j int) bool {
		return order.less(out[i].Name, out[i].ID, out[j].Name, out[j].ID)
	})
	return window(out, page), len(out), nil
}

func (r *procedureTypeRepository) Retire(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.types[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.IsActive = false
	t.UpdatedAt = r.s.stamp()
	r.s.types[id] = t
	return nil
}
