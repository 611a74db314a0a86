package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrConflict
		}
	}

	now := r.s.stamp()
	user.ID = r.s.nextID()
	user.CreatedAt, user.UpdatedAt = now, now

	stored := *user
	stored.Groups = append([]string(nil), user.Groups...)
	sort.Strings(stored.Groups)
	r.s.users[user.ID] = stored
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func copyUser(u model.User) *model.User {
	u.Groups = append([]string(nil), u.Groups...)
	return &u
}

type departmentRepository struct{ s *Store }

func (r *departmentRepository) Create(ctx context.Context, dept *model.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, d := range r.s.departments {
		if d.Name == dept.Name {
			return repository.ErrConflict
		}
	}

	now := r.s.stamp()
	dept.ID = r.s.nextID()
	dept.CreatedAt, dept.UpdatedAt = now, now
	r.s.departments[dept.ID] = *dept
	return nil
}

func (r *departmentRepository) GetByID(ctx context.Context, id int64) (*model.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.departments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *departmentRepository) List(ctx context.Context, page repository.Page) ([]*model.Department, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*model.Department, 0, len(r.s.departments))
	for _, d := range r.s.departments {
		d := d
		all = append(all, &d)
	}
	order := newNameOrder()
	sort.Slice(all, func(i, j int) bool {
		return order.less(all[i].Name, all[i].ID, all[j].Name, all[j].ID)
	})
	return window(all, page), len(all), nil
}

func (r *departmentRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.departments[id]; !ok {
		return repository.ErrNotFound
	}
	for _, c := range r.s.clinicians {
		if c.DepartmentID == id {
			return repository.ErrProtected
		}
	}
	delete(r.s.departments, id)
	return nil
}

type clinicianRepository struct{ s *Store }

func (r *clinicianRepository) Create(ctx context.Context, clinician *model.Clinician) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[clinician.UserID]; !ok {
		return repository.ErrProtected
	}
	if _, ok := r.s.departments[clinician.DepartmentID]; !ok {
		return repository.ErrProtected
	}
	for _, c := range r.s.clinicians {
		if c.UserID == clinician.UserID {
			return repository.ErrConflict
		}
	}

	now := r.s.stamp()
	clinician.ID = r.s.nextID()
	clinician.CreatedAt, clinician.UpdatedAt = now, now
	r.s.clinicians[clinician.ID] = *clinician
	return nil
}

func (r *clinicianRepository) GetByID(ctx context.Context, id int64) (*model.Clinician, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.clinicians[id]
	if !ok || c.IsDeleted() {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *clinicianRepository) GetByUserID(ctx context.Context, userID int64) (*model.Clinician, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.clinicians {
		if c.UserID == userID && !c.IsDeleted() {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

// matchingClinicians must be called with the lock held.
func (s *Store) matchingClinicians(filter repository.ClinicianFilter) []model.Clinician {
	var out []model.Clinician
	for _, c := range s.clinicians {
		if c.IsDeleted() {
			continue
		}
		if filter.DepartmentID != nil && c.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.ClinicianID != nil && c.ID != *filter.ClinicianID {
			continue
		}
		out = append(out, c)
	}
	order := newNameOrder()
	sort.Slice(out, func(i, j int) bool {
		return order.less(out[i].Name, out[i].ID, out[j].Name, out[j].ID)
	})
	return out
}

func (r *clinicianRepository) List(ctx context.Context, filter repository.ClinicianFilter, page repository.Page) ([]*model.Clinician, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.s.matchingClinicians(filter)
	out := make([]*model.Clinician, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return window(out, page), len(out), nil
}

func (r *clinicianRepository) SoftDelete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.clinicians[id]
	if !ok || c.IsDeleted() {
		return repository.ErrNotFound
	}
	now := r.s.stamp()
	c.DeletedAt = ptr(now)
	c.UpdatedAt = now
	r.s.clinicians[id] = c
	return nil
}
