// Package memory implements the repository interfaces over in-process maps.
// It backs the "memory" database driver and the service and HTTP tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

// Store holds every table behind one lock so that multi-table reads see a
// consistent state, the way a snapshot transaction would.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	users       map[int64]model.User
	departments map[int64]model.Department
	clinicians  map[int64]model.Clinician
	patients    map[int64]model.Patient
	links       map[int64]model.CareRelationship
	types       map[int64]model.ProcedureType
	procedures  map[int64]model.Procedure
	outbox      map[uuid.UUID]model.OutboxEvent
}

type Option func(*Store)

// WithClock replaces time.Now for timestamps written by the store.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		users:       map[int64]model.User{},
		departments: map[int64]model.Department{},
		clinicians:  map[int64]model.Clinician{},
		patients:    map[int64]model.Patient{},
		links:       map[int64]model.CareRelationship{},
		types:       map[int64]model.ProcedureType{},
		procedures:  map[int64]model.Procedure{},
		outbox:      map[uuid.UUID]model.OutboxEvent{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:             &userRepository{s},
		Departments:       &departmentRepository{s},
		Clinicians:        &clinicianRepository{s},
		Patients:          &patientRepository{s},
		CareRelationships: &careRelationshipRepository{s},
		ProcedureTypes:    &procedureTypeRepository{s},
		Procedures:        &procedureRepository{s},
		Reports:           &reportRepository{s},
		Outbox:            &outboxRepository{s},
		Ping:              func(ctx context.Context) error { return ctx.Err() },
	}
}

// nextID must be called with the write lock held. Ids are unique across tables.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// activeLinkLocked reports whether l counts for visibility and aggregation.
func (s *Store) activeLinkLocked(l model.CareRelationship) bool {
	if !l.IsActive() {
		return false
	}
	p, ok := s.patients[l.PatientID]
	if !ok || p.IsDeleted() {
		return false
	}
	c, ok := s.clinicians[l.ClinicianID]
	return ok && !c.IsDeleted()
}

func window[T any](items []T, page repository.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return items[page.Offset:end]
}

func ptr[T any](v T) *T {
	return &v
}
