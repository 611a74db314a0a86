// Package testutil seeds an in-memory store with the fixtures the service
// and HTTP tests share.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/repository/memory"
	"github.com/jwalitptl/clinical-api/pkg/security"
)

// Password is the password of every seeded user.
const Password = "password123"

var (
	hashOnce sync.Once
	hash     string
)

// Hasher is the cheap hasher used for seeded users.
func Hasher() security.PasswordHasher {
	return security.NewBcryptHasher(bcrypt.MinCost)
}

func passwordHash(t *testing.T) string {
	hashOnce.Do(func() {
		h, err := Hasher().Hash(Password)
		require.NoError(t, err)
		hash = h
	})
	return hash
}

// World is a seeded store with a controllable clock.
type World struct {
	t     *testing.T
	mu    sync.Mutex
	now   time.Time
	Store *memory.Store
	Repos repository.Repositories
}

// NewWorld starts the clock at noon UTC on 2024-06-01.
func NewWorld(t *testing.T) *World {
	t.Helper()
	w := &World{t: t, now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	w.Store = memory.New(memory.WithClock(w.Now))
	w.Repos = w.Store.Repositories()
	return w
}

func (w *World) Now() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now
}

func (w *World) Advance(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = w.now.Add(d)
}

func (w *World) ctx() context.Context {
	return context.Background()
}

func (w *World) User(email string, groups ...string) *model.User {
	w.t.Helper()
	u := &model.User{
		Email:        email,
		Name:         email,
		PasswordHash: passwordHash(w.t),
		IsActive:     true,
		Groups:       groups,
	}
	require.NoError(w.t, w.Repos.Users.Create(w.ctx(), u))
	return u
}

// AdminUser creates a member of the admin group.
func (w *World) AdminUser(email string) *model.User {
	return w.User(email, model.DefaultAdminGroup)
}

func (w *World) Department(name string) *model.Department {
	w.t.Helper()
	d := &model.Department{Name: name, IsActive: true}
	require.NoError(w.t, w.Repos.Departments.Create(w.ctx(), d))
	return d
}

// Clinician creates a clinician together with its login.
func (w *World) Clinician(name string, departmentID int64) *model.Clinician {
	w.t.Helper()
	u := w.User(name + "@clinic.test")
	c := &model.Clinician{UserID: u.ID, DepartmentID: departmentID, Name: name}
	require.NoError(w.t, w.Repos.Clinicians.Create(w.ctx(), c))
	return c
}

func (w *World) Patient(name string) *model.Patient {
	w.t.Helper()
	p := &model.Patient{
		Name:        name,
		Gender:      model.GenderUnknown,
		DateOfBirth: model.NewDate(1980, time.January, 1),
	}
	require.NoError(w.t, w.Repos.Patients.Create(w.ctx(), p))
	return p
}

// Link starts an active care relationship now.
func (w *World) Link(clinicianID, patientID int64) *model.CareRelationship {
	w.t.Helper()
	l := &model.CareRelationship{
		PatientID:         patientID,
		ClinicianID:       clinicianID,
		RelationshipStart: w.Now(),
	}
	require.NoError(w.t, w.Repos.CareRelationships.Create(w.ctx(), l))
	// distinct start times keep repeated links unique
	w.Advance(time.Second)
	return l
}

func (w *World) EndLink(id int64) {
	w.t.Helper()
	require.NoError(w.t, w.Repos.CareRelationships.End(w.ctx(), id, w.Now()))
}

func (w *World) DeleteLink(id int64) {
	w.t.Helper()
	require.NoError(w.t, w.Repos.CareRelationships.SoftDelete(w.ctx(), id))
}

func (w *World) DeletePatient(id int64) {
	w.t.Helper()
	require.NoError(w.t, w.Repos.Patients.SoftDelete(w.ctx(), id))
}

func (w *World) DeleteClinician(id int64) {
	w.t.Helper()
	require.NoError(w.t, w.Repos.Clinicians.SoftDelete(w.ctx(), id))
}

func (w *World) ProcedureType(name, code string) *model.ProcedureType {
	w.t.Helper()
	duration := 30
	pt := &model.ProcedureType{Name: name, Code: code, DefaultDurationMinutes: &duration, IsActive: true}
	require.NoError(w.t, w.Repos.ProcedureTypes.Create(w.ctx(), pt))
	return pt
}

func (w *World) Procedure(patientID, clinicianID, typeID int64, at time.Time, status model.ProcedureStatus) *model.Procedure {
	w.t.Helper()
	pr := &model.Procedure{
		PatientID:       patientID,
		ClinicianID:     clinicianID,
		ProcedureTypeID: typeID,
		Name:            "procedure",
		ScheduledAt:     at.UTC(),
		Status:          status,
	}
	require.NoError(w.t, w.Repos.Procedures.Create(w.ctx(), pr))
	return pr
}

// AsAdmin is an admin principal for u.
func AsAdmin(u *model.User) *model.Principal {
	return &model.Principal{UserID: u.ID, Email: u.Email, Admin: true}
}

// AsClinician is a clinician principal for c.
func AsClinician(c *model.Clinician) *model.Principal {
	return &model.Principal{UserID: c.UserID, Clinician: c}
}

// AsNobody is an authenticated caller with neither role.
func AsNobody(u *model.User) *model.Principal {
	return &model.Principal{UserID: u.ID, Email: u.Email}
}
