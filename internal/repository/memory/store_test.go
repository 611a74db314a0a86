package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/testutil"
)

var ctx = context.Background()

func names(patients []*model.Patient) []string {
	out := make([]string, 0, len(patients))
	for _, p := range patients {
		out = append(out, p.Name)
	}
	return out
}

func TestPatientListScopedToActiveLinks(t *testing.T) {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	doc := w.Clinician("Dr Who", dept.ID)
	other := w.Clinician("Dr Other", dept.ID)

	active := w.Patient("Active")
	ended := w.Patient("Ended")
	removedLink := w.Patient("Removed Link")
	removedPatient := w.Patient("Removed Patient")
	notMine := w.Patient("Not Mine")

	w.Link(doc.ID, active.ID)
	w.EndLink(w.Link(doc.ID, ended.ID).ID)
	w.DeleteLink(w.Link(doc.ID, removedLink.ID).ID)
	w.Link(doc.ID, removedPatient.ID)
	w.DeletePatient(removedPatient.ID)
	w.Link(other.ID, notMine.ID)

	got, total, err := w.Repos.Patients.List(ctx, repository.PatientFilter{ActiveClinicianID: &doc.ID}, repository.Page{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"Active"}, names(got))

	all, total, err := w.Repos.Patients.List(ctx, repository.PatientFilter{}, repository.Page{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 4, total, "soft-deleted patients are excluded")
	assert.Equal(t, []string{"Active", "Ended", "Not Mine", "Removed Link"}, names(all))
}

func TestPatientListNoLinkWhenClinicianDeleted(t *testing.T) {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	doc := w.Clinician("Dr Who", dept.ID)
	p := w.Patient("Ann")
	w.Link(doc.ID, p.ID)
	w.DeleteClinician(doc.ID)

	got, total, err := w.Repos.Patients.List(ctx, repository.PatientFilter{ActiveClinicianID: &doc.ID}, repository.Page{Limit: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)

	ok, err := w.Repos.CareRelationships.HasActiveLink(ctx, doc.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPatientListSearchAndWindow(t *testing.T) {
	w := testutil.NewWorld(t)
	for _, n := range []string{"Anna", "Bob", "Hannah", "Joanne"} {
		w.Patient(n)
	}

	got, total, err := w.Repos.Patients.List(ctx, repository.PatientFilter{Search: "ANN"}, repository.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"Anna", "Hannah"}, names(got))

	got, _, err = w.Repos.Patients.List(ctx, repository.PatientFilter{Search: "ann"}, repository.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Joanne"}, names(got))

	got, _, err = w.Repos.Patients.List(ctx, repository.PatientFilter{}, repository.Page{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPatientUserUniqueness(t *testing.T) {
	w := testutil.NewWorld(t)
	u := w.User("pat@example.com")

	first := &model.Patient{Name: "A", UserID: &u.ID}
	require.NoError(t, w.Repos.Patients.Create(ctx, first))

	second := &model.Patient{Name: "B", UserID: &u.ID}
	assert.ErrorIs(t, w.Repos.Patients.Create(ctx, second), repository.ErrConflict)

	missing := int64(999)
	assert.ErrorIs(t, w.Repos.Patients.Create(ctx, &model.Patient{Name: "C", UserID: &missing}), repository.ErrProtected)

	found, err := w.Repos.Patients.GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestUserEmailIsCaseInsensitive(t *testing.T) {
	w := testutil.NewWorld(t)
	w.User("Doc@Example.com")

	err := w.Repos.Users.Create(ctx, &model.User{Email: "doc@example.com"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	u, err := w.Repos.Users.GetByEmail(ctx, "DOC@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "Doc@Example.com", u.Email)
}

func TestDepartmentDeleteProtectedByClinicians(t *testing.T) {
	w := testutil.NewWorld(t)
	busy := w.Department("Busy")
	empty := w.Department("Empty")
	doc := w.Clinician("Dr Who", busy.ID)
	w.DeleteClinician(doc.ID)

	assert.ErrorIs(t, w.Repos.Departments.Delete(ctx, busy.ID), repository.ErrProtected)
	assert.NoError(t, w.Repos.Departments.Delete(ctx, empty.ID))
	assert.ErrorIs(t, w.Repos.Departments.Delete(ctx, empty.ID), repository.ErrNotFound)
}

func TestCareRelationshipUniqueStart(t *testing.T) {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	doc := w.Clinician("Dr Who", dept.ID)
	p := w.Patient("Ann")

	start := w.Now()
	require.NoError(t, w.Repos.CareRelationships.Create(ctx, &model.CareRelationship{PatientID: p.ID, ClinicianID: doc.ID, RelationshipStart: start}))
	err := w.Repos.CareRelationships.Create(ctx, &model.CareRelationship{PatientID: p.ID, ClinicianID: doc.ID, RelationshipStart: start})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestEndOnlyOnce(t *testing.T) {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	doc := w.Clinician("Dr Who", dept.ID)
	l := w.Link(doc.ID, w.Patient("Ann").ID)

	require.NoError(t, w.Repos.CareRelationships.End(ctx, l.ID, w.Now()))
	assert.ErrorIs(t, w.Repos.CareRelationships.End(ctx, l.ID, w.Now()), repository.ErrNotFound)
}

func TestClinicianPatientCountsDistinctPatients(t *testing.T) {
	w := testutil.NewWorld(t)
	cardio := w.Department("Cardiology")
	neuro := w.Department("Neurology")
	alice := w.Clinician("Alice", cardio.ID)
	bob := w.Clinician("Bob", cardio.ID)
	w.Clinician("Carol", neuro.ID)

	p1, p2 := w.Patient("P1"), w.Patient("P2")
	w.Link(alice.ID, p1.ID)
	w.Link(alice.ID, p1.ID) // second active link to the same patient
	w.Link(alice.ID, p2.ID)
	w.EndLink(w.Link(bob.ID, p2.ID).ID)

	counts, total, err := w.Repos.Reports.ClinicianPatientCounts(ctx, repository.ClinicianFilter{DepartmentID: &cardio.ID}, repository.Page{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, counts, 2)
	assert.Equal(t, "Alice", counts[0].Clinician.Name)
	assert.Equal(t, 2, counts[0].PatientCount)
	assert.Equal(t, "Bob", counts[1].Clinician.Name)
	assert.Equal(t, 0, counts[1].PatientCount)
}

func TestScheduledPatientsFilters(t *testing.T) {
	w := testutil.NewWorld(t)
	cardio := w.Department("Cardiology")
	neuro := w.Department("Neurology")
	alice := w.Clinician("Alice", cardio.ID)
	carol := w.Clinician("Carol", neuro.ID)
	ecg := w.ProcedureType("ECG", "ECG")
	mri := w.ProcedureType("MRI", "MRI")
	p := w.Patient("Ann")

	day := func(d int) time.Time { return time.Date(2024, 7, d, 9, 0, 0, 0, time.UTC) }
	first := w.Procedure(p.ID, alice.ID, ecg.ID, day(2), model.ProcedureStatusPlanned)
	second := w.Procedure(p.ID, carol.ID, ecg.ID, day(3), model.ProcedureStatusScheduled)
	w.Procedure(p.ID, alice.ID, ecg.ID, day(4), model.ProcedureStatusCompleted)
	w.Procedure(p.ID, alice.ID, mri.ID, day(2), model.ProcedureStatusPlanned)

	base := repository.ScheduledFilter{ProcedureTypeID: ecg.ID, Statuses: model.ActiveStatuses}

	rows, total, err := w.Repos.Reports.ScheduledPatients(ctx, base, repository.Page{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, first.ID, rows[0].Procedure.ID)
	assert.Equal(t, second.ID, rows[1].Procedure.ID)

	byDept := base
	byDept.DepartmentID = &neuro.ID
	rows, _, err = w.Repos.Reports.ScheduledPatients(ctx, byDept, repository.Page{Limit: 20})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Carol", rows[0].Clinician.Name)

	from := model.NewDate(2024, time.July, 3)
	to := model.NewDate(2024, time.July, 3)
	byDate := base
	byDate.DateFrom, byDate.DateTo = &from, &to
	rows, _, err = w.Repos.Reports.ScheduledPatients(ctx, byDate, repository.Page{Limit: 20})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].Procedure.ID)

	w.DeleteClinician(carol.ID)
	_, total, err = w.Repos.Reports.ScheduledPatients(ctx, base, repository.Page{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestProcedureViewHiddenWhenPatientDeleted(t *testing.T) {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	doc := w.Clinician("Dr Who", dept.ID)
	pt := w.ProcedureType("ECG", "ECG")
	p := w.Patient("Ann")
	pr := w.Procedure(p.ID, doc.ID, pt.ID, w.Now().Add(time.Hour), model.ProcedureStatusPlanned)

	view, err := w.Repos.Procedures.GetView(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", view.Patient.Name)
	assert.Equal(t, "ECG", view.ProcedureType.Name)

	w.DeletePatient(p.ID)
	_, err = w.Repos.Procedures.GetView(ctx, pr.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, total, err := w.Repos.Procedures.List(ctx, repository.ProcedureFilter{}, repository.Page{Limit: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestOutboxDeleteProcessedBefore(t *testing.T) {
	w := testutil.NewWorld(t)
	outbox := w.Repos.Outbox

	done := &model.OutboxEvent{EventType: model.EventPatientCreated, Payload: []byte(`{}`)}
	pending := &model.OutboxEvent{EventType: model.EventPatientCreated, Payload: []byte(`{}`)}
	require.NoError(t, outbox.Create(ctx, done))
	require.NoError(t, outbox.Create(ctx, pending))
	require.NoError(t, outbox.MarkProcessed(ctx, done.ID))

	w.Advance(time.Hour)
	n, err := outbox.DeleteProcessedBefore(ctx, w.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := outbox.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, pending.ID, left[0].ID)
}

func TestNameOrderingIgnoresCaseAndAccents(t *testing.T) {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	for _, name := range []string{"Zed", "bob", "Émile", "Alice"} {
		w.Clinician(name, dept.ID)
		w.Patient(name)
	}
	want := []string{"Alice", "bob", "Émile", "Zed"}

	rows, total, err := w.Repos.Reports.ClinicianPatientCounts(ctx,
		repository.ClinicianFilter{DepartmentID: &dept.ID}, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	got := make([]string, 0, len(rows))
	for _, r := range rows {
		got = append(got, r.Clinician.Name)
	}
	assert.Equal(t, want, got)

	patients, _, err := w.Repos.Patients.List(ctx, repository.PatientFilter{}, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, want, names(patients))
}
