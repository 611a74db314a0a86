package procedure_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/service/access"
	"github.com/jwalitptl/clinical-api/internal/service/event"
	"github.com/jwalitptl/clinical-api/internal/service/procedure"
	"github.com/jwalitptl/clinical-api/internal/testutil"
	"github.com/jwalitptl/clinical-api/pkg/errors"
	"github.com/jwalitptl/clinical-api/pkg/metrics"
)

var ctx = context.Background()

type fixture struct {
	w       *testutil.World
	svc     *procedure.Service
	admin   *model.Principal
	doc     *model.Clinician
	other   *model.Clinician
	patient *model.Patient
	pt      *model.ProcedureType
}

func newFixture(t *testing.T) *fixture {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	f := &fixture{
		w:       w,
		admin:   testutil.AsAdmin(w.AdminUser("admin@clinic.test")),
		doc:     w.Clinician("Dr Who", dept.ID),
		other:   w.Clinician("Dr Other", dept.ID),
		patient: w.Patient("Ann"),
		pt:      w.ProcedureType("Echocardiogram", "ECHO"),
	}
	w.Link(f.doc.ID, f.patient.ID)
	f.svc = procedure.NewService(w.Repos, access.NewGuard(nil), event.NewEventService(w.Repos.Outbox),
		metrics.New("test", nil), procedure.WithClock(w.Now))
	return f
}

func (f *fixture) request(at time.Time) *model.CreateProcedureRequest {
	scheduled := at.Format(time.RFC3339)
	return &model.CreateProcedureRequest{
		PatientID:       &f.patient.ID,
		ClinicianID:     &f.doc.ID,
		ProcedureTypeID: &f.pt.ID,
		ScheduledAt:     &scheduled,
	}
}

func fields(t *testing.T, err error) map[string][]string {
	t.Helper()
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected an application error, got %v", err)
	require.Equal(t, errors.ErrValidation, appErr.Code)
	return appErr.Fields
}

func TestCreateProcedureDefaults(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.CreateProcedure(ctx, f.admin, f.request(f.w.Now().Add(24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, model.ProcedureStatusPlanned, view.Status)
	assert.Equal(t, "Echocardiogram", view.Name)
	require.NotNil(t, view.DurationMinutes)
	assert.Equal(t, 30, *view.DurationMinutes)
	assert.Equal(t, "Ann", view.Patient.Name)
	assert.Equal(t, "Dr Who", view.Clinician.Name)

	events, err := f.w.Repos.Outbox.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventProcedureCreated, events[0].EventType)
}

func TestCreateProcedureInPastRejected(t *testing.T) {
	f := newFixture(t)

	req := f.request(f.w.Now().Add(-24 * time.Hour))
	req.Status = model.ProcedureStatusPlanned
	_, err := f.svc.CreateProcedure(ctx, f.admin, req)
	assert.Equal(t, []string{procedure.MsgMustBeFuture}, fields(t, err)["scheduled_at"])

	req.Status = model.ProcedureStatusScheduled
	_, err = f.svc.CreateProcedure(ctx, f.admin, req)
	assert.Contains(t, fields(t, err), "scheduled_at")

	// past dates are fine once the procedure is no longer active
	req.Status = model.ProcedureStatusCompleted
	_, err = f.svc.CreateProcedure(ctx, f.admin, req)
	assert.NoError(t, err)
}

func TestClinicianWithoutActiveCareGetsFieldError(t *testing.T) {
	f := newFixture(t)
	stranger := f.w.Patient("Stranger")

	req := f.request(f.w.Now().Add(time.Hour))
	req.PatientID = &stranger.ID
	_, err := f.svc.CreateProcedure(ctx, testutil.AsClinician(f.doc), req)
	assert.Equal(t, []string{procedure.MsgNoPatientAccess}, fields(t, err)["patient_id"])
	assert.False(t, errors.Is(err, errors.ErrForbidden))
}

func TestClinicianCanOnlyAssignThemselves(t *testing.T) {
	f := newFixture(t)

	req := f.request(f.w.Now().Add(time.Hour))
	req.ClinicianID = &f.other.ID
	_, err := f.svc.CreateProcedure(ctx, testutil.AsClinician(f.doc), req)
	assert.Equal(t, []string{procedure.MsgSelfAssignOnly}, fields(t, err)["clinician_id"])

	view, err := f.svc.CreateProcedure(ctx, testutil.AsClinician(f.doc), f.request(f.w.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, f.doc.ID, view.Clinician.ID)
}

func TestRetiredProcedureTypeRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.w.Repos.ProcedureTypes.Retire(ctx, f.pt.ID))

	_, err := f.svc.CreateProcedure(ctx, f.admin, f.request(f.w.Now().Add(time.Hour)))
	assert.Contains(t, fields(t, err), "procedure_type_id")
}

func TestCreateProcedureMissingAndUnknownFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateProcedure(ctx, f.admin, &model.CreateProcedureRequest{})
	got := fields(t, err)
	for _, field := range []string{"patient_id", "clinician_id", "procedure_type_id", "scheduled_at"} {
		assert.Equal(t, []string{procedure.MsgRequired}, got[field], field)
	}

	missing := int64(9999)
	bad := "tomorrow"
	_, err = f.svc.CreateProcedure(ctx, f.admin, &model.CreateProcedureRequest{
		PatientID:       &missing,
		ClinicianID:     &f.doc.ID,
		ProcedureTypeID: &f.pt.ID,
		ScheduledAt:     &bad,
	})
	got = fields(t, err)
	assert.Equal(t, []string{`Invalid pk "9999" - object does not exist.`}, got["patient_id"])
	assert.Equal(t, []string{procedure.MsgDatetimeFormat}, got["scheduled_at"])
}

func TestCreateProcedureRequiresStaff(t *testing.T) {
	f := newFixture(t)
	nobody := testutil.AsNobody(f.w.User("nobody@clinic.test"))

	_, err := f.svc.CreateProcedure(ctx, nobody, f.request(f.w.Now().Add(time.Hour)))
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestProcedureVisibility(t *testing.T) {
	f := newFixture(t)
	at := f.w.Now().Add(time.Hour)
	mine := f.w.Procedure(f.patient.ID, f.doc.ID, f.pt.ID, at, model.ProcedureStatusPlanned)
	theirs := f.w.Procedure(f.patient.ID, f.other.ID, f.pt.ID, at, model.ProcedureStatusPlanned)
	clinician := testutil.AsClinician(f.doc)

	list, total, err := f.svc.ListProcedures(ctx, clinician, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, mine.ID, list[0].ID)

	_, total, err = f.svc.ListProcedures(ctx, f.admin, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, err = f.svc.GetProcedure(ctx, clinician, theirs.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = f.svc.GetProcedure(ctx, testutil.AsNobody(f.w.User("nobody@clinic.test")), mine.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	got, err := f.svc.GetProcedure(ctx, clinician, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)
}

func TestAdminWithClinicianProfileIsUnscoped(t *testing.T) {
	f := newFixture(t)
	u := f.w.AdminUser("chief@clinic.test")
	profile := &model.Clinician{UserID: u.ID, DepartmentID: f.doc.DepartmentID, Name: "Dr Chief"}
	require.NoError(t, f.w.Repos.Clinicians.Create(ctx, profile))

	p, err := access.NewResolver(f.w.Repos.Users, f.w.Repos.Clinicians, f.w.Repos.Patients, "").Resolve(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, p.Clinician)
	require.Equal(t, model.RoleAdmin, p.Role())

	stranger := f.w.Patient("Bob")
	req := f.request(f.w.Now().Add(time.Hour))
	req.PatientID = &stranger.ID
	req.ClinicianID = &f.other.ID

	created, err := f.svc.CreateProcedure(ctx, p, req)
	require.NoError(t, err)
	assert.Equal(t, f.other.ID, created.Clinician.ID)
	assert.Equal(t, stranger.ID, created.Patient.ID)

	f.w.Procedure(f.patient.ID, f.doc.ID, f.pt.ID, f.w.Now().Add(2*time.Hour), model.ProcedureStatusPlanned)

	list, total, err := f.svc.ListProcedures(ctx, p, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)
}

func TestDeleteProcedure(t *testing.T) {
	f := newFixture(t)
	pr := f.w.Procedure(f.patient.ID, f.doc.ID, f.pt.ID, f.w.Now().Add(time.Hour), model.ProcedureStatusPlanned)

	assert.True(t, errors.Is(f.svc.DeleteProcedure(ctx, testutil.AsClinician(f.doc), pr.ID), errors.ErrForbidden))
	require.NoError(t, f.svc.DeleteProcedure(ctx, f.admin, pr.ID))
	assert.True(t, errors.Is(f.svc.DeleteProcedure(ctx, f.admin, pr.ID), errors.ErrNotFound))

	_, err := f.svc.GetProcedure(ctx, f.admin, pr.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
