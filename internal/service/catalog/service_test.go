package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/service/access"
	"github.com/jwalitptl/clinical-api/internal/service/catalog"
	"github.com/jwalitptl/clinical-api/internal/service/patient"
	"github.com/jwalitptl/clinical-api/internal/testutil"
	"github.com/jwalitptl/clinical-api/pkg/errors"
)

var (
	ctx  = context.Background()
	page = repository.Page{Limit: 50}
)

func newService(w *testutil.World) *catalog.Service {
	guard := access.NewGuard(nil)
	patients := patient.NewService(w.Repos.Patients, w.Repos.CareRelationships, guard, nil, patient.WithClock(w.Now))
	return catalog.NewService(w.Repos, patients, guard, catalog.WithClock(w.Now))
}

func nonField(t *testing.T, err error) []string {
	t.Helper()
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected an application error, got %v", err)
	return appErr.Fields[errors.NonFieldErrors]
}

func TestDepartmentLifecycle(t *testing.T) {
	w := testutil.NewWorld(t)
	admin := testutil.AsAdmin(w.AdminUser("admin@clinic.test"))
	svc := newService(w)

	dept, err := svc.CreateDepartment(ctx, admin, &model.CreateDepartmentRequest{Name: " Cardiology "})
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", dept.Name)
	assert.True(t, dept.IsActive)

	_, err = svc.CreateDepartment(ctx, admin, &model.CreateDepartmentRequest{Name: "Cardiology"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{catalog.MsgDepartmentNameTaken}, appErr.Fields["name"])

	doc := w.Clinician("Dr Who", dept.ID)
	assert.Equal(t, []string{catalog.MsgDepartmentInUse}, nonField(t, svc.DeleteDepartment(ctx, admin, dept.ID)))

	// soft-deleted clinicians still hold the department
	w.DeleteClinician(doc.ID)
	assert.Equal(t, []string{catalog.MsgDepartmentInUse}, nonField(t, svc.DeleteDepartment(ctx, admin, dept.ID)))

	empty, err := svc.CreateDepartment(ctx, admin, &model.CreateDepartmentRequest{Name: "Empty"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteDepartment(ctx, admin, empty.ID))
	_, err = svc.GetDepartment(ctx, admin, empty.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDepartmentWritesRequireAdmin(t *testing.T) {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	doc := testutil.AsClinician(w.Clinician("Dr Who", dept.ID))
	svc := newService(w)

	_, err := svc.CreateDepartment(ctx, doc, &model.CreateDepartmentRequest{Name: "Other"})
	assert.True(t, errors.Is(err, errors.ErrForbidden))
	assert.True(t, errors.Is(svc.DeleteDepartment(ctx, doc, dept.ID), errors.ErrForbidden))

	list, total, err := svc.ListDepartments(ctx, doc, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Cardiology", list[0].Name)
}

func TestClinicianScope(t *testing.T) {
	w := testutil.NewWorld(t)
	cardio := w.Department("Cardiology")
	neuro := w.Department("Neurology")
	a := w.Clinician("Alice", cardio.ID)
	b := w.Clinician("Bob", cardio.ID)
	w.Clinician("Carol", neuro.ID)
	admin := testutil.AsAdmin(w.AdminUser("admin@clinic.test"))
	svc := newService(w)

	list, total, err := svc.ListClinicians(ctx, admin, &cardio.ID, page)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Alice", list[0].Name)

	list, total, err = svc.ListClinicians(ctx, testutil.AsClinician(a), nil, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, a.ID, list[0].ID)

	_, err = svc.GetClinician(ctx, testutil.AsClinician(a), b.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	got, err := svc.GetClinician(ctx, testutil.AsClinician(a), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}

func TestCreateClinician(t *testing.T) {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	u := w.User("new@clinic.test")
	admin := testutil.AsAdmin(w.AdminUser("admin@clinic.test"))
	svc := newService(w)

	c, err := svc.CreateClinician(ctx, admin, &model.CreateClinicianRequest{UserID: u.ID, DepartmentID: dept.ID, Name: "New"})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)

	_, err = svc.CreateClinician(ctx, admin, &model.CreateClinicianRequest{UserID: u.ID, DepartmentID: dept.ID, Name: "Again"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{catalog.MsgClinicianUserTaken}, appErr.Fields["user_id"])

	_, err = svc.CreateClinician(ctx, admin, &model.CreateClinicianRequest{UserID: 9999, DepartmentID: 9998, Name: "Ghost"})
	appErr, ok = errors.As(err)
	require.True(t, ok)
	assert.True(t, appErr.HasField("user_id"))
	assert.True(t, appErr.HasField("department_id"))

	require.NoError(t, svc.DeleteClinician(ctx, admin, c.ID))
	assert.True(t, errors.Is(svc.DeleteClinician(ctx, admin, c.ID), errors.ErrNotFound))
}

func TestCareRelationshipLifecycle(t *testing.T) {
	w := testutil.NewWorld(t)
	doc := w.Clinician("Dr Who", w.Department("Cardiology").ID)
	p := w.Patient("Ann")
	admin := testutil.AsAdmin(w.AdminUser("admin@clinic.test"))
	svc := newService(w)

	rel, err := svc.CreateCareRelationship(ctx, admin, &model.CreateCareRelationshipRequest{PatientID: p.ID, ClinicianID: doc.ID})
	require.NoError(t, err)
	assert.Equal(t, w.Now(), rel.RelationshipStart)
	assert.True(t, rel.IsActive())

	_, err = svc.CreateCareRelationship(ctx, admin, &model.CreateCareRelationshipRequest{PatientID: p.ID, ClinicianID: doc.ID})
	assert.Equal(t, []string{catalog.MsgLinkNotUnique}, nonField(t, err))

	early := rel.RelationshipStart.Add(-time.Hour)
	_, err = svc.EndCareRelationship(ctx, admin, rel.ID, &model.EndCareRelationshipRequest{RelationshipEnd: &early})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{catalog.MsgEndBeforeStart}, appErr.Fields["relationship_end"])

	w.Advance(time.Hour)
	ended, err := svc.EndCareRelationship(ctx, admin, rel.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, ended.RelationshipEnd)
	assert.Equal(t, w.Now(), *ended.RelationshipEnd)

	_, err = svc.EndCareRelationship(ctx, admin, rel.ID, nil)
	assert.Equal(t, []string{catalog.MsgLinkAlreadyEnded}, nonField(t, err))

	links, err := svc.ListCareRelationships(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	require.NoError(t, svc.DeleteCareRelationship(ctx, admin, rel.ID))
	links, err = svc.ListCareRelationships(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestCareRelationshipsFollowPatientVisibility(t *testing.T) {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	doc := w.Clinician("Dr Who", dept.ID)
	other := w.Clinician("Dr Other", dept.ID)
	p := w.Patient("Ann")
	w.Link(other.ID, p.ID)
	svc := newService(w)

	_, err := svc.ListCareRelationships(ctx, testutil.AsClinician(doc), p.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	links, err := svc.ListCareRelationships(ctx, testutil.AsClinician(other), p.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	_, err = svc.CreateCareRelationship(ctx, testutil.AsClinician(other), &model.CreateCareRelationshipRequest{PatientID: p.ID, ClinicianID: doc.ID})
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestProcedureTypes(t *testing.T) {
	w := testutil.NewWorld(t)
	dept := w.Department("Cardiology")
	admin := testutil.AsAdmin(w.AdminUser("admin@clinic.test"))
	svc := newService(w)

	pt, err := svc.CreateProcedureType(ctx, admin, &model.CreateProcedureTypeRequest{Name: "ECG", Code: "ECG", DepartmentID: &dept.ID})
	require.NoError(t, err)
	assert.True(t, pt.IsActive)

	_, err = svc.CreateProcedureType(ctx, admin, &model.CreateProcedureTypeRequest{Name: "ECG 2", Code: "ECG"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{catalog.MsgProcedureCodeTaken}, appErr.Fields["code"])

	missing := int64(9999)
	_, err = svc.CreateProcedureType(ctx, admin, &model.CreateProcedureTypeRequest{Name: "MRI", Code: "MRI", DepartmentID: &missing})
	appErr, ok = errors.As(err)
	require.True(t, ok)
	assert.True(t, appErr.HasField("department_id"))

	retired, err := svc.RetireProcedureType(ctx, admin, pt.ID)
	require.NoError(t, err)
	assert.False(t, retired.IsActive)

	list, total, err := svc.ListProcedureTypes(ctx, admin, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.False(t, list[0].IsActive)

	_, err = svc.RetireProcedureType(ctx, admin, 9999)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
