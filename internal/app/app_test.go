package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinical-api/internal/app"
	"github.com/jwalitptl/clinical-api/internal/config"
	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/service/procedure"
	"github.com/jwalitptl/clinical-api/internal/testutil"
)

type apiResponse struct {
	StatusCode int
	RawData    []byte
}

func (r *apiResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *apiResponse) Data(t *testing.T) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(r.RawData, &out), string(r.RawData))
	return out
}

type testAPI struct {
	t      *testing.T
	world  *testutil.World
	server *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	w := testutil.NewWorld(t)
	cfg := &config.Config{
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		JWT:        config.JWTConfig{Secret: "test-secret", ExpiryHours: 1, Issuer: "clinical-api"},
		Auth:       config.AuthConfig{AdminGroup: model.DefaultAdminGroup, BcryptCost: bcrypt.MinCost},
		Pagination: config.PaginationConfig{DefaultLimit: 20, MaxLimit: 100},
		Metrics:    config.MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "test"},
		Outbox:     config.OutboxConfig{Enabled: true},
	}
	a := app.New(cfg, w.Repos, app.Options{Registry: prometheus.NewRegistry(), Now: w.Now})
	srv := httptest.NewServer(a.Engine)
	t.Cleanup(srv.Close)
	return &testAPI{t: t, world: w, server: srv}
}

func (a *testAPI) makeRequest(method, path string, body interface{}, token string) *apiResponse {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var raw bytes.Buffer
	_, err = raw.ReadFrom(resp.Body)
	require.NoError(a.t, err)
	return &apiResponse{StatusCode: resp.StatusCode, RawData: raw.Bytes()}
}

func (a *testAPI) login(email string) string {
	a.t.Helper()
	resp := a.makeRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": testutil.Password,
	}, "")
	require.Equal(a.t, http.StatusOK, resp.StatusCode, string(resp.RawData))
	data := resp.Data(a.t)
	assert.Equal(a.t, "Bearer", data["token_type"])
	token, _ := data["access_token"].(string)
	require.NotEmpty(a.t, token)
	return token
}

func (a *testAPI) loginClinician(c *model.Clinician) string {
	a.t.Helper()
	u, err := a.world.Repos.Users.GetByID(context.Background(), c.UserID)
	require.NoError(a.t, err)
	return a.login(u.Email)
}

func TestLoginAndMe(t *testing.T) {
	api := newTestAPI(t)
	api.world.AdminUser("admin@clinic.test")

	token := api.login("admin@clinic.test")
	resp := api.makeRequest(http.MethodGet, "/api/v1/auth/me", nil, token)
	require.True(t, resp.IsSuccess(), string(resp.RawData))
	assert.Equal(t, "admin", resp.Data(t)["role"])

	resp = api.makeRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "admin@clinic.test",
		"password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	api := newTestAPI(t)

	resp := api.makeRequest(http.MethodGet, "/api/v1/patients", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authentication credentials were not provided.", resp.Data(t)["detail"])

	resp = api.makeRequest(http.MethodGet, "/api/v1/patients", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClinicianPatientCountsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	w := api.world
	w.AdminUser("admin@clinic.test")
	dept := w.Department("Cardiology")
	x := w.Clinician("X", dept.ID)
	y := w.Clinician("Y", dept.ID)
	w.Clinician("Z", dept.ID)
	p1, p2 := w.Patient("P1"), w.Patient("P2")
	w.Link(x.ID, p1.ID)
	w.Link(x.ID, p2.ID)
	w.Link(y.ID, p1.ID)

	token := api.login("admin@clinic.test")
	resp := api.makeRequest(http.MethodGet, fmt.Sprintf("/api/v1/departments/%d/clinician-patient-counts", dept.ID), nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.RawData))

	var page model.ClinicianPatientCountPage
	require.NoError(t, json.Unmarshal(resp.RawData, &page))
	require.NotNil(t, page.Department)
	assert.Equal(t, "Cardiology", page.Department.Name)
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Results, 3)
	assert.Equal(t, "X", page.Results[0].Clinician.Name)
	assert.Equal(t, 2, page.Results[0].PatientCount)
	assert.Equal(t, "Y", page.Results[1].Clinician.Name)
	assert.Equal(t, 1, page.Results[1].PatientCount)
	assert.Equal(t, "Z", page.Results[2].Clinician.Name)
	assert.Equal(t, 0, page.Results[2].PatientCount)

	resp = api.makeRequest(http.MethodGet, "/api/v1/departments/9999/clinician-patient-counts", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.makeRequest(http.MethodGet, "/api/v1/reports/clinician-patient-counts?department_id=abc", nil, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"department_id":["Must be an integer."]}`, string(resp.RawData))

	resp = api.makeRequest(http.MethodGet, fmt.Sprintf("/api/v1/departments/%d/clinician-patient-counts?clinician_id=", dept.ID), nil, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"clinician_id":["Must be an integer."]}`, string(resp.RawData))

	resp = api.makeRequest(http.MethodGet, fmt.Sprintf("/api/v1/departments/%d/clinician-patient-counts?limit=1", dept.ID), nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := resp.Data(t)
	assert.NotNil(t, data["next"])
	assert.Nil(t, data["previous"])
	assert.Len(t, data["results"], 1)
}

func TestClinicianSeesOwnCountOnly(t *testing.T) {
	api := newTestAPI(t)
	w := api.world
	dept := w.Department("Cardiology")
	x := w.Clinician("X", dept.ID)
	y := w.Clinician("Y", dept.ID)
	w.Link(y.ID, w.Patient("P1").ID)

	token := api.loginClinician(x)
	path := fmt.Sprintf("/api/v1/departments/%d/clinician-patient-counts?clinician_id=%d", dept.ID, y.ID)
	resp := api.makeRequest(http.MethodGet, path, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.RawData))

	var page model.ClinicianPatientCountPage
	require.NoError(t, json.Unmarshal(resp.RawData, &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, x.ID, page.Results[0].Clinician.ID)
	assert.Equal(t, 0, page.Results[0].PatientCount)

	other := w.Department("Neurology")
	resp = api.makeRequest(http.MethodGet, fmt.Sprintf("/api/v1/departments/%d/clinician-patient-counts", other.ID), nil, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateProcedureValidationOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	w := api.world
	dept := w.Department("Cardiology")
	doc := w.Clinician("Doc", dept.ID)
	mine, stranger := w.Patient("Ann"), w.Patient("Bob")
	w.Link(doc.ID, mine.ID)
	echo := w.ProcedureType("Echocardiogram", "ECHO")
	retired := w.ProcedureType("Legacy", "LEGACY")
	require.NoError(t, w.Repos.ProcedureTypes.Retire(context.Background(), retired.ID))

	token := api.loginClinician(doc)
	future := w.Now().Add(24 * time.Hour).Format(time.RFC3339)

	t.Run("past scheduled time", func(t *testing.T) {
		resp := api.makeRequest(http.MethodPost, "/api/v1/procedures", map[string]interface{}{
			"patient_id":        mine.ID,
			"clinician_id":      doc.ID,
			"procedure_type_id": echo.ID,
			"scheduled_at":      w.Now().Add(-time.Hour).Format(time.RFC3339),
			"status":            "PLANNED",
		}, token)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, resp.Data(t), "scheduled_at")
	})

	t.Run("patient without link", func(t *testing.T) {
		resp := api.makeRequest(http.MethodPost, "/api/v1/procedures", map[string]interface{}{
			"patient_id":        stranger.ID,
			"clinician_id":      doc.ID,
			"procedure_type_id": echo.ID,
			"scheduled_at":      future,
		}, token)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, fmt.Sprintf(`{"patient_id":[%q]}`, procedure.MsgNoPatientAccess), string(resp.RawData))
	})

	t.Run("retired type", func(t *testing.T) {
		resp := api.makeRequest(http.MethodPost, "/api/v1/procedures", map[string]interface{}{
			"patient_id":        mine.ID,
			"clinician_id":      doc.ID,
			"procedure_type_id": retired.ID,
			"scheduled_at":      future,
		}, token)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, resp.Data(t), "procedure_type_id")
	})

	t.Run("created", func(t *testing.T) {
		resp := api.makeRequest(http.MethodPost, "/api/v1/procedures", map[string]interface{}{
			"patient_id":        mine.ID,
			"clinician_id":      doc.ID,
			"procedure_type_id": echo.ID,
			"scheduled_at":      future,
		}, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.RawData))
		data := resp.Data(t)
		assert.Equal(t, "PLANNED", data["status"])
		assert.Equal(t, "Echocardiogram", data["name"])
	})
}

func TestPatientAccessOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	w := api.world
	dept := w.Department("Cardiology")
	doc := w.Clinician("Doc", dept.ID)
	mine, stranger := w.Patient("Ann"), w.Patient("Bob")
	w.Link(doc.ID, mine.ID)

	token := api.loginClinician(doc)

	resp := api.makeRequest(http.MethodGet, "/api/v1/patients", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, resp.Data(t)["count"])

	resp = api.makeRequest(http.MethodGet, fmt.Sprintf("/api/v1/patients/%d", mine.ID), nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.makeRequest(http.MethodGet, fmt.Sprintf("/api/v1/patients/%d", stranger.ID), nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// permission is checked before the body is validated
	resp = api.makeRequest(http.MethodPost, "/api/v1/patients", map[string]interface{}{}, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	resp := api.makeRequest(http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.makeRequest(http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.makeRequest(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.RawData), "test_http_requests_total")
}
