package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	return pb.GetCounter().GetValue()
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("clinical", reg)

	m.ObserveRequest(http.MethodGet, "/api/v1/patients", http.StatusOK, 10*time.Millisecond)
	m.Denied("not_admin")
	m.Denied("not_admin")
	m.ProcedureCreated()
	m.TimeReport("scheduled_patients")()

	assert.Equal(t, 1.0, value(t, m.RequestsTotal.WithLabelValues("GET", "/api/v1/patients", "200")))
	assert.Equal(t, 2.0, value(t, m.AccessDenials.WithLabelValues("not_admin")))
	assert.Equal(t, 1.0, value(t, m.ProceduresCreated))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["clinical_http_requests_total"])
	assert.True(t, names["clinical_access_denials_total"])
	assert.True(t, names["clinical_report_duration_seconds"])
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/", 200, time.Millisecond)
		m.Denied("x")
		m.ProcedureCreated()
		m.TimeReport("x")()
	})
}
