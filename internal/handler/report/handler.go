package report

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinical-api/internal/handler"
	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/service/report"
	"github.com/jwalitptl/clinical-api/pkg/httputil"
)

type Handler struct {
	*handler.BaseHandler
	svc *report.Service
}

func NewHandler(base *handler.BaseHandler, svc *report.Service) *Handler {
	return &Handler{BaseHandler: base, svc: svc}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/departments/:id/clinician-patient-counts", h.DepartmentPatientCounts)
	r.GET("/reports/clinician-patient-counts", h.ClinicianPatientCounts)
	r.GET("/procedures/scheduled-patients", h.ScheduledPatients)
}

// DepartmentPatientCounts reports the clinicians of one department.
func (h *Handler) DepartmentPatientCounts(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Department")
	if !ok {
		return
	}
	h.respondCounts(c, &id)
}

// ClinicianPatientCounts reports across departments unless department_id is given.
func (h *Handler) ClinicianPatientCounts(c *gin.Context) {
	departmentID, ok := h.QueryID(c, "department_id")
	if !ok {
		return
	}
	h.respondCounts(c, departmentID)
}

func (h *Handler) respondCounts(c *gin.Context, departmentID *int64) {
	params, page := h.Page(c)
	q := report.CountQuery{
		DepartmentID: departmentID,
		Clinician:    clinicianParam(c),
	}

	counts, err := h.svc.ClinicianPatientCounts(c.Request.Context(), h.Principal(c), q, page)
	if err != nil {
		h.Fail(c, err)
		return
	}

	envelope := httputil.NewPage(c, params, counts.Total, counts.Results)
	httputil.RespondWithSuccess(c, model.ClinicianPatientCountPage{
		Department: counts.Department,
		Count:      envelope.Count,
		Next:       envelope.Next,
		Previous:   envelope.Previous,
		Results:    envelope.Results,
	})
}

func (h *Handler) ScheduledPatients(c *gin.Context) {
	params, page := h.Page(c)
	q := report.ScheduledQuery{
		ProcedureTypeID: queryParam(c, "procedure_type_id"),
		DateFrom:        queryParam(c, "date_from"),
		DateTo:          queryParam(c, "date_to"),
		DepartmentID:    queryParam(c, "department_id"),
		ClinicianID:     clinicianParam(c),
	}

	rows, total, err := h.svc.ScheduledPatients(c.Request.Context(), h.Principal(c), q, page)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithPage(c, params, total, rows)
}

// clinicianParam accepts clinician_id and its short alias clinician.
func clinicianParam(c *gin.Context) report.Param {
	if v, ok := c.GetQuery(report.ClinicianIDParam); ok {
		return report.Param{Name: report.ClinicianIDParam, Value: v}
	}
	if v, ok := c.GetQuery(report.ClinicianParam); ok {
		return report.Param{Name: report.ClinicianParam, Value: v}
	}
	return report.Param{}
}

func queryParam(c *gin.Context, name string) report.Param {
	return report.Param{Name: name, Value: c.Query(name)}
}
