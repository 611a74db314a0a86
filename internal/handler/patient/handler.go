package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinical-api/internal/handler"
	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/service/patient"
	"github.com/jwalitptl/clinical-api/pkg/httputil"
)

type Handler struct {
	*handler.BaseHandler
	svc *patient.Service
}

func NewHandler(base *handler.BaseHandler, svc *patient.Service) *Handler {
	return &Handler{BaseHandler: base, svc: svc}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.POST("", h.CreatePatient)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.ReplacePatient)
		patients.PATCH("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	params, page := h.Page(c)

	patients, total, err := h.svc.ListPatients(c.Request.Context(), h.Principal(c), c.Query("search"), page)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithPage(c, params, total, patients)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Patient")
	if !ok {
		return
	}

	p, err := h.svc.GetPatient(c.Request.Context(), h.Principal(c), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	if !h.AdminOnly(c, "patient.create") {
		return
	}
	var req model.CreatePatientRequest
	if !h.Bind(c, &req) {
		return
	}

	p, err := h.svc.CreatePatient(c.Request.Context(), h.Principal(c), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, p)
}

func (h *Handler) ReplacePatient(c *gin.Context) {
	if !h.AdminOnly(c, "patient.update") {
		return
	}
	id, ok := h.PathID(c, "id", "Patient")
	if !ok {
		return
	}
	var req model.CreatePatientRequest
	if !h.Bind(c, &req) {
		return
	}

	p, err := h.svc.ReplacePatient(c.Request.Context(), h.Principal(c), id, &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	if !h.AdminOnly(c, "patient.update") {
		return
	}
	id, ok := h.PathID(c, "id", "Patient")
	if !ok {
		return
	}
	var req model.UpdatePatientRequest
	if !h.Bind(c, &req) {
		return
	}

	p, err := h.svc.UpdatePatient(c.Request.Context(), h.Principal(c), id, &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Patient")
	if !ok {
		return
	}

	if err := h.svc.DeletePatient(c.Request.Context(), h.Principal(c), id); err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondNoContent(c)
}
