package clinician

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinical-api/internal/handler"
	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/service/catalog"
	"github.com/jwalitptl/clinical-api/pkg/httputil"
)

type Handler struct {
	*handler.BaseHandler
	svc *catalog.Service
}

func NewHandler(base *handler.BaseHandler, svc *catalog.Service) *Handler {
	return &Handler{BaseHandler: base, svc: svc}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	clinicians := r.Group("/clinicians")
	{
		clinicians.GET("", h.ListClinicians)
		clinicians.POST("", h.CreateClinician)
		clinicians.GET("/:id", h.GetClinician)
		clinicians.DELETE("/:id", h.DeleteClinician)
	}
}

func (h *Handler) ListClinicians(c *gin.Context) {
	departmentID, ok := h.QueryID(c, "department_id")
	if !ok {
		return
	}
	params, page := h.Page(c)

	clinicians, total, err := h.svc.ListClinicians(c.Request.Context(), h.Principal(c), departmentID, page)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithPage(c, params, total, clinicians)
}

func (h *Handler) GetClinician(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Clinician")
	if !ok {
		return
	}

	clinician, err := h.svc.GetClinician(c.Request.Context(), h.Principal(c), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, clinician)
}

func (h *Handler) CreateClinician(c *gin.Context) {
	if !h.AdminOnly(c, "clinician.create") {
		return
	}
	var req model.CreateClinicianRequest
	if !h.Bind(c, &req) {
		return
	}

	clinician, err := h.svc.CreateClinician(c.Request.Context(), h.Principal(c), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, clinician)
}

func (h *Handler) DeleteClinician(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Clinician")
	if !ok {
		return
	}

	if err := h.svc.DeleteClinician(c.Request.Context(), h.Principal(c), id); err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondNoContent(c)
}
