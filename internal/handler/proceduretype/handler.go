package proceduretype

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
	types := r.Group("/procedure-types")
	{
		types.GET("", h.ListProcedureTypes)
		types.POST("", h.CreateProcedureType)
		types.GET("/:id", h.GetProcedureType)
		types.POST("/:id/retire", h.RetireProcedureType)
	}
}

func (h *Handler) ListProcedureTypes(c *gin.Context) {
	params, page := h.Page(c)

	types, total, err := h.svc.ListProcedureTypes(c.Request.Context(), h.Principal(c), page)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithPage(c, params, total, types)
}

func (h *Handler) GetProcedureType(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Procedure type")
	if !ok {
		return
	}

	pt, err := h.svc.GetProcedureType(c.Request.Context(), h.Principal(c), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pt)
}

func (h *Handler) CreateProcedureType(c *gin.Context) {
	if !h.AdminOnly(c, "procedure_type.create") {
		return
	}
	var req model.CreateProcedureTypeRequest
	if !h.Bind(c, &req) {
		return
	}

	pt, err := h.svc.CreateProcedureType(c.Request.Context(), h.Principal(c), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, pt)
}

// RetireProcedureType deactivates a type. Existing procedures keep it.
func (h *Handler) RetireProcedureType(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Procedure type")
	if !ok {
		return
	}

	pt, err := h.svc.RetireProcedureType(c.Request.Context(), h.Principal(c), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pt)
}
