package procedure

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinical-api/internal/handler"
	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/service/procedure"
	"github.com/jwalitptl/clinical-api/pkg/httputil"
)

type Handler struct {
	*handler.BaseHandler
	svc *procedure.Service
}

func NewHandler(base *handler.BaseHandler, svc *procedure.Service) *Handler {
	return &Handler{BaseHandler: base, svc: svc}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	procedures := r.Group("/procedures")
	{
		procedures.GET("", h.ListProcedures)
		procedures.POST("", h.CreateProcedure)
		procedures.GET("/:id", h.GetProcedure)
		procedures.DELETE("/:id", h.DeleteProcedure)
	}
}

func (h *Handler) ListProcedures(c *gin.Context) {
	params, page := h.Page(c)

	procedures, total, err := h.svc.ListProcedures(c.Request.Context(), h.Principal(c), page)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithPage(c, params, total, procedures)
}

func (h *Handler) GetProcedure(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Procedure")
	if !ok {
		return
	}

	proc, err := h.svc.GetProcedure(c.Request.Context(), h.Principal(c), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, proc)
}

func (h *Handler) CreateProcedure(c *gin.Context) {
	if !h.StaffOnly(c, "procedure.create") {
		return
	}
	var req model.CreateProcedureRequest
	if !h.Bind(c, &req) {
		return
	}

	proc, err := h.svc.CreateProcedure(c.Request.Context(), h.Principal(c), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, proc)
}

func (h *Handler) DeleteProcedure(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Procedure")
	if !ok {
		return
	}

	if err := h.svc.DeleteProcedure(c.Request.Context(), h.Principal(c), id); err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondNoContent(c)
}
