package department

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
	departments := r.Group("/departments")
	{
		departments.GET("", h.ListDepartments)
		departments.POST("", h.CreateDepartment)
		departments.GET("/:id", h.GetDepartment)
		departments.DELETE("/:id", h.DeleteDepartment)
	}
}

func (h *Handler) ListDepartments(c *gin.Context) {
	params, page := h.Page(c)

	departments, total, err := h.svc.ListDepartments(c.Request.Context(), h.Principal(c), page)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithPage(c, params, total, departments)
}

func (h *Handler) GetDepartment(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Department")
	if !ok {
		return
	}

	dept, err := h.svc.GetDepartment(c.Request.Context(), h.Principal(c), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, dept)
}

func (h *Handler) CreateDepartment(c *gin.Context) {
	if !h.AdminOnly(c, "department.create") {
		return
	}
	var req model.CreateDepartmentRequest
	if !h.Bind(c, &req) {
		return
	}

	dept, err := h.svc.CreateDepartment(c.Request.Context(), h.Principal(c), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, dept)
}

func (h *Handler) DeleteDepartment(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Department")
	if !ok {
		return
	}

	if err := h.svc.DeleteDepartment(c.Request.Context(), h.Principal(c), id); err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondNoContent(c)
}
