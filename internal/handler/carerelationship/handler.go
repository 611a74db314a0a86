package carerelationship

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
	r.GET("/patients/:id/care-relationships", h.ListCareRelationships)

	links := r.Group("/care-relationships")
	{
		links.POST("", h.CreateCareRelationship)
		links.POST("/:id/end", h.EndCareRelationship)
		links.DELETE("/:id", h.DeleteCareRelationship)
	}
}

// ListCareRelationships returns every link of a patient the caller can see,
// ended ones included.
func (h *Handler) ListCareRelationships(c *gin.Context) {
	patientID, ok := h.PathID(c, "id", "Patient")
	if !ok {
		return
	}

	links, err := h.svc.ListCareRelationships(c.Request.Context(), h.Principal(c), patientID)
	if err != nil {
		h.Fail(c, err)
		return
	}
	if links == nil {
		links = []*model.CareRelationship{}
	}
	httputil.RespondWithSuccess(c, links)
}

func (h *Handler) CreateCareRelationship(c *gin.Context) {
	if !h.AdminOnly(c, "care_relationship.create") {
		return
	}
	var req model.CreateCareRelationshipRequest
	if !h.Bind(c, &req) {
		return
	}

	link, err := h.svc.CreateCareRelationship(c.Request.Context(), h.Principal(c), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, link)
}

func (h *Handler) EndCareRelationship(c *gin.Context) {
	if !h.AdminOnly(c, "care_relationship.end") {
		return
	}
	id, ok := h.PathID(c, "id", "Care relationship")
	if !ok {
		return
	}
	var req model.EndCareRelationshipRequest
	if c.Request.ContentLength > 0 && !h.Bind(c, &req) {
		return
	}

	link, err := h.svc.EndCareRelationship(c.Request.Context(), h.Principal(c), id, &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, link)
}

func (h *Handler) DeleteCareRelationship(c *gin.Context) {
	id, ok := h.PathID(c, "id", "Care relationship")
	if !ok {
		return
	}

	if err := h.svc.DeleteCareRelationship(c.Request.Context(), h.Principal(c), id); err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondNoContent(c)
}
