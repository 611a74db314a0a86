package user

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinical-api/internal/handler"
	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/service/user"
	"github.com/jwalitptl/clinical-api/pkg/httputil"
)

type Handler struct {
	*handler.BaseHandler
	svc *user.Service
}

func NewHandler(base *handler.BaseHandler, svc *user.Service) *Handler {
	return &Handler{BaseHandler: base, svc: svc}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/auth/me", h.Me)

	users := r.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
	}
}

func (h *Handler) Me(c *gin.Context) {
	me, err := h.svc.Me(c.Request.Context(), h.Principal(c))
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, me)
}

func (h *Handler) CreateUser(c *gin.Context) {
	if !h.AdminOnly(c, "user.create") {
		return
	}
	var req model.CreateUserRequest
	if !h.Bind(c, &req) {
		return
	}

	u, err := h.svc.CreateUser(c.Request.Context(), h.Principal(c), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondCreated(c, u)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := h.PathID(c, "id", "User")
	if !ok {
		return
	}

	u, err := h.svc.GetUser(c.Request.Context(), h.Principal(c), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, u)
}
