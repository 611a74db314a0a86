package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinical-api/internal/handler"
	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/service/auth"
	"github.com/jwalitptl/clinical-api/pkg/httputil"
)

type Handler struct {
	*handler.BaseHandler
	svc *auth.Service
}

func NewHandler(base *handler.BaseHandler, svc *auth.Service) *Handler {
	return &Handler{BaseHandler: base, svc: svc}
}

// RegisterRoutes mounts the public auth endpoints.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !h.Bind(c, &req) {
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tokens)
}
