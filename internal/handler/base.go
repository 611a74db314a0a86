package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinical-api/internal/middleware"
	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/service/access"
	"github.com/jwalitptl/clinical-api/pkg/errors"
	"github.com/jwalitptl/clinical-api/pkg/httputil"
	"github.com/jwalitptl/clinical-api/pkg/validator"
)

// MsgMustBeInteger is reported for malformed integer query filters.
const MsgMustBeInteger = "Must be an integer."

// BaseHandler carries what every resource handler needs besides its service
type BaseHandler struct {
	Limits httputil.Limits
	Guard  *access.Guard
}

func NewBaseHandler(limits httputil.Limits, guard *access.Guard) *BaseHandler {
	return &BaseHandler{Limits: limits, Guard: guard}
}

// Principal returns the authenticated caller.
func (h *BaseHandler) Principal(c *gin.Context) *model.Principal {
	return middleware.GetPrincipal(c)
}

// AdminOnly rejects non-admins before the request body is read, so that
// a forbidden write never reports validation errors.
func (h *BaseHandler) AdminOnly(c *gin.Context, action string) bool {
	if err := h.Guard.RequireAdmin(c.Request.Context(), h.Principal(c), action); err != nil {
		h.Fail(c, err)
		return false
	}
	return true
}

// StaffOnly is AdminOnly for endpoints clinicians may also write to.
func (h *BaseHandler) StaffOnly(c *gin.Context, action string) bool {
	if err := h.Guard.RequireStaff(c.Request.Context(), h.Principal(c), action); err != nil {
		h.Fail(c, err)
		return false
	}
	return true
}

// Fail hands err to the error middleware.
func (h *BaseHandler) Fail(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

// PathID parses the named path parameter. Anything that is not a positive
// integer cannot match a row, so it is reported as not found.
func (h *BaseHandler) PathID(c *gin.Context, name, resource string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.Fail(c, errors.NotFound(resource))
		return 0, false
	}
	return id, true
}

// Bind decodes and validates the JSON body into req.
func (h *BaseHandler) Bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.Fail(c, validator.Translate(err))
		return false
	}
	return true
}

// Page reads the pagination window from the query string.
func (h *BaseHandler) Page(c *gin.Context) (httputil.Params, repository.Page) {
	params := h.Limits.Parse(c)
	return params, repository.Page{Limit: params.Limit, Offset: params.Offset}
}

// QueryID parses an optional integer filter from the query string.
// A present but malformed value fails the request with a field error.
func (h *BaseHandler) QueryID(c *gin.Context, name string) (*int64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.Fail(c, errors.Validation(name, MsgMustBeInteger))
		return nil, false
	}
	return &id, true
}
