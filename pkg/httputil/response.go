package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jwalitptl/clinical-api/pkg/errors"
)

// ErrorResponse is the body rendered for non-validation failures
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RespondWithError writes err in the API's wire format. Validation errors
// render as a map of field name to messages; everything else as {"detail": ...}.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Internal(err)
	}

	status := appErr.StatusCode()
	if appErr.Code == errors.ErrValidation && len(appErr.Fields) > 0 {
		c.AbortWithStatusJSON(status, appErr.Fields)
		return
	}

	message := appErr.Message
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: message})
}

// RespondWithSuccess sends data as a 200 response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RespondCreated sends data as a 201 response
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
