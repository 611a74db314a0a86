package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinical-api/pkg/errors"
	"github.com/jwalitptl/clinical-api/pkg/httputil"
)

// ErrorHandler renders the last error pushed with c.Error. Application errors
// keep their status; anything else is logged and becomes a 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		lastErr := c.Errors.Last().Err
		level := zerolog.ErrorLevel
		if appErr, ok := errors.As(lastErr); ok && appErr.StatusCode() < 500 {
			level = zerolog.DebugLevel
		}

		log.WithLevel(level).
			Err(lastErr).
			Str("request_id", c.GetString(ContextRequestID)).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("request error")

		if c.Writer.Written() {
			return
		}
		httputil.RespondWithError(c, lastErr)
	}
}
