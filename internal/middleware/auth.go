package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/service/access"
	"github.com/jwalitptl/clinical-api/pkg/errors"
)

const (
	ContextPrincipal = "principal"
	ContextUserID    = "user_id"
)

// TokenAuthenticator turns a bearer token into a user id
type TokenAuthenticator interface {
	Authenticate(token string) (int64, error)
}

// PrincipalResolver loads the caller's roles for a user id
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID int64) (*model.Principal, error)
}

type AuthMiddleware struct {
	tokens   TokenAuthenticator
	resolver PrincipalResolver
}

func NewAuthMiddleware(tokens TokenAuthenticator, resolver PrincipalResolver) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		resolver: resolver,
	}
}

// Authenticate verifies the bearer token and stores the resolved principal
// in the context. The user is reloaded on every request.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Error(errors.Unauthorized(access.MsgNotAuthenticated))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.Error(errors.Unauthorized("Authorization header must contain two space-delimited values"))
			c.Abort()
			return
		}

		userID, err := m.tokens.Authenticate(strings.TrimSpace(parts[1]))
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		principal, err := m.resolver.Resolve(c.Request.Context(), userID)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		c.Set(ContextPrincipal, principal)
		c.Set(ContextUserID, principal.UserID)
		c.Next()
	}
}

// GetPrincipal returns the principal stored by Authenticate, or nil.
func GetPrincipal(c *gin.Context) *model.Principal {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*model.Principal)
	return p
}
