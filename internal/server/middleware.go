package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/garagedesk/internal/authorization"
	"github.com/smallbiznis/garagedesk/internal/identity"
	obscontext "github.com/smallbiznis/garagedesk/internal/observability/context"
)

// Identify resolves the bearer token into a principal. Requests without a
// token continue as anonymous; a token that fails verification is rejected.
func (s *Server) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := identity.Authenticate(s.verifier, c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := identity.WithPrincipal(c.Request.Context(), principal)
		if principal.Authenticated() {
			ctx = obscontext.WithActor(ctx, principal.Role.String(), principal.ID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers before the handler reads the body,
// so a customer gets 403 whatever they send.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authorization.AuthorizeAdmin(principalFrom(c)); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) identity.Principal {
	return identity.FromContext(c.Request.Context())
}
