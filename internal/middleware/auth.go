package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pcbooking/internal/modules/auth"
	"pcbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*auth.Principal, error)
}

// JWTAuth rejects requests without a valid, unrevoked bearer token and stores
// the principal in the context.
func JWTAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header is required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header must be 'Bearer <token>'")
			return
		}

		authenticate(c, a, parts[1])
	}
}

// QueryTokenAuth is JWTAuth for clients that cannot set headers, such as
// browser websockets. The token is read from the "token" query parameter.
func QueryTokenAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		}
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is required")
			return
		}
		authenticate(c, a, token)
	}
}

func authenticate(c *gin.Context, a Authenticator, token string) {
	p, err := a.Authenticate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		_ = c.Error(err)
		response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to authenticate")
		return
	}

	auth.SetPrincipal(c, *p)
	c.Next()
}
