package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/pkg/apperror"
)

// Context keys set by AuthMiddleware
const (
	IdentityKey = "identity"
	TokenKey    = "token"
)

// CredentialAuthenticator resolves a bearer credential into an identity
type CredentialAuthenticator interface {
	AuthenticateCredential(ctx context.Context, token string) (*model.Identity, error)
}

// AuthMiddleware validates the bearer token and injects the identity into context
func AuthMiddleware(authn CredentialAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid authorization format. Use: Bearer <token>"})
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		identity, err := authn.AuthenticateCredential(c.Request.Context(), tokenString)
		if err != nil {
			status := apperror.HTTPStatus(err)
			msg := "Invalid or expired token"
			if status != http.StatusUnauthorized {
				msg = "Auth server error"
			} else if errors.Is(err, apperror.ErrRevokedCredential) {
				msg = "Token has been revoked"
			}
			c.AbortWithStatusJSON(status, model.ErrorResponse{Error: msg, Code: string(apperror.CodeOf(err))})
			return
		}

		// Store identity in context for downstream handlers
		c.Set(IdentityKey, identity)
		c.Set(TokenKey, tokenString)

		c.Next()
	}
}
