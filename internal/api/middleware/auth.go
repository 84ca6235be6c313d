package middleware

import (
	"errors"
	"net/http"
	"strings"

	"notify-service/internal/auth"
	"notify-service/internal/models"
	"notify-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

type AuthMiddleware struct {
	authn auth.Authenticator
}

func NewAuthMiddleware(authn auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authn: authn}
}

// RequireAuth verifies the bearer token and stores the caller's id under "user_id".
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if authHeader == "" || token == authHeader {
			abortWithCode(c, http.StatusUnauthorized, response.ErrCodeTokenMissing, "authorization header is required")
			return
		}

		identity, err := am.authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			code := response.ErrCodeTokenInvalid
			switch {
			case errors.Is(err, auth.ErrUserNotFound):
				code = response.ErrCodeUserNotFound
			case errors.Is(err, auth.ErrUserInactive):
				code = response.ErrCodeUserInactive
			case !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrMissingToken):
				abortWithCode(c, http.StatusInternalServerError, response.ErrCodeInternal, "")
				return
			}
			abortWithCode(c, http.StatusUnauthorized, code, "")
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextUsername, identity.Username)
		c.Next()
	}
}

func abortWithCode(c *gin.Context, status, code int, details string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Code:    code,
		Message: response.Msg(code),
		Details: details,
	})
}
