package middleware

import (
	"crypto/subtle"
	"net/http"

	"notify-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const InternalKeyHeader = "X-Internal-Key"

// RequireInternalKey guards service-to-service routes with a shared key. With no key
// configured every request is refused.
func RequireInternalKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader(InternalKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			abortWithCode(c, http.StatusForbidden, response.ErrCodeForbidden, "")
			return
		}
		c.Next()
	}
}
