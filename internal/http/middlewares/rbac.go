package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		au, ok := AuthUserFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(c, "unauthorized", "Missing identity context"))
			return
		}

		if err := m.guard.RequireAdmin(au); err != nil {
			abortAuth(c, err)
			return
		}
		c.Next()
	}
}
