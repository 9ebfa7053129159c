package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/quorahub/internal/actorctx"
	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/gin-gonic/gin"
)

// TokenGuard is the slice of auth.Guard the middleware needs; tests fake it.
type TokenGuard interface {
	Resolve(ctx context.Context, token string) (auth.AuthenticatedUser, error)
	RequireAdmin(au auth.AuthenticatedUser) error
}

type AuthMiddleware struct {
	guard TokenGuard
}

func NewAuthMiddleware(guard TokenGuard) *AuthMiddleware {
	return &AuthMiddleware{guard: guard}
}

// TokenFromHeader accepts a raw token or "Bearer <token>".
func TokenFromHeader(h string) string {
	h = strings.TrimSpace(h)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromHeader(c.GetHeader("Authorization"))

		au, err := m.guard.Resolve(c.Request.Context(), token)
		if err != nil {
			abortAuth(c, err)
			return
		}

		// Stash the resolved identity for handlers and downstream code
		c.Set(CtxAuthUser, au)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), au.UserID()))

		c.Next()
	}
}

func abortAuth(c *gin.Context, err error) {
	reason, ok := auth.ReasonOf(err)
	if !ok {
		slog.Default().ErrorContext(c.Request.Context(), "resolve token failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(c, "internal_error", "Could not verify access token"))
		return
	}

	status := http.StatusUnauthorized
	code := "unauthorized"
	if errors.Is(err, auth.ErrAuthorizationFailed) && (reason == auth.ReasonNotAdmin || reason == auth.ReasonNotOwner) {
		status = http.StatusForbidden
		code = "forbidden"
	}

	c.AbortWithStatusJSON(status, errorBody(c, code, reason.Message()))
}

func errorBody(c *gin.Context, code, message string) gin.H {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if id := c.GetString(CtxRequestID); id != "" {
		body["requestId"] = id
	}
	return gin.H{"error": body}
}

// AuthUserFromContext returns the identity stored by RequireAuth.
func AuthUserFromContext(c *gin.Context) (auth.AuthenticatedUser, bool) {
	v, ok := c.Get(CtxAuthUser)
	if !ok {
		return auth.AuthenticatedUser{}, false
	}
	au, ok := v.(auth.AuthenticatedUser)
	return au, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	au, ok := AuthUserFromContext(c)
	if !ok || au.UserID() == "" {
		return "", false
	}
	return au.UserID(), true
}
