package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/domain/session"
	"github.com/geocoder89/quorahub/internal/domain/user"
	"github.com/geocoder89/quorahub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type AccountService interface {
	Signup(ctx context.Context, req user.SignupRequest) (user.User, error)
	Profile(ctx context.Context, userID string) (user.User, error)
	Delete(ctx context.Context, au auth.AuthenticatedUser, userID string) error
}

type SessionService interface {
	Authenticate(ctx context.Context, username, password string) (session.Session, error)
	SignOut(ctx context.Context, token string) (session.Session, error)
}

const accessTokenHeader = "access-token"

type UsersHandler struct {
	accounts AccountService
	sessions SessionService
}

func NewUsersHandler(accounts AccountService, sessions SessionService) *UsersHandler {
	return &UsersHandler{accounts: accounts, sessions: sessions}
}

// POST /user/signup
func (h *UsersHandler) Signup(ctx *gin.Context) {
	var req user.SignupRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	u, err := h.accounts.Signup(cctx, req)
	if err != nil {
		RespondAuthError(ctx, err, "Could not register user")
		return
	}

	ctx.JSON(http.StatusCreated, StatusResponse{ID: u.ID, Status: "USER SUCCESSFULLY REGISTERED"})
}

// POST /user/signin with Authorization: Basic base64(username:password)
func (h *UsersHandler) Signin(ctx *gin.Context) {
	username, password, ok := ctx.Request.BasicAuth()
	if !ok || username == "" {
		RespondUnauthorized(ctx, "authentication_failed", "Missing or invalid Basic authorization header")
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	s, err := h.sessions.Authenticate(cctx, username, password)
	if err != nil {
		RespondAuthError(ctx, err, "Could not sign in")
		return
	}

	// the token travels only in this header
	ctx.Header(accessTokenHeader, s.Token)
	ctx.JSON(http.StatusOK, StatusResponse{ID: s.UserID, Status: "SIGNED IN SUCCESSFULLY"})
}

// POST /user/signout with authorization: <token>
func (h *UsersHandler) Signout(ctx *gin.Context) {
	token := middlewares.TokenFromHeader(ctx.GetHeader("Authorization"))

	cctx, cancel := requestContext(ctx)
	defer cancel()

	s, err := h.sessions.SignOut(cctx, token)
	if err != nil {
		RespondAuthError(ctx, err, "Could not sign out")
		return
	}

	// audit trail; a repeated signout reports the first logout
	slog.Default().InfoContext(ctx.Request.Context(), "session ended",
		"user_id", s.UserID,
		"ended_at", s.EffectiveEnd(),
		"request_id", requestIDFrom(ctx),
	)

	ctx.JSON(http.StatusOK, StatusResponse{ID: s.UserID, Status: "SIGNED OUT SUCCESSFULLY"})
}

// GET /userprofile/:userId
func (h *UsersHandler) Profile(ctx *gin.Context) {
	if _, ok := authUser(ctx); !ok {
		return
	}

	userID, ok := pathID(ctx, "userId", "User not found")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	u, err := h.accounts.Profile(cctx, userID)
	if err != nil {
		RespondAuthError(ctx, err, "Could not fetch user")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u.Profile())
}

// DELETE /admin/user/:userId
func (h *UsersHandler) Delete(ctx *gin.Context) {
	au, ok := authUser(ctx)
	if !ok {
		return
	}

	userID := ctx.Param("userId")

	cctx, cancel := requestContext(ctx)
	defer cancel()

	err := h.accounts.Delete(cctx, au, userID)
	if err != nil {
		RespondAuthError(ctx, err, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, StatusResponse{ID: userID, Status: "USER SUCCESSFULLY DELETED"})
}
