package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/domain/answer"
	"github.com/geocoder89/quorahub/internal/domain/job"
	"github.com/geocoder89/quorahub/internal/domain/question"
	"github.com/geocoder89/quorahub/internal/domain/user"
	"github.com/geocoder89/quorahub/internal/http/middlewares"
	"github.com/geocoder89/quorahub/internal/utils"
	"github.com/gin-gonic/gin"
)

// requestTimeout bounds every store call made on behalf of a request.
const requestTimeout = 3 * time.Second

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// StatusResponse is the body of successful mutations.
type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func requestIDFrom(ctx *gin.Context) string {
	if s := ctx.GetString(middlewares.CtxRequestID); s != "" {
		return s
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// requestContext keeps request scoped values (trace, request id, actor) and adds a deadline.
func requestContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), requestTimeout)
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

// RespondAuthError maps core errors to HTTP: authentication and token problems
// are 401, ownership and role denials 403, missing records 404, duplicates 409.
// Anything else is logged and answered with a generic 500.
func RespondAuthError(ctx *gin.Context, err error, fallback string) {
	if reason, ok := auth.ReasonOf(err); ok {
		switch {
		case errors.Is(err, auth.ErrAuthenticationFailed):
			RespondUnauthorized(ctx, "authentication_failed", reason.Message())
		case errors.Is(err, auth.ErrSignOutRestricted):
			RespondUnauthorized(ctx, "signout_restricted", reason.Message())
		case reason == auth.ReasonNotOwner || reason == auth.ReasonNotAdmin:
			RespondForbidden(ctx, reason.Message())
		default:
			RespondUnauthorized(ctx, "unauthorized", reason.Message())
		}
		return
	}

	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, question.ErrNotFound):
		RespondNotFound(ctx, "Question not found")
	case errors.Is(err, answer.ErrNotFound):
		RespondNotFound(ctx, "Answer not found")
	case errors.Is(err, job.ErrJobNotFound):
		RespondNotFound(ctx, "Job not found")
	case errors.Is(err, user.ErrDuplicateUsername):
		RespondConflict(ctx, "username_taken", "Username is already taken")
	case errors.Is(err, user.ErrDuplicateEmail):
		RespondConflict(ctx, "email_taken", "Email address is already registered")
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), fallback,
			"err", err,
			"request_id", requestIDFrom(ctx),
		)
		RespondInternal(ctx, fallback)
	}
}

// authUser returns the identity set by RequireAuth, answering 401 when it is missing.
func authUser(ctx *gin.Context) (auth.AuthenticatedUser, bool) {
	au, ok := middlewares.AuthUserFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "token not found")
		return auth.AuthenticatedUser{}, false
	}
	return au, true
}

// pathID reads a resource id from the path. Ids are UUIDs, so anything else
// cannot name a record and is answered 404 without a store round trip.
func pathID(ctx *gin.Context, name, notFound string) (string, bool) {
	id := ctx.Param(name)
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, notFound)
		return "", false
	}
	return id, true
}

func authUserIfAny(ctx *gin.Context) (string, bool) {
	au, ok := middlewares.AuthUserFromContext(ctx)
	if !ok {
		return "", false
	}
	return au.UserID(), true
}
