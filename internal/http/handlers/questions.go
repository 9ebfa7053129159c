package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/domain/question"
	"github.com/geocoder89/quorahub/internal/domain/user"
	"github.com/geocoder89/quorahub/internal/utils"
	"github.com/gin-gonic/gin"
)

type QuestionsRepo interface {
	Create(ctx context.Context, q question.Question) (question.Question, error)
	GetByID(ctx context.Context, id string) (question.Question, error)
	UpdateContent(ctx context.Context, id, content string) (question.Question, error)
	Delete(ctx context.Context, id string) error
	ListCursor(ctx context.Context, f question.ListFilter) (items []question.Question, nextCursor *string, hasMore bool, err error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id string) (user.User, error)
}

// Authorizer applies the ownership policy to a resolved caller.
type Authorizer interface {
	Authorize(au auth.AuthenticatedUser, res auth.Resource, act auth.Action, o auth.Owned) error
}

type QuestionsHandler struct {
	repo  QuestionsRepo
	users UserLookup
	authz Authorizer
}

func NewQuestionsHandler(repo QuestionsRepo, users UserLookup, authz Authorizer) *QuestionsHandler {
	return &QuestionsHandler{repo: repo, users: users, authz: authz}
}

// POST /question/create
func (h *QuestionsHandler) Create(ctx *gin.Context) {
	au, ok := authUser(ctx)
	if !ok {
		return
	}

	var req question.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	q, err := h.repo.Create(cctx, question.New(req, au.UserID()))
	if err != nil {
		RespondAuthError(ctx, err, "Could not create question")
		return
	}

	ctx.JSON(http.StatusCreated, StatusResponse{ID: q.ID, Status: "QUESTION CREATED"})
}

// GET /question/all?limit=20&cursor=...
func (h *QuestionsHandler) ListAll(ctx *gin.Context) {
	if _, ok := authUser(ctx); !ok {
		return
	}

	h.list(ctx, nil)
}

// GET /question/all/:userId
func (h *QuestionsHandler) ListByUser(ctx *gin.Context) {
	if _, ok := authUser(ctx); !ok {
		return
	}

	userID, ok := pathID(ctx, "userId", "User not found")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	if _, err := h.users.FindByID(cctx, userID); err != nil {
		RespondAuthError(ctx, err, "Could not fetch user")
		return
	}

	h.list(ctx, &userID)
}

func (h *QuestionsHandler) list(ctx *gin.Context, userID *string) {
	limit := parseIntDefault(ctx.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	f := question.ListFilter{UserID: userID, Limit: limit}

	if cursor := ctx.Query("cursor"); cursor != "" {
		cur, err := utils.DecodeQuestionCursor(cursor)
		if err != nil {
			RespondBadRequest(ctx, "cursor is invalid", nil)
			return
		}
		f.BeforeCreatedAt = cur.CreatedAt
		f.BeforeID = cur.ID
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	items, next, hasMore, err := h.repo.ListCursor(cctx, f)
	if err != nil {
		RespondAuthError(ctx, err, "Could not list questions")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"limit":      limit,
		"count":      len(items),
		"items":      items,
		"hasMore":    hasMore,
		"nextCursor": next,
	})
}

// PUT /question/edit/:questionId
func (h *QuestionsHandler) Edit(ctx *gin.Context) {
	au, ok := authUser(ctx)
	if !ok {
		return
	}

	var req question.EditRequest
	if !BindJSON(ctx, &req) {
		return
	}

	id, ok := pathID(ctx, "questionId", "Question not found")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	q, err := h.repo.GetByID(cctx, id)
	if err != nil {
		RespondAuthError(ctx, err, "Could not fetch question")
		return
	}

	if err := h.authz.Authorize(au, auth.ResourceQuestion, auth.ActionEdit, q); err != nil {
		RespondAuthError(ctx, err, "Could not edit question")
		return
	}

	q, err = h.repo.UpdateContent(cctx, q.ID, req.Content)
	if err != nil {
		RespondAuthError(ctx, err, "Could not edit question")
		return
	}

	ctx.JSON(http.StatusOK, StatusResponse{ID: q.ID, Status: "QUESTION EDITED"})
}

// DELETE /question/delete/:questionId
func (h *QuestionsHandler) Delete(ctx *gin.Context) {
	au, ok := authUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "questionId", "Question not found")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	q, err := h.repo.GetByID(cctx, id)
	if err != nil {
		RespondAuthError(ctx, err, "Could not fetch question")
		return
	}

	if err := h.authz.Authorize(au, auth.ResourceQuestion, auth.ActionDelete, q); err != nil {
		RespondAuthError(ctx, err, "Could not delete question")
		return
	}

	if err := h.repo.Delete(cctx, q.ID); err != nil {
		RespondAuthError(ctx, err, "Could not delete question")
		return
	}

	ctx.JSON(http.StatusOK, StatusResponse{ID: q.ID, Status: "QUESTION DELETED"})
}

func parseIntDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
