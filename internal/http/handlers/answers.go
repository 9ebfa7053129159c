package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/domain/answer"
	"github.com/geocoder89/quorahub/internal/domain/question"
	"github.com/gin-gonic/gin"
)

type AnswersRepo interface {
	Create(ctx context.Context, a answer.Answer) (answer.Answer, error)
	GetByID(ctx context.Context, id string) (answer.Answer, error)
	UpdateContent(ctx context.Context, id, content string) (answer.Answer, error)
	Delete(ctx context.Context, id string) error
	ListByQuestion(ctx context.Context, questionID string) ([]answer.Answer, error)
}

type QuestionLookup interface {
	GetByID(ctx context.Context, id string) (question.Question, error)
}

type AnswersHandler struct {
	repo      AnswersRepo
	questions QuestionLookup
	authz     Authorizer
}

func NewAnswersHandler(repo AnswersRepo, questions QuestionLookup, authz Authorizer) *AnswersHandler {
	return &AnswersHandler{repo: repo, questions: questions, authz: authz}
}

// POST /question/:questionId/answer/create
func (h *AnswersHandler) Create(ctx *gin.Context) {
	au, ok := authUser(ctx)
	if !ok {
		return
	}

	var req answer.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	id, ok := pathID(ctx, "questionId", "Question not found")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	q, err := h.questions.GetByID(cctx, id)
	if err != nil {
		RespondAuthError(ctx, err, "Could not fetch question")
		return
	}

	a, err := h.repo.Create(cctx, answer.New(req, q.ID, au.UserID()))
	if err != nil {
		RespondAuthError(ctx, err, "Could not create answer")
		return
	}

	ctx.JSON(http.StatusCreated, StatusResponse{ID: a.ID, Status: "ANSWER CREATED"})
}

// GET /answer/all/:questionId
func (h *AnswersHandler) ListByQuestion(ctx *gin.Context) {
	if _, ok := authUser(ctx); !ok {
		return
	}

	id, ok := pathID(ctx, "questionId", "Question not found")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	q, err := h.questions.GetByID(cctx, id)
	if err != nil {
		RespondAuthError(ctx, err, "Could not fetch question")
		return
	}

	items, err := h.repo.ListByQuestion(cctx, q.ID)
	if err != nil {
		RespondAuthError(ctx, err, "Could not list answers")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"questionId": q.ID,
		"count":      len(items),
		"items":      items,
	})
}

// PUT /answer/edit/:answerId
func (h *AnswersHandler) Edit(ctx *gin.Context) {
	au, ok := authUser(ctx)
	if !ok {
		return
	}

	var req answer.EditRequest
	if !BindJSON(ctx, &req) {
		return
	}

	id, ok := pathID(ctx, "answerId", "Answer not found")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	a, err := h.repo.GetByID(cctx, id)
	if err != nil {
		RespondAuthError(ctx, err, "Could not fetch answer")
		return
	}

	if err := h.authz.Authorize(au, auth.ResourceAnswer, auth.ActionEdit, a); err != nil {
		RespondAuthError(ctx, err, "Could not edit answer")
		return
	}

	a, err = h.repo.UpdateContent(cctx, a.ID, req.Content)
	if err != nil {
		RespondAuthError(ctx, err, "Could not edit answer")
		return
	}

	ctx.JSON(http.StatusOK, StatusResponse{ID: a.ID, Status: "ANSWER EDITED"})
}

// DELETE /answer/delete/:answerId
func (h *AnswersHandler) Delete(ctx *gin.Context) {
	au, ok := authUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "answerId", "Answer not found")
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	a, err := h.repo.GetByID(cctx, id)
	if err != nil {
		RespondAuthError(ctx, err, "Could not fetch answer")
		return
	}

	if err := h.authz.Authorize(au, auth.ResourceAnswer, auth.ActionDelete, a); err != nil {
		RespondAuthError(ctx, err, "Could not delete answer")
		return
	}

	if err := h.repo.Delete(cctx, a.ID); err != nil {
		RespondAuthError(ctx, err, "Could not delete answer")
		return
	}

	ctx.JSON(http.StatusOK, StatusResponse{ID: a.ID, Status: "ANSWER DELETED"})
}
