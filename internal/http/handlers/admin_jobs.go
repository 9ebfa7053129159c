package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/job"
	"github.com/geocoder89/quorahub/internal/http/middlewares"
	"github.com/geocoder89/quorahub/internal/utils"
	"github.com/gin-gonic/gin"
)

type AdminJobsRepo interface {
	ListCursor(
		ctx context.Context,
		status *string,
		limit int,
		afterUpdatedAt time.Time,
		afterID string,
	) (items []job.Job, nextCursor *string, hasMore bool, err error)
	GetByID(ctx context.Context, id string) (job.Job, error)
	Retry(ctx context.Context, id string) error
}

// AdminJobsHandler exposes the notification outbox to admins.
type AdminJobsHandler struct {
	repo AdminJobsRepo
}

func NewAdminJobsHandler(repo AdminJobsRepo) *AdminJobsHandler {
	return &AdminJobsHandler{repo: repo}
}

type jobPage struct {
	Limit      int       `json:"limit"`
	Count      int       `json:"count"`
	Items      []job.Job `json:"items"`
	HasMore    bool      `json:"hasMore"`
	NextCursor *string   `json:"nextCursor"`
}

// List serves GET /admin/jobs?status=failed&limit=50&cursor=...
func (h *AdminJobsHandler) List(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	var status *string
	if raw := ctx.Query("status"); raw != "" {
		st, ok := job.ParseStatus(raw)
		if !ok {
			RespondBadRequest(ctx, "status must be one of pending, processing, done, failed", nil)
			return
		}
		s := string(st)
		status = &s
	}

	var after utils.JobCursor
	if raw := ctx.Query("cursor"); raw != "" {
		cur, err := utils.DecodeJobCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "cursor is invalid", nil)
			return
		}
		after = cur
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	items, next, hasMore, err := h.repo.ListCursor(cctx, status, limit, after.UpdatedAt, after.ID)
	if err != nil {
		RespondAuthError(ctx, err, "Could not list jobs")
		return
	}
	if items == nil {
		items = []job.Job{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, jobPage{
		Limit:      limit,
		Count:      len(items),
		Items:      items,
		HasMore:    hasMore,
		NextCursor: next,
	})
}

// GetByID serves GET /admin/jobs/:id
func (h *AdminJobsHandler) GetByID(ctx *gin.Context) {
	id, ok := jobIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	j, err := h.repo.GetByID(cctx, id)
	if err != nil {
		RespondAuthError(ctx, err, "Could not fetch job")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, j)
}

// Retry serves POST /admin/jobs/:id/retry. Only failed jobs go back to pending.
func (h *AdminJobsHandler) Retry(ctx *gin.Context) {
	id, ok := jobIDParam(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx)
	defer cancel()

	if err := h.repo.Retry(cctx, id); err != nil {
		if errors.Is(err, job.ErrJobNotFailed) {
			RespondConflict(ctx, "job_not_failed", "Only failed jobs can be retried")
			return
		}
		RespondAuthError(ctx, err, "Could not retry job")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"jobId":  id,
		"status": job.StatusPending,
	})
}

func jobIDParam(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	ctx.Set(middlewares.CtxJobID, id)

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", nil)
		return "", false
	}
	return id, true
}
