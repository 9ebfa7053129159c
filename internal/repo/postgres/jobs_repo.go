package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/job"
	"github.com/geocoder89/quorahub/internal/observability"
	"github.com/geocoder89/quorahub/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type JobsRepo struct {
	observer
	db DBTX
}

func NewJobsRepo(db DBTX, prom *observability.Prom) *JobsRepo {
	return &JobsRepo{observer: observer{prom: prom}, db: db}
}

const jobColumns = `id, type, payload, status, attempts, max_attempts,
	run_at, locked_at, locked_by, last_error, idempotency_key, created_at, updated_at`

const qualifiedJobColumns = `j.id, j.type, j.payload, j.status, j.attempts, j.max_attempts,
	j.run_at, j.locked_at, j.locked_by, j.last_error, j.idempotency_key, j.created_at, j.updated_at`

func scanJob(row pgx.Row) (job.Job, error) {
	var j job.Job
	var status string

	err := row.Scan(
		&j.ID, &j.Type, &j.Payload, &status,
		&j.Attempts, &j.MaxAttempts,
		&j.RunAt, &j.LockedAt, &j.LockedBy,
		&j.LastError, &j.IdempotencyKey, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return job.Job{}, err
	}

	j.Status = job.Status(status)
	return j, nil
}

// Enqueue is idempotent on the idempotency key: a repeated key returns the job already stored.
func (r *JobsRepo) Enqueue(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	j := job.New(req)

	var tag pgconn.CommandTag
	err := r.observe("jobs.enqueue", func() error {
		var err error
		tag, err = r.db.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		`, j.ID, j.Type, j.Payload, string(j.Status), j.Attempts, j.MaxAttempts,
			j.RunAt, j.LockedAt, j.LockedBy, j.LastError, j.IdempotencyKey, j.CreatedAt, j.UpdatedAt)
		return err
	})
	if err != nil {
		return job.Job{}, err
	}

	if tag.RowsAffected() == 1 || req.IdempotencyKey == nil {
		return j, nil
	}

	return r.getByIdempotencyKey(ctx, *req.IdempotencyKey)
}

func (r *JobsRepo) getByIdempotencyKey(ctx context.Context, key string) (job.Job, error) {
	return r.one(ctx, "jobs.get_by_idempotency_key",
		`SELECT `+jobColumns+` FROM jobs WHERE idempotency_key = $1`, key)
}

// one reads a single job row; no row is ErrJobNotFound.
func (r *JobsRepo) one(ctx context.Context, op, sql string, args ...any) (job.Job, error) {
	var j job.Job

	err := r.observe(op, func() error {
		var err error
		j, err = scanJob(r.db.QueryRow(ctx, sql, args...))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return job.Job{}, job.ErrJobNotFound
	}
	return j, err
}

// transition runs a single-row state change and maps "no row" to ErrJobNotFound.
func (r *JobsRepo) transition(ctx context.Context, op, sql string, args ...any) error {
	var tag pgconn.CommandTag

	err := r.observe(op, func() error {
		var err error
		tag, err = r.db.Exec(ctx, sql, args...)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return job.ErrJobNotFound
	}
	return nil
}

// MarkFailed counts the final attempt and parks the job until an admin retries it.
func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.transition(ctx, "jobs.mark_failed", `
		UPDATE jobs
		SET status = 'failed', attempts = attempts + 1,
		    locked_at = NULL, locked_by = NULL,
		    last_error = $2, updated_at = NOW()
		WHERE id = $1`, id, errMsg)
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	return r.transition(ctx, "jobs.mark_done", `
		UPDATE jobs
		SET status = 'done', attempts = attempts + 1,
		    locked_at = NULL, locked_by = NULL,
		    last_error = NULL, updated_at = NOW()
		WHERE id = $1`, id)
}

func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	return r.transition(ctx, "jobs.reschedule", `
		UPDATE jobs
		SET status = 'pending', attempts = attempts + 1, run_at = $2,
		    locked_at = NULL, locked_by = NULL,
		    last_error = $3, updated_at = NOW()
		WHERE id = $1`, id, runAt, errMsg)
}

// ClaimNext claims one ready job with FOR UPDATE SKIP LOCKED so workers never share a job.
// An empty queue is ErrJobNotFound.
func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	return r.one(ctx, "jobs.claim_next", `
		WITH next AS (
			SELECT id FROM jobs
			WHERE status = 'pending'
			  AND run_at <= NOW()
			  AND attempts < max_attempts
			ORDER BY run_at, created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE jobs j
		SET status = 'processing', locked_at = NOW(), locked_by = $1, updated_at = NOW()
		FROM next
		WHERE j.id = next.id
		RETURNING `+qualifiedJobColumns, workerID)
}

// RequeueStaleProcessing returns jobs whose lock is older than lockTTL to pending.
func (r *JobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	if lockTTL < time.Second {
		lockTTL = 30 * time.Second
	}

	var n int64
	err := r.observe("jobs.requeue_stale", func() error {
		tag, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending', locked_at = NULL, locked_by = NULL, updated_at = NOW()
		WHERE status = 'processing'
		  AND locked_at < NOW() - make_interval(secs => @ttl)`,
			pgx.NamedArgs{"ttl": lockTTL.Seconds()})
		n = tag.RowsAffected()
		return err
	})
	return n, err
}

// ListCursor pages jobs newest-update first. An empty afterID starts at the top.
func (r *JobsRepo) ListCursor(
	ctx context.Context,
	status *string,
	limit int,
	afterUpdatedAt time.Time,
	afterID string,
) (items []job.Job, nextCursor *string, hasMore bool, err error) {
	args := pgx.NamedArgs{"status": status, "lim": limit + 1, "after_at": nil, "after_id": nil}
	if afterID != "" {
		args["after_at"] = afterUpdatedAt
		args["after_id"] = afterID
	}

	err = r.observe("jobs.admin.list_cursor", func() error {
		rows, qerr := r.db.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE (@status::text IS NULL OR status = @status)
		  AND (@after_at::timestamptz IS NULL OR (updated_at, id) < (@after_at, @after_id::uuid))
		ORDER BY updated_at DESC, id DESC
		LIMIT @lim`, args)
		if qerr != nil {
			return qerr
		}
		items, qerr = pgx.CollectRows(rows, func(row pgx.CollectableRow) (job.Job, error) {
			return scanJob(row)
		})
		return qerr
	})
	if err != nil {
		return nil, nil, false, err
	}

	if len(items) <= limit {
		return items, nil, false, nil
	}

	items = items[:limit]
	last := items[limit-1]
	cur, err := utils.EncodeJobCursor(last.UpdatedAt, last.ID)
	if err != nil {
		return nil, nil, false, err
	}
	return items, &cur, true, nil
}

func (r *JobsRepo) GetByID(ctx context.Context, id string) (job.Job, error) {
	return r.one(ctx, "jobs.admin.get_by_id", `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
}

// Retry gives a failed job a fresh set of attempts. Jobs in any other state are left alone.
func (r *JobsRepo) Retry(ctx context.Context, id string) error {
	err := r.transition(ctx, "jobs.admin.retry", `
		UPDATE jobs
		SET status = 'pending', attempts = 0, run_at = NOW(),
		    locked_at = NULL, locked_by = NULL,
		    last_error = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'failed'`, id)
	if !errors.Is(err, job.ErrJobNotFound) {
		return err
	}

	// distinguish a missing job from one that is not failed
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return job.ErrJobNotFailed
}
