package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/job"
	"github.com/geocoder89/quorahub/internal/utils"
)

type JobsRepo struct {
	mu rwLocker
	st *state
}

// Enqueue returns the existing job when the idempotency key was already used.
func (r *JobsRepo) Enqueue(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.IdempotencyKey != nil {
		if id, ok := r.st.jobKeys[*req.IdempotencyKey]; ok {
			return r.st.jobs[id], nil
		}
	}

	j := job.New(req)
	r.st.jobs[j.ID] = j
	if j.IdempotencyKey != nil {
		r.st.jobKeys[*j.IdempotencyKey] = j.ID
	}
	return j, nil
}

func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	var next *job.Job
	for _, j := range r.st.jobs {
		if j.Status != job.StatusPending || j.RunAt.After(now) || j.Attempts >= j.MaxAttempts {
			continue
		}
		if next == nil || j.RunAt.Before(next.RunAt) ||
			(j.RunAt.Equal(next.RunAt) && j.CreatedAt.Before(next.CreatedAt)) {
			c := j
			next = &c
		}
	}
	if next == nil {
		return job.Job{}, job.ErrJobNotFound
	}

	wid := workerID
	next.Status = job.StatusProcessing
	next.LockedAt = &now
	next.LockedBy = &wid
	next.UpdatedAt = now
	r.st.jobs[next.ID] = *next

	return *next, nil
}

func (r *JobsRepo) update(id string, fn func(j *job.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.st.jobs[id]
	if !ok {
		return job.ErrJobNotFound
	}
	fn(&j)
	j.UpdatedAt = time.Now().UTC()
	r.st.jobs[id] = j
	return nil
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	return r.update(id, func(j *job.Job) {
		j.Status = job.StatusDone
		j.Attempts++
		j.LockedAt = nil
		j.LockedBy = nil
		j.LastError = nil
	})
}

func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.update(id, func(j *job.Job) {
		j.Status = job.StatusFailed
		j.Attempts++
		j.LockedAt = nil
		j.LockedBy = nil
		j.LastError = &errMsg
	})
}

func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	return r.update(id, func(j *job.Job) {
		j.Status = job.StatusPending
		j.Attempts++
		j.RunAt = runAt
		j.LockedAt = nil
		j.LockedBy = nil
		j.LastError = &errMsg
	})
}

func (r *JobsRepo) GetByID(ctx context.Context, id string) (job.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.st.jobs[id]
	if !ok {
		return job.Job{}, job.ErrJobNotFound
	}
	return j, nil
}

// Retry requeues a failed job.
func (r *JobsRepo) Retry(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.st.jobs[id]
	if !ok {
		return job.ErrJobNotFound
	}
	if j.Status != job.StatusFailed {
		return job.ErrJobNotFailed
	}

	now := time.Now().UTC()
	j.Status = job.StatusPending
	j.Attempts = 0
	j.RunAt = now
	j.LockedAt = nil
	j.LockedBy = nil
	j.LastError = nil
	j.UpdatedAt = now
	r.st.jobs[id] = j
	return nil
}

// ListCursor pages on (updated_at, id) descending. A zero afterID starts at the newest job.
func (r *JobsRepo) ListCursor(
	ctx context.Context,
	status *string,
	limit int,
	afterUpdatedAt time.Time,
	afterID string,
) (items []job.Job, nextCursor *string, hasMore bool, err error) {
	r.mu.RLock()
	all := make([]job.Job, 0, len(r.st.jobs))
	for _, j := range r.st.jobs {
		if status != nil && string(j.Status) != *status {
			continue
		}
		if afterID != "" && !olderJob(j, afterUpdatedAt, afterID) {
			continue
		}
		all = append(all, j)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, k int) bool {
		return olderJob(all[k], all[i].UpdatedAt, all[i].ID)
	})

	if len(all) > limit {
		hasMore = true
		all = all[:limit]
		last := all[len(all)-1]

		cur, encErr := utils.EncodeJobCursor(last.UpdatedAt, last.ID)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return all, nextCursor, hasMore, nil
}

func olderJob(j job.Job, updatedAt time.Time, id string) bool {
	if !j.UpdatedAt.Equal(updatedAt) {
		return j.UpdatedAt.Before(updatedAt)
	}
	return j.ID < id
}

// RequeueStaleProcessing returns jobs whose lock is older than lockTTL to pending.
func (r *JobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	now := time.Now().UTC()
	cutoff := now.Add(-lockTTL)

	var n int64
	for id, j := range r.st.jobs {
		if j.Status != job.StatusProcessing || j.LockedAt == nil || !j.LockedAt.Before(cutoff) {
			continue
		}
		j.Status = job.StatusPending
		j.LockedAt = nil
		j.LockedBy = nil
		j.UpdatedAt = now
		r.st.jobs[id] = j
		n++
	}
	return n, nil
}
