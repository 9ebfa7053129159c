package worker

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/job"
	"github.com/geocoder89/quorahub/internal/observability"
)

// ProcessOne claims and runs at most one job. It reports whether a job was claimed.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	w.metrics.Record(j.Type, observability.JobClaimed)
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	// a claimed job finishes even if shutdown starts meanwhile
	runCtx, cancelRun := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.JobTimeout)
	defer cancelRun()

	start := time.Now()
	err = w.execute(runCtx, j)
	elapsed := time.Since(start)
	w.metrics.ObserveDuration(elapsed)

	result := observability.JobDone
	defer func() {
		if w.prom != nil {
			w.prom.JobDuration.WithLabelValues(j.Type, result).Observe(elapsed.Seconds())
			w.prom.JobResults.WithLabelValues(j.Type, result).Inc()
		}
	}()

	if err != nil {
		result = w.handleFailure(runCtx, j, err)
		return true, nil
	}

	err = w.repo.MarkDone(runCtx, j.ID)

	if err != nil {
		result = observability.JobFailed
		_ = w.repo.MarkFailed(runCtx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.metrics.Record(j.Type, observability.JobDone)
	w.log.Debug("job done", "job_id", j.ID, "job_type", j.Type, "duration", elapsed)
	return true, nil
}
