package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/quorahub/internal/domain/job"
	"github.com/geocoder89/quorahub/internal/jobs"
	"github.com/geocoder89/quorahub/internal/notifications"
	"github.com/geocoder89/quorahub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// Pinger reports whether the job store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	LockTTL       time.Duration
	JobTimeout    time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	log      *slog.Logger
	metrics  *observability.JobMetrics
	prom     *observability.Prom
	pinger   Pinger

	readyMu sync.RWMutex
	ready   bool

	now     func() time.Time
	backoff func(attempt int) time.Duration
}

func New(cfg Config, repo JobsRepository, notifier notifications.Notifier, log *slog.Logger, prom *observability.Prom) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.WorkerID == "" {
		cfg.WorkerID = "worker"
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		log:      log.With("worker_id", cfg.WorkerID),
		metrics:  observability.NewJobMetrics(),
		prom:     prom,
		now:      time.Now,
		backoff:  ExponentialBackoff,
	}
}

// WithPinger makes /readyz also require a reachable job store.
func (w *Worker) WithPinger(p Pinger) *Worker {
	w.pinger = p
	return w
}

func (w *Worker) Stats() observability.JobStats {
	return w.metrics.Snapshot()
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

// Run polls for jobs with cfg.Concurrency loops until ctx is cancelled, then
// waits up to ShutdownGrace for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.reapStale(ctx)
	}()

	w.setReady(true)
	w.log.Info("worker started", "concurrency", w.cfg.Concurrency)

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker received shutdown signal")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
		return fmt.Errorf("worker shutdown grace %s exceeded", w.cfg.ShutdownGrace)
	}
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// drain everything that is ready before sleeping again
			for ctx.Err() == nil {
				processed, err := w.ProcessOne(ctx)
				if err != nil {
					w.log.Error("process job failed", "err", err)
				}
				if !processed {
					break
				}
			}
		}
	}
}

func (w *Worker) reapStale(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.LockTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
			if err != nil {
				w.log.Error("requeue stale jobs failed", "err", err)
				continue
			}
			if n > 0 {
				w.log.Warn("requeued stale jobs", "count", n)
			}
		}
	}
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(j)
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case jobs.UserWelcomePayload:
		return w.notifier.SendWelcome(ctx, notifications.WelcomeInput{
			UserID:   p.UserID,
			Email:    p.Email,
			Name:     p.FirstName,
			UserName: p.UserName,
		})

	case jobs.UserRemovedPayload:
		return w.notifier.SendAccountRemoved(ctx, notifications.AccountRemovedInput{
			UserID:              p.UserID,
			Email:               p.Email,
			UserName:            p.UserName,
			InvalidatedSessions: p.InvalidatedSessions,
		})

	default:
		return jobs.ErrPayloadTypeMismatch
	}
}

func permanent(err error) bool {
	return errors.Is(err, jobs.ErrInvalidJobType) ||
		errors.Is(err, jobs.ErrInvalidJobPayload) ||
		errors.Is(err, jobs.ErrPayloadTypeMismatch)
}

// handleFailure reschedules with backoff, or fails the job for good once
// attempts run out or the payload can never succeed.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) string {
	msg := cause.Error()

	if permanent(cause) || j.Attempts+1 >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, msg); err != nil {
			w.log.Error("mark failed", "job_id", j.ID, "err", err)
		}
		w.metrics.Record(j.Type, observability.JobFailed)
		w.log.Warn("job failed permanently", "job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts+1, "err", cause)
		return observability.JobFailed
	}

	runAt := w.now().UTC().Add(w.backoff(j.Attempts))
	if err := w.repo.Reschedule(ctx, j.ID, runAt, msg); err != nil {
		w.log.Error("reschedule failed", "job_id", j.ID, "err", err)
	}
	w.metrics.Record(j.Type, observability.JobRetried)
	w.log.Info("job rescheduled", "job_id", j.ID, "job_type", j.Type, "run_at", runAt, "err", cause)
	return observability.JobRetried
}
