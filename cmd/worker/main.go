package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/quorahub/internal/app"
	"github.com/geocoder89/quorahub/internal/config"
	"github.com/geocoder89/quorahub/internal/notifications"
	"github.com/geocoder89/quorahub/internal/observability"
	"github.com/geocoder89/quorahub/internal/queue/worker"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if cfg.StoreBackend != config.BackendPostgres {
		log.Error("worker needs the postgres backend; the memory backend delivers jobs inside the api process",
			"backend", cfg.StoreBackend)
		os.Exit(1)
	}

	prom := observability.NewProm(prometheus.NewRegistry())

	a, err := app.Build(ctx, cfg, prom, app.Options{})
	if err != nil {
		log.Error("worker startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(log),
		notifications.ProtectedNotifierConfig{
			Timeout:          2 * time.Second,
			FailureThreshold: 3,
			Cooldown:         15 * time.Second,
			OnStateChange: func(from, to notifications.BreakerState) {
				log.Warn("notifier circuit changed", "from", from, "to", to)
			},
		},
	)

	w := worker.New(worker.Config{
		PollInterval:  cfg.WorkerPollInterval,
		WorkerID:      workerID,
		Concurrency:   cfg.WorkerConcurrency,
		ShutdownGrace: 10 * time.Second,
	}, a.Jobs, notifier, log, prom).WithPinger(a.Pinger)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID, "concurrency", cfg.WorkerConcurrency)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(sctx)

	log.Info("worker shutdown complete")
}
