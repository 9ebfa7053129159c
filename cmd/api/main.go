package main

import (
	"context"
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
	httpx "github.com/geocoder89/quorahub/internal/http"
	"github.com/geocoder89/quorahub/internal/notifications"
	"github.com/geocoder89/quorahub/internal/observability"
	"github.com/geocoder89/quorahub/internal/queue/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "quorahub-api",
			Env:         cfg.Env,
			Endpoint:    cfg.OTLPEndpoint,
			SampleRatio: cfg.TraceSampleRatio,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	a, err := app.Build(ctx, cfg, prom, app.Options{})
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	deps := a.Deps
	deps.Gatherer = reg

	// set up routers with the log
	router := httpx.NewRouter(log, cfg, deps)

	// the memory backend keeps jobs in this process, so deliver them here too
	workerDone := make(chan struct{})
	if a.Backend == config.BackendMemory {
		notifier := notifications.NewProtectedNotifier(notifications.NewLogNotifier(log), notifications.ProtectedNotifierConfig{})
		w := worker.New(worker.Config{
			PollInterval: cfg.WorkerPollInterval,
			WorkerID:     "api-" + strconv.Itoa(os.Getpid()),
			Concurrency:  1,
		}, a.Jobs, notifier, log, prom)

		go func() {
			defer close(workerDone)
			if err := w.Run(ctx); err != nil {
				log.Error("in-process worker stopped", "err", err)
			}
		}()
	} else {
		close(workerDone)
	}

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "backend", a.Backend,
			"auth_policy", a.Deps.Guard.Policy().String())
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}
		<-workerDone
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
