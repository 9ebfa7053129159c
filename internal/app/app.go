// Package app assembles stores, caches and auth services for the configured backend.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/cache"
	"github.com/geocoder89/quorahub/internal/config"
	"github.com/geocoder89/quorahub/internal/db"
	httpx "github.com/geocoder89/quorahub/internal/http"
	"github.com/geocoder89/quorahub/internal/http/handlers"
	"github.com/geocoder89/quorahub/internal/observability"
	"github.com/geocoder89/quorahub/internal/queue/worker"
	"github.com/geocoder89/quorahub/internal/redisclient"
	"github.com/geocoder89/quorahub/internal/repo/memory"
	"github.com/geocoder89/quorahub/internal/repo/postgres"
	"github.com/geocoder89/quorahub/internal/security"
	"golang.org/x/crypto/bcrypt"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Backend string
	Deps    httpx.Deps
	Jobs    worker.JobsRepository
	Pinger  worker.Pinger

	closers []func()
}

// Options override pieces of the wiring; tests use them to speed up hashing.
type Options struct {
	Hasher auth.PasswordHasher
	Now    func() time.Time
}

// Build wires every store and service for cfg.StoreBackend. prom may be nil.
func Build(ctx context.Context, cfg config.Config, prom *observability.Prom, opts Options) (*App, error) {
	policy, err := auth.ParsePolicy(cfg.AuthPolicy)
	if err != nil {
		return nil, fmt.Errorf("parse AUTH_POLICY: %w", err)
	}

	hasher := opts.Hasher
	if hasher == nil {
		hasher = security.NewBcryptHasher(bcrypt.DefaultCost)
	}

	authCfg := auth.Config{
		SessionTTL: cfg.SessionTTL,
		Policy:     policy,
		Now:        opts.Now,
	}
	if prom != nil {
		authCfg.Observer = prom
	}

	a := &App{Backend: cfg.StoreBackend}

	var (
		users     auth.CredentialStore
		sessions  auth.SessionStore
		uow       auth.UnitOfWork
		questions handlers.QuestionsRepo
		answers   handlers.AnswersRepo
		ping      pinger
	)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		st := memory.NewStore()
		users, sessions, uow, ping = st.Users(), st.Sessions(), st, st
		questions, answers = st.Questions(), st.Answers()
		a.Jobs = st.Jobs()
		a.Deps.Jobs = st.Jobs()

	case config.BackendPostgres:
		pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		if err := db.Migrate(ctx, pool); err != nil {
			a.Close()
			return nil, err
		}

		users = postgres.NewUsersRepo(pool, prom)
		sessions = postgres.NewSessionsRepo(pool, prom)
		uow = postgres.NewUnitOfWork(pool, prom)
		ping = pool
		questions = postgres.NewQuestionsRepo(pool, prom)
		answers = postgres.NewAnswersRepo(pool, prom)
		jobsRepo := postgres.NewJobsRepo(pool, prom)
		a.Jobs = jobsRepo
		a.Deps.Jobs = jobsRepo

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	var evict auth.SessionEvicter
	if sc := a.sessionCache(ctx, cfg, opts.Now); sc != nil {
		cached := cache.NewSessionStore(sessions, sc, cfg.SessionCacheTTL).WithClock(opts.Now)
		if prom != nil {
			cached.WithObserver(prom)
		}
		sessions, evict = cached, cached
	}

	guard := auth.NewGuard(users, sessions, authCfg)

	a.Pinger = ping
	a.Deps.Authenticator = auth.NewAuthenticator(users, sessions, hasher, authCfg)
	a.Deps.Accounts = auth.NewAccounts(users, uow, guard, hasher, evict, authCfg)
	a.Deps.Guard = guard
	a.Deps.Users = users
	a.Deps.Questions = questions
	a.Deps.Answers = answers
	a.Deps.Prom = prom
	a.Deps.Ping = func() error {
		pctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return ping.Ping(pctx)
	}

	if cfg.SeedAdmin() {
		err := db.EnsureAdminUser(ctx, users, hasher, db.AdminSeed{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("seed admin: %w", err)
		}
	}

	return a, nil
}

// sessionCache returns redis when configured and reachable. Without redis only
// the memory backend gets a cache, since a per-process cache cannot see logouts
// made by another replica of a shared store. nil means no cache.
func (a *App) sessionCache(ctx context.Context, cfg config.Config, now func() time.Time) cache.SessionCache {
	local := func() cache.SessionCache {
		if cfg.StoreBackend == config.BackendMemory {
			return cache.NewLocalSessionCache(now)
		}
		return nil
	}

	if cfg.RedisAddr == "" {
		return local()
	}

	rc := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rc.Ping(pctx); err != nil {
		slog.WarnContext(ctx, "redis unavailable, session cache disabled for shared stores", "addr", cfg.RedisAddr, "err", err)
		_ = rc.Close()
		return local()
	}

	a.closers = append(a.closers, func() { _ = rc.Close() })
	slog.InfoContext(ctx, "session cache on redis", "addr", cfg.RedisAddr)
	return cache.NewRedisSessionCache(rc.Raw(), cfg.SessionCacheTTL)
}

// Close releases pools and clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
