package http

import (
	"log/slog"

	"github.com/geocoder89/quorahub/internal/auth"
	"github.com/geocoder89/quorahub/internal/config"
	"github.com/geocoder89/quorahub/internal/http/handlers"
	"github.com/geocoder89/quorahub/internal/http/middlewares"
	"github.com/geocoder89/quorahub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps are the services the router mounts. Prom and Gatherer are optional.
type Deps struct {
	Authenticator handlers.SessionService
	Accounts      handlers.AccountService
	Guard         *auth.Guard
	Users         handlers.UserLookup
	Questions     handlers.QuestionsRepo
	Answers       handlers.AnswersRepo
	Jobs          handlers.AdminJobsRepo
	Ping          func() error

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(log *slog.Logger, cfg config.Config, d Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware("quorahub"))
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	if cfg.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	}
	r.Use(middlewares.RequestLogger(log))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// health
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	authMW := middlewares.NewAuthMiddleware(d.Guard)
	requireAuth := authMW.RequireAuth()
	requireJSON := middlewares.RequireJSON()

	signinLimiter := middlewares.NewRateLimiter(cfg.SigninRatePerMin, cfg.SigninBurst)
	limitByIP := signinLimiter.RateLimiterMiddleware(middlewares.KeyByIP)

	// runs after requireAuth so each account gets its own bucket
	writeLimiter := middlewares.NewRateLimiter(cfg.WriteRatePerMin, cfg.WriteBurst)
	limitByUser := writeLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP)

	usersHandler := handlers.NewUsersHandler(d.Accounts, d.Authenticator)
	questionsHandler := handlers.NewQuestionsHandler(d.Questions, d.Users, d.Guard)
	answersHandler := handlers.NewAnswersHandler(d.Answers, d.Questions, d.Guard)

	// account routes
	r.POST("/user/signup", limitByIP, requireJSON, usersHandler.Signup)
	r.POST("/user/signin", limitByIP, usersHandler.Signin)
	r.POST("/user/signout", usersHandler.Signout)
	r.GET("/userprofile/:userId", requireAuth, usersHandler.Profile)

	// question routes
	r.POST("/question/create", requireAuth, limitByUser, requireJSON, questionsHandler.Create)
	r.GET("/question/all", requireAuth, questionsHandler.ListAll)
	r.GET("/question/all/:userId", requireAuth, questionsHandler.ListByUser)
	r.PUT("/question/edit/:questionId", requireAuth, requireJSON, questionsHandler.Edit)
	r.DELETE("/question/delete/:questionId", requireAuth, questionsHandler.Delete)

	// answer routes
	r.POST("/question/:questionId/answer/create", requireAuth, limitByUser, requireJSON, answersHandler.Create)
	r.GET("/answer/all/:questionId", requireAuth, answersHandler.ListByQuestion)
	r.PUT("/answer/edit/:answerId", requireAuth, requireJSON, answersHandler.Edit)
	r.DELETE("/answer/delete/:answerId", requireAuth, answersHandler.Delete)

	// admin routes; account deletion is decided by the policy table in Accounts.Delete
	admin := r.Group("/admin", requireAuth)
	admin.DELETE("/user/:userId", usersHandler.Delete)

	if d.Jobs != nil {
		jobsHandler := handlers.NewAdminJobsHandler(d.Jobs)
		jobs := admin.Group("/jobs", authMW.RequireAdmin())
		jobs.GET("", jobsHandler.List)
		jobs.GET("/:id", jobsHandler.GetByID)
		jobs.POST("/:id/retry", jobsHandler.Retry)
	}

	return r
}
