package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quorahub"

var (
	latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	jobBuckets     = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
)

// Prom holds every collector the api and worker export. Labels stay low
// cardinality: route templates, logical op names, reason codes.
type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	JobDuration  *prometheus.HistogramVec
	JobResults   *prometheus.CounterVec
	JobsInFlight prometheus.Gauge

	AuthOutcomes *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	f := promauto.With(reg)

	return &Prom{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route template and status.",
		}, []string{"method", "route", "status"}),
		RequestsDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP latency by method, route template and status.", Buckets: latencyBuckets,
		}, []string{"method", "route", "status"}),
		InFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "in_flight_requests",
			Help: "HTTP requests currently being served.",
		}, []string{"method", "route"}),

		DbQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "db", Name: "query_duration_seconds",
			Help: "Store call latency by logical op and status (ok, not_found, error).", Buckets: latencyBuckets,
		}, []string{"op", "status"}),
		DbErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "db", Name: "errors_total",
			Help: "Store errors by logical op and class.",
		}, []string{"op", "class"}),

		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "duration_seconds",
			Help: "Notification job run time by type and result.", Buckets: jobBuckets,
		}, []string{"job_type", "result"}),
		JobResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "results_total",
			Help: "Notification job outcomes by type and result (done, retry, failed).",
		}, []string{"job_type", "result"}),
		JobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "in_flight",
			Help: "Jobs executing in this process.",
		}),

		AuthOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "outcomes_total",
			Help: "Auth operations by op and outcome (ok or reason code).",
		}, []string{"op", "outcome"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session_cache", Name: "lookups_total",
			Help: "Session cache lookups by result: hit, miss, error or bypass.",
		}, []string{"result"}),
	}
}

// ObserveAuth counts one auth operation outcome.
func (p *Prom) ObserveAuth(op, outcome string) {
	p.AuthOutcomes.WithLabelValues(op, outcome).Inc()
}

func (p *Prom) ObserveCacheLookup(result string) {
	p.CacheLookups.WithLabelValues(result).Inc()
}

// GinHandleMiddleware records request metrics keyed by route template, so
// /userprofile/:userId is one series no matter how many users exist.
func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		inFlight := p.InFlight.WithLabelValues(method, route)
		inFlight.Inc()
		start := time.Now()

		c.Next()

		inFlight.Dec()
		status := strconv.Itoa(c.Writer.Status())
		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}
