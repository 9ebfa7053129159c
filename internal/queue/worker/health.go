package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (w *Worker) HealthHandler() http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())

	// liveness: process is up
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"ok": true,
		})
	})

	// readiness: loops are running and the job store answers
	r.GET("/readyz", func(c *gin.Context) {
		w.readyMu.RLock()
		ready := w.ready
		w.readyMu.RUnlock()

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		if w.pinger != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()

			if err := w.pinger.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/statsz", func(c *gin.Context) {
		s := w.Stats()
		c.JSON(http.StatusOK, gin.H{
			"totals":        s.JobCounts,
			"byType":        s.ByType,
			"avgDurationMs": s.AverageDuration.Milliseconds(),
			"maxDurationMs": s.MaxDuration.Milliseconds(),
			"durationCount": s.DurationCount,
			"notifier":      w.notifierState(),
		})
	})

	return r
}

// notifierState exposes the circuit breaker state when the notifier has one.
func (w *Worker) notifierState() string {
	if s, ok := w.notifier.(interface{ State() string }); ok {
		return s.State()
	}
	return "n/a"
}
