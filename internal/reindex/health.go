package reindex

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves the worker's probes. ping may be nil.
func (w *Worker) HealthHandler(ping func(ctx context.Context) error) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	// liveness: process is up
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// readiness: loop running and store reachable
	r.GET("/readyz", func(c *gin.Context) {
		if !w.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()

			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "store"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/statsz", func(c *gin.Context) {
		c.JSON(http.StatusOK, w.stats.Snapshot())
	})

	return r
}
