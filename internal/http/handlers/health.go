package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	checks map[string]func(ctx context.Context) error
}

// NewHealthHandler takes named readiness checks (store, search, cache).
func NewHealthHandler(checks map[string]func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if err := check(cctx); err != nil {
			failed[name] = "unavailable"
		}
	}

	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": failed})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
