package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	log   *logger.Logger
	pings map[string]Pinger
}

func NewHealthHandler(log *logger.Logger, pings map[string]Pinger) *HealthHandler {
	return &HealthHandler{log: log.With("handler", "HealthHandler"), pings: pings}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for name, ping := range h.pings {
		if ping == nil {
			continue
		}
		if err := ping(ctx); err != nil {
			h.log.Warn("health dependency down", "dependency", name, "error", err)
			c.String(http.StatusServiceUnavailable, name+" unavailable")
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
