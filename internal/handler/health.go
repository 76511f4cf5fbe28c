package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/health"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

// HealthHandler reports store connectivity, circuit state and runtime
// counters for probes and dashboards.
type HealthHandler struct {
	store *store.Manager
	stats *health.Stats
}

func NewHealthHandler(mgr *store.Manager, stats *health.Stats) *HealthHandler {
	return &HealthHandler{store: mgr, stats: stats}
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	connected := h.store.IsConnected(ctx)
	status := http.StatusOK
	state := "healthy"
	if !connected {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	return c.JSON(status, echo.Map{
		"status":  state,
		"store":   connected,
		"circuit": h.store.Executor().State(),
		"stats":   h.stats.Snapshot(),
	})
}
