package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/cache"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/index"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/maintenance"
)

const rebuildTimeout = 30 * time.Minute

// AdminHandler exposes the operational endpoints: full index rebuild,
// store maintenance and cache administration. All of them sit behind the
// admin JWT middleware.
type AdminHandler struct {
	indexer   *index.Indexer
	outcomes  index.OutcomePublisher
	cache     *cache.MultiLevel
	optimizer *maintenance.Optimizer
	log       *logger.Logger
}

func NewAdminHandler(ix *index.Indexer, outcomes index.OutcomePublisher, ml *cache.MultiLevel, opt *maintenance.Optimizer, log *logger.Logger) *AdminHandler {
	return &AdminHandler{indexer: ix, outcomes: outcomes, cache: ml, optimizer: opt, log: log}
}

// Rebuild kicks off a full reindex in the background and answers 202
// immediately. The outcome is published to the outcome queue when the run
// finishes, so callers poll the queue rather than the HTTP connection.
func (h *AdminHandler) Rebuild(c echo.Context) error {
	jobID := uuid.NewString()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
		defer cancel()
		rep, err := h.indexer.Rebuild(ctx, h.outcomes)
		if err != nil {
			h.log.Error("index rebuild failed", "job_id", jobID, "error", err)
			return
		}
		h.log.Info("index rebuild finished",
			"job_id", jobID, "indexed", rep.Indexed, "failed", rep.Failed, "duration", rep.Duration)
	}()
	return c.JSON(http.StatusAccepted, echo.Map{"job_id": jobID, "status": "started"})
}

// Optimize runs the store maintenance pass synchronously and reports what
// it cleaned up.
func (h *AdminHandler) Optimize(c echo.Context) error {
	rep, err := h.optimizer.OptimizeDatabase(c.Request().Context())
	if err != nil {
		h.log.Error("maintenance run failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "maintenance temporarily unavailable"})
	}
	return c.JSON(http.StatusOK, rep)
}

// CacheStats reports hit/miss counters per cache tier.
func (h *AdminHandler) CacheStats(c echo.Context) error {
	stats, err := h.cache.Statistics(c.Request().Context())
	if err != nil {
		h.log.Error("cache stats read failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "cache stats temporarily unavailable"})
	}
	return c.JSON(http.StatusOK, stats)
}

// CacheFlush clears every cache tier.
func (h *AdminHandler) CacheFlush(c echo.Context) error {
	if err := h.cache.Flush(c.Request().Context()); err != nil {
		h.log.Error("cache flush failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "cache flush failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "flushed"})
}
