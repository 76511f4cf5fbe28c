package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/config"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/handler"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/middleware"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Search       *handler.SearchHandler
	Availability *handler.AvailabilityHandler
	Admin        *handler.AdminHandler
	Health       *handler.HealthHandler
}

// New builds the Echo instance: recovery and request logging on everything,
// a Redis token bucket on the public group and admin JWT on the operational
// group.
func New(cfg config.Config, mgr *store.Manager, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	e.GET("/healthz", h.Health.Health)

	v1 := e.Group("/v1")

	public := v1.Group("", middleware.NewTokenBucket(cfg.RateLimit, mgr))
	public.POST("/search", h.Search.Search)
	public.POST("/availability/check", h.Availability.Check)
	public.POST("/availability/batch", h.Availability.CheckBatch)
	public.GET("/units/:id/price", h.Availability.Price)
	public.POST("/units/:id/book", h.Availability.Book)

	admin := v1.Group("/admin", middleware.AdminAuth(cfg.AdminJWTSecret))
	admin.POST("/index/rebuild", h.Admin.Rebuild)
	admin.POST("/maintenance/optimize", h.Admin.Optimize)
	admin.GET("/cache/stats", h.Admin.CacheStats)
	admin.DELETE("/cache", h.Admin.CacheFlush)

	return e
}
