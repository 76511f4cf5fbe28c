package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/search"
)

// SearchHandler serves the public property search endpoint.
type SearchHandler struct {
	engine *search.Engine
	log    *logger.Logger
}

func NewSearchHandler(engine *search.Engine, log *logger.Logger) *SearchHandler {
	return &SearchHandler{engine: engine, log: log}
}

// Search binds a PropertySearchRequest, validates the structurally-typed
// fields and delegates to the engine. Loosely-typed filter fields (prices,
// rating, dates) are normalized inside the engine, so a malformed value
// widens the search instead of failing it.
func (h *SearchHandler) Search(c echo.Context) error {
	var req model.PropertySearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.engine.Search(c.Request().Context(), req)
	if err != nil {
		h.log.Error("search failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "search temporarily unavailable"})
	}
	return c.JSON(http.StatusOK, res)
}
