package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/availability"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
)

const dateLayout = "2006-01-02"

// AvailabilityHandler serves availability checks, price quotes and booking
// commits.
type AvailabilityHandler struct {
	proc *availability.Processor
	log  *logger.Logger
}

func NewAvailabilityHandler(proc *availability.Processor, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{proc: proc, log: log}
}

// checkPayload carries the stay dates as strings so the handler owns the
// date-layout parsing and can answer 400 with a precise message.
type checkPayload struct {
	PropertyID string `json:"property_id" validate:"required"`
	CheckIn    string `json:"check_in" validate:"required"`
	CheckOut   string `json:"check_out" validate:"required"`
	Guests     int    `json:"guests" validate:"gte=0"`
	UnitTypeID string `json:"unit_type_id"`
}

func (p checkPayload) toRequest() (availability.CheckRequest, error) {
	in, err := time.Parse(dateLayout, p.CheckIn)
	if err != nil {
		return availability.CheckRequest{}, errors.New("check_in must use the YYYY-MM-DD layout")
	}
	out, err := time.Parse(dateLayout, p.CheckOut)
	if err != nil {
		return availability.CheckRequest{}, errors.New("check_out must use the YYYY-MM-DD layout")
	}
	return availability.CheckRequest{
		PropertyID: p.PropertyID,
		CheckIn:    in,
		CheckOut:   out,
		Guests:     p.Guests,
		UnitTypeID: p.UnitTypeID,
	}, nil
}

// Check answers whether any unit of a property can host the requested stay.
func (h *AvailabilityHandler) Check(c echo.Context) error {
	var payload checkPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}
	req, err := payload.toRequest()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	res, err := h.proc.CheckProperty(c.Request().Context(), req)
	if err != nil {
		h.log.Error("availability check failed", "property_id", req.PropertyID, "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "availability temporarily unavailable"})
	}
	return c.JSON(http.StatusOK, res)
}

type batchPayload struct {
	Requests []checkPayload `json:"requests" validate:"required,min=1,max=100,dive"`
}

// CheckBatch answers many property availability questions in one call.
func (h *AvailabilityHandler) CheckBatch(c echo.Context) error {
	var payload batchPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}

	reqs := make([]availability.CheckRequest, 0, len(payload.Requests))
	for _, p := range payload.Requests {
		req, err := p.toRequest()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		reqs = append(reqs, req)
	}

	res, err := h.proc.CheckBatch(c.Request().Context(), reqs)
	if err != nil {
		h.log.Error("batch availability check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "availability temporarily unavailable"})
	}
	return c.JSON(http.StatusOK, res)
}

// Price quotes the total stay price for one unit. Dates arrive as
// check_in/check_out query parameters.
func (h *AvailabilityHandler) Price(c echo.Context) error {
	unitID := c.Param("id")
	in, err := time.Parse(dateLayout, c.QueryParam("check_in"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must use the YYYY-MM-DD layout"})
	}
	out, err := time.Parse(dateLayout, c.QueryParam("check_out"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must use the YYYY-MM-DD layout"})
	}
	if model.Nights(in, out) <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check-out must be after check-in"})
	}

	total, currency, err := h.proc.CalculateUnitPrice(c.Request().Context(), unitID, in, out)
	if err != nil {
		if errors.Is(err, availability.ErrNoPricing) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no pricing for unit"})
		}
		h.log.Error("price quote failed", "unit_id", unitID, "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "pricing temporarily unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"unit_id":     unitID,
		"check_in":    in.Format(dateLayout),
		"check_out":   out.Format(dateLayout),
		"nights":      model.Nights(in, out),
		"total_price": total,
		"currency":    currency,
	})
}

type bookPayload struct {
	CheckIn   string `json:"check_in" validate:"required"`
	CheckOut  string `json:"check_out" validate:"required"`
	BookingID string `json:"booking_id"`
}

// Book commits a stay on a unit. A missing booking_id gets a generated one;
// a 409 means another booking won the overlapping window.
func (h *AvailabilityHandler) Book(c echo.Context) error {
	unitID := c.Param("id")
	var payload bookPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&payload); err != nil {
		return err
	}
	in, err := time.Parse(dateLayout, payload.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must use the YYYY-MM-DD layout"})
	}
	out, err := time.Parse(dateLayout, payload.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must use the YYYY-MM-DD layout"})
	}
	if model.Nights(in, out) <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check-out must be after check-in"})
	}
	bookingID := payload.BookingID
	if bookingID == "" {
		bookingID = uuid.NewString()
	}

	ok, err := h.proc.BookUnit(c.Request().Context(), unitID, in, out, bookingID)
	if err != nil {
		h.log.Error("booking commit failed", "unit_id", unitID, "booking_id", bookingID, "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "booking temporarily unavailable"})
	}
	if !ok {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      "unit no longer available for the requested stay",
			"booking_id": bookingID,
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id": bookingID,
		"unit_id":    unitID,
		"check_in":   in.Format(dateLayout),
		"check_out":  out.Format(dateLayout),
		"status":     "confirmed",
	})
}
