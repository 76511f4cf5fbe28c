package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/availability"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/config"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/health"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

func newAvailabilityHandler(t *testing.T) (*AvailabilityHandler, *echo.Echo) {
	t.Helper()
	mr := miniredis.RunT(t)
	scfg := config.StoreConfig{
		Addr:          mr.Addr(),
		DialTimeout:   time.Second,
		InitTimeout:   2 * time.Second,
		RetryAttempts: 1,
		RetryBase:     time.Millisecond,
		BreakAfter:    100,
		BreakCooldown: time.Minute,
	}
	exec := store.NewExecutor(scfg.RetryAttempts, scfg.RetryBase, scfg.BreakAfter, scfg.BreakCooldown, logger.Discard())
	mgr := store.NewManager(scfg, exec, logger.Discard())
	t.Cleanup(func() { _ = mgr.Close() })

	proc := availability.NewProcessor(mgr, config.CacheConfig{PriceTTL: time.Hour}, nil, health.NewStats(), logger.Discard())

	ctx := context.Background()
	client, err := mgr.Keyspace(ctx)
	require.NoError(t, err)
	unit := model.UnitIndexDocument{
		ID: "u1", PropertyID: "p1", Name: "room", TypeID: "room",
		MaxCapacity: 2, BasePrice: 100, Currency: "USD", IsActive: true, IsAvailable: true,
	}
	require.NoError(t, client.HSet(ctx, store.UnitKey("u1"), unit.ToHash()).Err())
	require.NoError(t, client.SAdd(ctx, store.PropertyUnitsKey("p1"), "u1").Err())
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, proc.UpdateUnitAvailability(ctx, "u1", []model.AvailabilityRange{
		{Start: start, End: start.AddDate(0, 1, 0), Bookable: true},
	}))

	e := echo.New()
	e.Validator = NewRequestValidator()
	return NewAvailabilityHandler(proc, logger.Discard()), e
}

func TestCheckEndpoint(t *testing.T) {
	h, e := newAvailabilityHandler(t)

	body := `{"property_id":"p1","check_in":"2026-09-10","check_out":"2026-09-13","guests":2}`
	req := httptest.NewRequest(http.MethodPost, "/v1/availability/check", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Check(e.NewContext(req, rec)))

	require.Equal(t, http.StatusOK, rec.Code)
	var res model.PropertyAvailabilityResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.IsAvailable)
	assert.Equal(t, 3, res.Nights)
}

func TestCheckEndpointBadDateLayout(t *testing.T) {
	h, e := newAvailabilityHandler(t)

	body := `{"property_id":"p1","check_in":"10/09/2026","check_out":"2026-09-13"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/availability/check", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Check(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPriceEndpoint(t *testing.T) {
	h, e := newAvailabilityHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/units/u1/price?check_in=2026-09-10&check_out=2026-09-12", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("u1")
	require.NoError(t, h.Price(c))

	require.Equal(t, http.StatusOK, rec.Code)
	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.InDelta(t, 200.0, res["total_price"].(float64), 0.001)
	assert.Equal(t, "USD", res["currency"])
}

func TestBookEndpointGeneratesBookingID(t *testing.T) {
	h, e := newAvailabilityHandler(t)

	body := `{"check_in":"2026-09-10","check_out":"2026-09-13"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/units/u1/book", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("u1")
	require.NoError(t, h.Book(c))

	require.Equal(t, http.StatusCreated, rec.Code)
	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res["booking_id"])
	// Same casing as the stored booking record.
	assert.Equal(t, "confirmed", res["status"])

	// The same stay cannot be booked twice.
	req = httptest.NewRequest(http.MethodPost, "/v1/units/u1/book", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("u1")
	require.NoError(t, h.Book(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
