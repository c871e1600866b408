package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// NewServer wires the middleware stack and routes around h.
// rateLimit is requests per second per client; 0 disables limiting.
func NewServer(h *Handler, rateLimit float64) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = JSONSerializer{}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	if rateLimit > 0 {
		store := middleware.NewRateLimiterMemoryStore(rate.Limit(rateLimit))
		e.Use(middleware.RateLimiter(store))
	}

	h.RegisterRoutes(e)
	return e
}
