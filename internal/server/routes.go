package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/positions", h.Positions)
	v1.GET("/trades/recent", h.RecentTrades)
	v1.GET("/quote", h.Quote)

	// Signal ingestion is rate limited: anyone able to reach this endpoint
	// can otherwise spam high-severity reports and force an exit.
	sig := v1.Group("/signals")
	sig.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.5), // 1 request every 2 seconds
		Burst:     3,
		ExpiresIn: 2 * time.Minute,
	})))
	sig.POST("", h.SignalPush)

	deny := v1.Group("/denylist")
	deny.GET("", h.DenyList)
	deny.POST("", h.DenyUpsert)
	deny.GET("/:address", h.DenyGet)
	deny.DELETE("/:address", h.DenyDelete)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
