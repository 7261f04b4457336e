package server

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/metrics"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(metrics.Middleware())
	e.Use(SetNoCacheHeaders) // Prevent caching of API responses

	// Prometheus scrape endpoint, outside API key auth
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	v1 := e.Group("/v1")

	// Optional API key authentication
	if cfg.APIKey != "" {
		v1.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	// websocket feed; registered before the JSON content type middleware
	v1.GET("/pools/stream", h.SnapshotFeed)

	api := v1.Group("", SetJSONContentType)
	api.GET("/health", h.Health)
	api.GET("/pools", h.ListPools)
	api.GET("/pools/:name", h.GetPool)

	quoteRate := cfg.QuoteRateLimit
	if quoteRate <= 0 {
		quoteRate = 20
	}
	// fractional rates still admit at least one request
	burst := max(1, int(math.Ceil(quoteRate*2)))

	// Quote endpoints with per-client rate limiting
	quotes := api.Group("/pools/:name")
	quotes.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(quoteRate),
		Burst:     burst,
		ExpiresIn: 2 * time.Minute,
	})))
	quotes.GET("/quote/swap", h.SwapQuote)
	quotes.GET("/quote/add-liquidity", h.AddLiquidityQuote)
	quotes.GET("/quote/remove-liquidity", h.RemoveLiquidityQuote)
	quotes.GET("/liquidation-price", h.LiquidationPrice)
	quotes.POST("/positions/pnl", h.PositionPnL)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
