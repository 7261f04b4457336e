package server

import (
	"context"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/metrics"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/models"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/storage"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Cache   storage.SnapshotCache // Redis-backed latest pool snapshots
	DevMode bool                  // Enable detailed error responses in development
	Logger  *logrus.Logger        // Structured logger
	Now     func() time.Time      // clock for position valuation; defaults to time.Now
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// fail maps a domain error to its status and counts it against the quote kind
func (h *Handlers) fail(c echo.Context, kind string, err error) error {
	code, msg, reason := errorStatus(err)
	metrics.QuoteErrors.WithLabelValues(kind, reason).Inc()
	if code >= http.StatusInternalServerError {
		h.logger().WithError(err).WithField("kind", kind).Error("request failed")
	}
	return h.err(c, code, msg, map[string]any{"err": err.Error()})
}

func (h *Handlers) logger() *logrus.Logger {
	if h.Logger == nil {
		h.Logger = logrus.New()
	}
	return h.Logger
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health reports liveness and whether the snapshot cache answers
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	cacheOK := h.Cache.Ping(ctx) == nil
	return c.JSON(http.StatusOK, HealthResponse{OK: true, Cache: cacheOK})
}

// ListPools returns the latest snapshot of every pool
func (h *Handlers) ListPools(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	snaps, err := h.Cache.ListSnapshots(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list pools", nil)
	}

	items := make([]PoolResponse, 0, len(snaps))
	for _, s := range snaps {
		items = append(items, poolResponse(s))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// GetPool returns one pool's latest snapshot
func (h *Handlers) GetPool(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil {
		return h.fail(c, "pool", err)
	}
	return c.JSON(http.StatusOK, poolResponse(snap))
}

// snapshot loads the snapshot named by the :name path parameter
func (h *Handlers) snapshot(c echo.Context) (*models.PoolSnapshot, error) {
	name := strings.TrimSpace(c.Param("name"))

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	return h.Cache.GetSnapshot(ctx, name)
}

func poolResponse(s *models.PoolSnapshot) PoolResponse {
	resp := PoolResponse{
		Pool:          s.Pool,
		Address:       s.Address,
		BaseMint:      s.BaseMint,
		QuoteMint:     s.QuoteMint,
		BaseSymbol:    constants.SymbolForMint(s.BaseMint),
		QuoteSymbol:   constants.SymbolForMint(s.QuoteMint),
		State:         s.State,
		LpSupply:      s.LpSupply,
		LastPrice:     s.LastPrice,
		Slot:          s.Slot,
		Timestamp:     s.Timestamp,
		BaseDecimals:  s.BaseDecimals,
		QuoteDecimals: s.QuoteDecimals,
	}
	// an uninitialized pool has no price; the fields are omitted
	if spot, err := s.State.SpotPrice(); err == nil {
		resp.SpotPrice = formatPrice(spot)
		resp.SpotPriceUI = decimal.NewFromFloat(spot).Shift(int32(s.BaseDecimals) - int32(s.QuoteDecimals)).Round(12).String()
	}
	return resp
}

func formatPrice(f float64) string {
	return decimal.NewFromFloat(f).Round(12).String()
}

// uiAmount renders a raw token amount with its decimals applied
func uiAmount(raw uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals)).String()
}
