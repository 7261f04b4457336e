package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/metrics"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/position"
)

// uintParam parses a required uint64 query parameter
func uintParam(c echo.Context, name string) (uint64, bool) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SwapQuote prices a swap against the latest snapshot.
// Query: side=buy|sell, amount (raw input units), optional slippageBps.
func (h *Handlers) SwapQuote(c echo.Context) error {
	side, err := amm.ParseSide(strings.TrimSpace(c.QueryParam("side")))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid side", map[string]any{"side": "must be buy or sell"})
	}
	amount, ok := uintParam(c, "amount")
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be uint64"})
	}

	slippageBps := uint16(constants.DefaultSlippageBps)
	if v := strings.TrimSpace(c.QueryParam("slippageBps")); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil || n > constants.MaxSlippageBps {
			return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "max 5000"})
		}
		slippageBps = uint16(n)
	}

	snap, err := h.snapshot(c)
	if err != nil {
		return h.fail(c, "swap", err)
	}

	q, err := amm.QuoteSwap(snap.State, side, amount)
	if err != nil {
		return h.fail(c, "swap", err)
	}

	outDecimals := snap.QuoteDecimals
	if side == amm.BuyBase {
		outDecimals = snap.BaseDecimals
	}

	resp := SwapQuoteResponse{
		Pool:          snap.Pool,
		Side:          side.String(),
		InputAmount:   q.InputAmount,
		OutputAmount:  q.OutputAmount,
		OutputUI:      uiAmount(q.OutputAmount, outDecimals),
		FeePaid:       q.FeePaid,
		SlippagePct:   q.SlippagePct,
		SlippageBps:   slippageBps,
		MinimumOutput: amm.ApplySlippage(q.OutputAmount, slippageBps),
		Slot:          snap.Slot,
	}
	if after, err := snap.State.AfterSwap(side, q).SpotPrice(); err == nil {
		resp.PriceAfter = formatPrice(after)
	}

	metrics.QuotesTotal.WithLabelValues("swap").Inc()
	return c.JSON(http.StatusOK, resp)
}

// AddLiquidityQuote prices a single-sided deposit.
// Query: token=base|quote, amount (raw units of that token).
func (h *Handlers) AddLiquidityQuote(c echo.Context) error {
	token, err := amm.ParseToken(strings.TrimSpace(c.QueryParam("token")))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid token", map[string]any{"token": "must be base or quote"})
	}
	amount, ok := uintParam(c, "amount")
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be uint64"})
	}

	snap, err := h.snapshot(c)
	if err != nil {
		return h.fail(c, "add_liquidity", err)
	}

	q, err := amm.QuoteAddLiquidity(snap.State, token, amount, snap.LpSupply)
	if err != nil {
		return h.fail(c, "add_liquidity", err)
	}

	metrics.QuotesTotal.WithLabelValues("add_liquidity").Inc()
	return c.JSON(http.StatusOK, LiquidityQuoteResponse{
		Pool:           snap.Pool,
		Token:          token.String(),
		LiquidityQuote: q,
		Slot:           snap.Slot,
	})
}

// RemoveLiquidityQuote prices burning lpAmount LP tokens
func (h *Handlers) RemoveLiquidityQuote(c echo.Context) error {
	lpAmount, ok := uintParam(c, "lpAmount")
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid lpAmount", map[string]any{"lpAmount": "must be uint64"})
	}

	snap, err := h.snapshot(c)
	if err != nil {
		return h.fail(c, "remove_liquidity", err)
	}

	baseOut, quoteOut, err := amm.QuoteRemoveLiquidity(snap.State, lpAmount, snap.LpSupply)
	if err != nil {
		return h.fail(c, "remove_liquidity", err)
	}

	metrics.QuotesTotal.WithLabelValues("remove_liquidity").Inc()
	return c.JSON(http.StatusOK, RemoveLiquidityResponse{
		Pool:     snap.Pool,
		LpAmount: lpAmount,
		BaseOut:  baseOut,
		QuoteOut: quoteOut,
		Slot:     snap.Slot,
	})
}

// LiquidationPrice previews the position a borrow would open.
// Query: direction=short|long, borrowed, deposit.
func (h *Handlers) LiquidationPrice(c echo.Context) error {
	dir, err := position.ParseDirection(strings.TrimSpace(c.QueryParam("direction")))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid direction", map[string]any{"direction": "must be short or long"})
	}
	borrowed, ok := uintParam(c, "borrowed")
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid borrowed", map[string]any{"borrowed": "must be uint64"})
	}
	deposit, ok := uintParam(c, "deposit")
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid deposit", map[string]any{"deposit": "must be uint64"})
	}

	snap, err := h.snapshot(c)
	if err != nil {
		return h.fail(c, "liquidation_price", err)
	}

	pos, err := position.OpenPosition(dir, borrowed, deposit, snap.State, uint64(h.now().Unix()))
	if err != nil {
		return h.fail(c, "liquidation_price", err)
	}

	metrics.QuotesTotal.WithLabelValues("liquidation_price").Inc()
	return c.JSON(http.StatusOK, LiquidationPriceResponse{
		Pool:             snap.Pool,
		Direction:        dir.String(),
		BorrowedAmount:   pos.BorrowedAmount,
		DepositAmount:    pos.DepositAmount,
		EntryValue:       pos.EntryValue,
		EntryPrice:       formatPrice(pos.EntryPrice),
		LiquidationPrice: formatPrice(pos.LiquidationPrice),
		Slot:             snap.Slot,
	})
}

// PositionPnL values a position, given as its attribute list, at the latest snapshot
func (h *Handlers) PositionPnL(c echo.Context) error {
	var req PositionPnLRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	pos, err := position.ParseAttributes(req.Attributes)
	if err != nil {
		return h.fail(c, "position_pnl", err)
	}

	snap, err := h.snapshot(c)
	if err != nil {
		return h.fail(c, "position_pnl", err)
	}

	now := uint64(h.now().Unix())
	if req.Now != nil {
		now = *req.Now
	}

	pnl, err := position.ComputePositionPnL(pos, snap.State, now)
	if err != nil {
		return h.fail(c, "position_pnl", err)
	}

	metrics.QuotesTotal.WithLabelValues("position_pnl").Inc()
	return c.JSON(http.StatusOK, PositionPnLResponse{
		Pool:        snap.Pool,
		Position:    pos,
		PositionPnL: pnl,
		Now:         now,
		Slot:        snap.Slot,
	})
}
