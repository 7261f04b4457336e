package server

import (
	"time"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/position"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK    bool `json:"ok"`
	Cache bool `json:"cache"` // snapshot cache reachable
}

// PoolResponse is a cached snapshot with derived prices
type PoolResponse struct {
	Pool          string        `json:"pool"`
	Address       string        `json:"address"`
	BaseMint      string        `json:"base_mint"`
	QuoteMint     string        `json:"quote_mint"`
	BaseSymbol    string        `json:"base_symbol"`
	QuoteSymbol   string        `json:"quote_symbol"`
	State         amm.PoolState `json:"state"`
	LpSupply      uint64        `json:"lp_supply"`
	SpotPrice     string        `json:"spot_price,omitempty"`    // raw quote units per raw base unit
	SpotPriceUI   string        `json:"spot_price_ui,omitempty"` // decimals applied
	LastPrice     float32       `json:"last_price"`
	Slot          uint64        `json:"slot"`
	Timestamp     time.Time     `json:"timestamp"`
	BaseDecimals  uint8         `json:"base_decimals"`
	QuoteDecimals uint8         `json:"quote_decimals"`
}

// SwapQuoteResponse is a swap quote against the latest snapshot
type SwapQuoteResponse struct {
	Pool          string  `json:"pool"`
	Side          string  `json:"side"`
	InputAmount   uint64  `json:"input_amount"`
	OutputAmount  uint64  `json:"output_amount"`
	OutputUI      string  `json:"output_ui"`
	FeePaid       uint64  `json:"fee_paid"`
	SlippagePct   float64 `json:"slippage_pct"`
	SlippageBps   uint16  `json:"slippage_bps"`
	MinimumOutput uint64  `json:"minimum_output"`
	PriceAfter    string  `json:"price_after,omitempty"`
	Slot          uint64  `json:"slot"`
}

// LiquidityQuoteResponse quotes a single-sided liquidity add
type LiquidityQuoteResponse struct {
	Pool  string `json:"pool"`
	Token string `json:"token"`
	amm.LiquidityQuote
	Slot uint64 `json:"slot"`
}

// RemoveLiquidityResponse quotes burning LP tokens
type RemoveLiquidityResponse struct {
	Pool     string `json:"pool"`
	LpAmount uint64 `json:"lp_amount"`
	BaseOut  uint64 `json:"base_out"`
	QuoteOut uint64 `json:"quote_out"`
	Slot     uint64 `json:"slot"`
}

// LiquidationPriceResponse previews a position before it is opened
type LiquidationPriceResponse struct {
	Pool             string `json:"pool"`
	Direction        string `json:"direction"`
	BorrowedAmount   uint64 `json:"borrowed_amount"`
	DepositAmount    uint64 `json:"deposit_amount"`
	EntryValue       uint64 `json:"entry_value"`
	EntryPrice       string `json:"entry_price"`
	LiquidationPrice string `json:"liquidation_price"`
	Slot             uint64 `json:"slot"`
}

// PositionPnLRequest carries a position's attribute list
type PositionPnLRequest struct {
	Attributes []position.Attribute `json:"attributes"`
	Now        *uint64              `json:"now,omitempty"` // unix seconds; defaults to server time
}

// PositionPnLResponse values a position against the latest snapshot
type PositionPnLResponse struct {
	Pool     string                     `json:"pool"`
	Position position.LeveragedPosition `json:"position"`
	position.PositionPnL
	Now  uint64 `json:"now"`
	Slot uint64 `json:"slot"`
}
