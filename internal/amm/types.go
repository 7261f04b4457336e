package amm

import (
	"errors"
	"fmt"
)

// BpsDenominator is the basis point scale used by every fee field
const BpsDenominator = 10000

var (
	// ErrPoolUninitialized is returned when a pool has a zero reserve
	ErrPoolUninitialized = errors.New("pool uninitialized")
	// ErrInsufficientLiquidity is returned when there is no LP supply to be
	// proportional to, or a withdrawal exceeds it
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidAmount is returned for negative, non-finite or out of range inputs
	ErrInvalidAmount = errors.New("invalid amount")
)

// Side is the direction of a swap relative to the base token
type Side int

const (
	// SellBase swaps base in for quote out
	SellBase Side = iota
	// BuyBase swaps quote in for base out
	BuyBase
)

func (s Side) String() string {
	switch s {
	case SellBase:
		return "sell"
	case BuyBase:
		return "buy"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// ParseSide accepts "buy"/"sell" and the long names used by the UI
func ParseSide(s string) (Side, error) {
	switch s {
	case "sell", "sell_base", "SellBase":
		return SellBase, nil
	case "buy", "buy_base", "BuyBase":
		return BuyBase, nil
	}
	return 0, fmt.Errorf("unknown swap side %q", s)
}

// Token identifies one leg of the pool
type Token int

const (
	TokenBase Token = iota
	TokenQuote
)

func (t Token) String() string {
	if t == TokenQuote {
		return "quote"
	}
	return "base"
}

// ParseToken accepts "base" or "quote"
func ParseToken(s string) (Token, error) {
	switch s {
	case "base":
		return TokenBase, nil
	case "quote":
		return TokenQuote, nil
	}
	return 0, fmt.Errorf("unknown token %q", s)
}

// PoolState is an immutable snapshot of the economically relevant fields of
// an AMM pool account
type PoolState struct {
	BaseReserve         uint64 `json:"base_reserve"`
	QuoteReserve        uint64 `json:"quote_reserve"`
	FeeBps              uint16 `json:"fee_bps"`
	BorrowFeeBpsPerYear uint16 `json:"borrow_fee_bps_per_year"`
}

// SwapQuote is the result of pricing a single swap
type SwapQuote struct {
	InputAmount  uint64  `json:"input_amount"`
	OutputAmount uint64  `json:"output_amount"`
	FeePaid      uint64  `json:"fee_paid"`
	SlippagePct  float64 `json:"slippage_pct"` // 0.01 = 1% worse than the no-slippage price
}

// LiquidityQuote is the result of pricing a single-sided liquidity deposit
type LiquidityQuote struct {
	TokenInAmount     uint64 `json:"token_in_amount"`
	LpMinted          uint64 `json:"lp_minted"`
	PairedTokenAmount uint64 `json:"paired_token_amount"`
}

// Validate reports whether the pool can be quoted against
func (p PoolState) Validate() error {
	if p.BaseReserve == 0 || p.QuoteReserve == 0 {
		return ErrPoolUninitialized
	}
	if p.FeeBps > BpsDenominator {
		return fmt.Errorf("%w: fee %d bps exceeds %d", ErrInvalidAmount, p.FeeBps, BpsDenominator)
	}
	return nil
}

// SpotPrice returns the no-slippage price in quote units per base unit
func (p PoolState) SpotPrice() (float64, error) {
	if p.BaseReserve == 0 || p.QuoteReserve == 0 {
		return 0, ErrPoolUninitialized
	}
	return float64(p.QuoteReserve) / float64(p.BaseReserve), nil
}

// GetReserves returns reserves ordered for a swap direction
func (p PoolState) GetReserves(side Side) (reserveIn, reserveOut uint64) {
	if side == SellBase {
		return p.BaseReserve, p.QuoteReserve
	}
	return p.QuoteReserve, p.BaseReserve
}

// AfterSwap returns the snapshot the pool would hold once q executes.
// The whole input, fee included, stays in the pool.
func (p PoolState) AfterSwap(side Side, q SwapQuote) PoolState {
	next := p
	if side == SellBase {
		next.BaseReserve += q.InputAmount
		next.QuoteReserve -= q.OutputAmount
	} else {
		next.QuoteReserve += q.InputAmount
		next.BaseReserve -= q.OutputAmount
	}
	return next
}
