package amm

import (
	"fmt"
	"math"
	"math/big"
)

// QuoteSwap prices a constant-product swap with the fee taken from the input.
// Fees round up and outputs round down, matching the on-chain program.
func QuoteSwap(pool PoolState, side Side, rawInputAmount uint64) (SwapQuote, error) {
	if err := pool.Validate(); err != nil {
		return SwapQuote{}, err
	}
	if side != SellBase && side != BuyBase {
		return SwapQuote{}, fmt.Errorf("%w: unknown side %d", ErrInvalidAmount, side)
	}
	if rawInputAmount == 0 {
		return SwapQuote{}, nil
	}

	fee := mulDivCeil(rawInputAmount, uint64(pool.FeeBps), BpsDenominator)
	netInput := rawInputAmount - fee

	reserveIn, reserveOut := pool.GetReserves(side)

	// out = netInput * reserveOut / (netInput + reserveIn)
	numerator := new(big.Int).Mul(new(big.Int).SetUint64(netInput), new(big.Int).SetUint64(reserveOut))
	denominator := new(big.Int).Add(new(big.Int).SetUint64(netInput), new(big.Int).SetUint64(reserveIn))
	amountOut := new(big.Int).Quo(numerator, denominator)
	if !amountOut.IsUint64() {
		return SwapQuote{}, fmt.Errorf("%w: output amount overflow", ErrInvalidAmount)
	}
	out := amountOut.Uint64()

	return SwapQuote{
		InputAmount:  rawInputAmount,
		OutputAmount: out,
		FeePaid:      fee,
		SlippagePct:  slippage(netInput, out, reserveIn, reserveOut),
	}, nil
}

// slippage compares the actual output against the output at the
// pre-trade price. An output that floors to zero counts as total loss.
func slippage(netInput, out, reserveIn, reserveOut uint64) float64 {
	if netInput == 0 {
		return 0
	}
	if out == 0 {
		return 1
	}
	noSlipOutput := float64(netInput) * float64(reserveOut) / float64(reserveIn)
	return math.Max(0, noSlipOutput/float64(out)-1)
}

// QuoteAddLiquidity prices a single-sided deposit of rawAmount of token.
// The paired amount and LP minted are proportional to the deposit's share
// of the existing reserve.
func QuoteAddLiquidity(pool PoolState, token Token, rawAmount, lpSupply uint64) (LiquidityQuote, error) {
	if err := pool.Validate(); err != nil {
		return LiquidityQuote{}, err
	}
	if lpSupply == 0 {
		return LiquidityQuote{}, fmt.Errorf("%w: lp supply is zero", ErrInsufficientLiquidity)
	}

	thisReserve, otherReserve := pool.BaseReserve, pool.QuoteReserve
	if token == TokenQuote {
		thisReserve, otherReserve = pool.QuoteReserve, pool.BaseReserve
	}

	paired, ok := mulDiv(rawAmount, otherReserve, thisReserve)
	if !ok {
		return LiquidityQuote{}, fmt.Errorf("%w: paired amount overflow", ErrInvalidAmount)
	}
	minted, ok := mulDiv(rawAmount, lpSupply, thisReserve)
	if !ok {
		return LiquidityQuote{}, fmt.Errorf("%w: lp amount overflow", ErrInvalidAmount)
	}

	return LiquidityQuote{
		TokenInAmount:     rawAmount,
		LpMinted:          minted,
		PairedTokenAmount: paired,
	}, nil
}

// QuoteRemoveLiquidity returns the reserves redeemed by burning lpAmount
func QuoteRemoveLiquidity(pool PoolState, lpAmount, lpSupply uint64) (baseOut, quoteOut uint64, err error) {
	if err := pool.Validate(); err != nil {
		return 0, 0, err
	}
	if lpSupply == 0 {
		return 0, 0, fmt.Errorf("%w: lp supply is zero", ErrInsufficientLiquidity)
	}
	if lpAmount > lpSupply {
		return 0, 0, fmt.Errorf("%w: burning %d of %d lp", ErrInsufficientLiquidity, lpAmount, lpSupply)
	}

	// lpAmount <= lpSupply keeps both results within their reserves
	baseOut, _ = mulDiv(lpAmount, pool.BaseReserve, lpSupply)
	quoteOut, _ = mulDiv(lpAmount, pool.QuoteReserve, lpSupply)
	return baseOut, quoteOut, nil
}

// ApplySlippage calculates minimum output with slippage tolerance
// slippageBps: basis points (e.g., 100 = 1%, 50 = 0.5%)
func ApplySlippage(amountOut uint64, slippageBps uint16) uint64 {
	if slippageBps >= BpsDenominator {
		return 0
	}
	out, _ := mulDiv(amountOut, BpsDenominator-uint64(slippageBps), BpsDenominator)
	return out
}

// ToRawAmount scales a human-readable amount to smallest units
func ToRawAmount(amount float64, decimals uint8) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	raw := math.Round(amount * math.Pow10(int(decimals)))
	if raw >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %v overflows u64 at %d decimals", ErrInvalidAmount, amount, decimals)
	}
	return uint64(raw), nil
}

// FromRawAmount is the inverse of ToRawAmount, for display only
func FromRawAmount(raw uint64, decimals uint8) float64 {
	return float64(raw) / math.Pow10(int(decimals))
}

// mulDiv returns floor(a*b/c) and whether it fits in a uint64
func mulDiv(a, b, c uint64) (uint64, bool) {
	r := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	r.Quo(r, new(big.Int).SetUint64(c))
	if !r.IsUint64() {
		return 0, false
	}
	return r.Uint64(), true
}

// mulDivCeil returns ceil(a*b/c); callers guarantee b <= c
func mulDivCeil(a, b, c uint64) uint64 {
	num := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	cc := new(big.Int).SetUint64(c)
	q, m := new(big.Int).QuoRem(num, cc, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Uint64()
}
