package position

import (
	"errors"
	"fmt"
)

// SecondsPerYear is the accrual year used for borrow fees (365 days)
const SecondsPerYear = 365 * 24 * 60 * 60

// ErrMalformedAttributes is wrapped by every attribute parsing failure
var ErrMalformedAttributes = errors.New("malformed position attributes")

// Direction of a leveraged position
type Direction int

const (
	// Short borrows base, sells it for quote and posts a quote deposit
	Short Direction = iota
	// Long borrows quote, buys base with it and posts a base deposit
	Long
)

func (d Direction) String() string {
	switch d {
	case Short:
		return "short"
	case Long:
		return "long"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts "short" or "long"
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "short":
		return Short, nil
	case "long":
		return Long, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// LeveragedPosition mirrors an open short or long.
//
// Amounts are raw token units. BorrowedAmount is in the borrowed token (base
// for a short, quote for a long); DepositAmount and EntryValue are in the
// collateral token (quote for a short, base for a long). Prices are quote
// units per base unit.
type LeveragedPosition struct {
	Direction      Direction `json:"direction"`
	BorrowedAmount uint64    `json:"borrowed_amount"`
	DepositAmount  uint64    `json:"deposit_amount"`
	EntryValue     uint64    `json:"entry_value"`
	EntryPrice     float64   `json:"entry_price"`
	OpenTimestamp  uint64    `json:"open_timestamp"`
	// LiquidationPrice is fixed when the position opens and is not
	// re-derived as reserves move.
	LiquidationPrice float64 `json:"liquidation_price"`
}

// PositionPnL is the on-demand valuation of a position
type PositionPnL struct {
	// BorrowFeeAccrued is in borrowed token units
	BorrowFeeAccrued uint64 `json:"borrow_fee_accrued"`
	// BorrowFeeValue is BorrowFeeAccrued converted to collateral units at spot
	BorrowFeeValue float64 `json:"borrow_fee_value"`
	// ExitValue is the collateral-unit value of the borrowed principal
	ExitValue       uint64  `json:"exit_value"`
	Profit          float64 `json:"profit"`
	ShouldLiquidate bool    `json:"should_liquidate"`
}

// Attribute is one key/value pair of the position asset's metadata
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AttributeError describes why an attribute set was rejected
type AttributeError struct {
	Key    string
	Reason string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMalformedAttributes, e.Key, e.Reason)
}

func (e *AttributeError) Unwrap() error {
	return ErrMalformedAttributes
}
