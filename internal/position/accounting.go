package position

import (
	"fmt"
	"math/big"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/amm"
)

// borrowedSide is the swap that turns the borrowed token into collateral
func borrowedSide(d Direction) amm.Side {
	if d == Long {
		return amm.BuyBase
	}
	return amm.SellBase
}

// ComputeLiquidationPrice estimates the price at which the position's
// collateral is exhausted, using the pool as it stands when called.
//
// Short: (deposit + quote received for the borrowed base) / borrowed base.
// Long: borrowed quote / (deposit + base received for the borrowed quote).
func ComputeLiquidationPrice(direction Direction, borrowedAmount, depositAmount uint64, pool amm.PoolState) (float64, error) {
	if borrowedAmount == 0 {
		return 0, fmt.Errorf("%w: borrowed amount is zero", amm.ErrInvalidAmount)
	}

	q, err := amm.QuoteSwap(pool, borrowedSide(direction), borrowedAmount)
	if err != nil {
		return 0, err
	}
	return liquidationPrice(direction, borrowedAmount, depositAmount, q.OutputAmount)
}

func liquidationPrice(direction Direction, borrowed, deposit, received uint64) (float64, error) {
	collateral := float64(deposit) + float64(received)
	switch direction {
	case Short:
		return collateral / float64(borrowed), nil
	case Long:
		if collateral == 0 {
			return 0, fmt.Errorf("%w: long has no base collateral", amm.ErrInvalidAmount)
		}
		return float64(borrowed) / collateral, nil
	}
	return 0, fmt.Errorf("%w: unknown direction %d", amm.ErrInvalidAmount, direction)
}

// OpenPosition builds the position that borrowing borrowedAmount against
// depositAmount would open right now.
func OpenPosition(direction Direction, borrowedAmount, depositAmount uint64, pool amm.PoolState, now uint64) (LeveragedPosition, error) {
	if borrowedAmount == 0 {
		return LeveragedPosition{}, fmt.Errorf("%w: borrowed amount is zero", amm.ErrInvalidAmount)
	}

	q, err := amm.QuoteSwap(pool, borrowedSide(direction), borrowedAmount)
	if err != nil {
		return LeveragedPosition{}, err
	}
	liq, err := liquidationPrice(direction, borrowedAmount, depositAmount, q.OutputAmount)
	if err != nil {
		return LeveragedPosition{}, err
	}

	var entry float64
	if q.OutputAmount > 0 {
		if direction == Short {
			entry = float64(q.OutputAmount) / float64(borrowedAmount)
		} else {
			entry = float64(borrowedAmount) / float64(q.OutputAmount)
		}
	}

	return LeveragedPosition{
		Direction:        direction,
		BorrowedAmount:   borrowedAmount,
		DepositAmount:    depositAmount,
		EntryValue:       q.OutputAmount,
		EntryPrice:       entry,
		OpenTimestamp:    now,
		LiquidationPrice: liq,
	}, nil
}

// BorrowFee returns floor(elapsedYears * borrowed * bps / 10000) + 1.
// The trailing +1 is kept for parity with the on-chain program.
func BorrowFee(borrowedAmount uint64, borrowFeeBpsPerYear uint16, elapsedSeconds uint64) uint64 {
	num := new(big.Int).SetUint64(elapsedSeconds)
	num.Mul(num, new(big.Int).SetUint64(borrowedAmount))
	num.Mul(num, big.NewInt(int64(borrowFeeBpsPerYear)))
	num.Quo(num, big.NewInt(int64(amm.BpsDenominator)*SecondsPerYear))
	if !num.IsUint64() {
		return ^uint64(0)
	}
	fee := num.Uint64()
	if fee == ^uint64(0) {
		return fee
	}
	return fee + 1
}

// ComputePositionPnL values a position against the current pool.
//
// All values are in collateral units: the borrowed principal is priced with
// QuoteSwap on the borrowed side, the accrued borrow fee at spot. The
// position should be liquidated once closing it costs at least its
// collateral (entry value plus deposit).
func ComputePositionPnL(pos LeveragedPosition, pool amm.PoolState, nowTimestamp uint64) (PositionPnL, error) {
	if pos.Direction != Short && pos.Direction != Long {
		return PositionPnL{}, fmt.Errorf("%w: unknown direction %d", amm.ErrInvalidAmount, pos.Direction)
	}
	if err := pool.Validate(); err != nil {
		return PositionPnL{}, err
	}

	var elapsed uint64
	if nowTimestamp > pos.OpenTimestamp {
		elapsed = nowTimestamp - pos.OpenTimestamp
	}
	fee := BorrowFee(pos.BorrowedAmount, pool.BorrowFeeBpsPerYear, elapsed)

	exit, err := amm.QuoteSwap(pool, borrowedSide(pos.Direction), pos.BorrowedAmount)
	if err != nil {
		return PositionPnL{}, err
	}

	spot, err := pool.SpotPrice()
	if err != nil {
		return PositionPnL{}, err
	}
	feeValue := float64(fee) * spot
	if pos.Direction == Long {
		feeValue = float64(fee) / spot
	}

	exitValue := float64(exit.OutputAmount)
	collateral := float64(pos.EntryValue) + float64(pos.DepositAmount)

	return PositionPnL{
		BorrowFeeAccrued: fee,
		BorrowFeeValue:   feeValue,
		ExitValue:        exit.OutputAmount,
		Profit:           (float64(pos.EntryValue) - exitValue) - feeValue,
		ShouldLiquidate:  exitValue+feeValue >= collateral,
	}, nil
}
