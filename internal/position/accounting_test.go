package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/amm"
)

func testPool() amm.PoolState {
	return amm.PoolState{
		BaseReserve:         1_000_000,
		QuoteReserve:        500_000,
		FeeBps:              100,
		BorrowFeeBpsPerYear: 500,
	}
}

func TestComputeLiquidationPrice(t *testing.T) {
	// short: 10000 base sells for 4901 quote
	liq, err := ComputeLiquidationPrice(Short, 10_000, 2_000, testPool())
	require.NoError(t, err)
	assert.InDelta(t, 0.6901, liq, 1e-12)

	// long: 10000 quote buys 19415 base
	liq, err = ComputeLiquidationPrice(Long, 10_000, 5_000, testPool())
	require.NoError(t, err)
	assert.InDelta(t, 10_000.0/24_415.0, liq, 1e-12)
}

func TestComputeLiquidationPrice_Errors(t *testing.T) {
	_, err := ComputeLiquidationPrice(Short, 10_000, 2_000, amm.PoolState{QuoteReserve: 1})
	assert.ErrorIs(t, err, amm.ErrPoolUninitialized)

	_, err = ComputeLiquidationPrice(Short, 0, 2_000, testPool())
	assert.ErrorIs(t, err, amm.ErrInvalidAmount)

	// a long whose borrow buys nothing and posts nothing has no collateral
	_, err = ComputeLiquidationPrice(Long, 1, 0, testPool())
	assert.ErrorIs(t, err, amm.ErrInvalidAmount)
}

func TestOpenPosition(t *testing.T) {
	pos, err := OpenPosition(Short, 10_000, 2_000, testPool(), 1_700_000_000)
	require.NoError(t, err)

	assert.Equal(t, Short, pos.Direction)
	assert.Equal(t, uint64(4901), pos.EntryValue)
	assert.InDelta(t, 0.4901, pos.EntryPrice, 1e-12)
	assert.InDelta(t, 0.6901, pos.LiquidationPrice, 1e-12)
	assert.Equal(t, uint64(1_700_000_000), pos.OpenTimestamp)

	long, err := OpenPosition(Long, 10_000, 5_000, testPool(), 1_700_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(19415), long.EntryValue)
	assert.InDelta(t, 10_000.0/19_415.0, long.EntryPrice, 1e-12)
}

func TestBorrowFee(t *testing.T) {
	tests := []struct {
		name    string
		elapsed uint64
		want    uint64
	}{
		{"zero elapsed keeps the bias", 0, 1},
		{"half year", SecondsPerYear / 2, 251},
		{"one year", SecondsPerYear, 501},
		{"one second rounds down", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BorrowFee(10_000, 500, tt.elapsed))
		})
	}
}

func TestComputePositionPnL_ZeroElapsed(t *testing.T) {
	for _, borrowed := range []uint64{1, 10_000, 99_999_999} {
		pos := LeveragedPosition{Direction: Short, BorrowedAmount: borrowed, OpenTimestamp: 1000}
		pnl, err := ComputePositionPnL(pos, testPool(), 1000)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), pnl.BorrowFeeAccrued)
	}
}

func TestComputePositionPnL_AtOpen(t *testing.T) {
	pos, err := OpenPosition(Short, 10_000, 2_000, testPool(), 1000)
	require.NoError(t, err)

	pnl, err := ComputePositionPnL(pos, testPool(), 1000)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), pnl.BorrowFeeAccrued)
	assert.Equal(t, uint64(4901), pnl.ExitValue)
	assert.InDelta(t, 0.5, pnl.BorrowFeeValue, 1e-12)
	assert.InDelta(t, -0.5, pnl.Profit, 1e-12)
	assert.False(t, pnl.ShouldLiquidate)
}

func TestComputePositionPnL_ClockBeforeOpen(t *testing.T) {
	pos := LeveragedPosition{Direction: Long, BorrowedAmount: 10_000, EntryValue: 19_415, OpenTimestamp: 5000}
	pnl, err := ComputePositionPnL(pos, testPool(), 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), pnl.BorrowFeeAccrued)
}

func TestComputePositionPnL_ShortProfitsWhenPriceFalls(t *testing.T) {
	pos, err := OpenPosition(Short, 10_000, 2_000, testPool(), 0)
	require.NoError(t, err)

	cheaper := amm.PoolState{BaseReserve: 2_000_000, QuoteReserve: 500_000, FeeBps: 100, BorrowFeeBpsPerYear: 500}
	pnl, err := ComputePositionPnL(pos, cheaper, 60)
	require.NoError(t, err)
	assert.Greater(t, pnl.Profit, 0.0)
	assert.False(t, pnl.ShouldLiquidate)

	dearer := amm.PoolState{BaseReserve: 500_000, QuoteReserve: 1_000_000, FeeBps: 100, BorrowFeeBpsPerYear: 500}
	pnl, err = ComputePositionPnL(pos, dearer, 60)
	require.NoError(t, err)
	assert.Less(t, pnl.Profit, 0.0)
	assert.True(t, pnl.ShouldLiquidate)
}

func TestComputePositionPnL_LongProfitsWhenPriceRises(t *testing.T) {
	pos, err := OpenPosition(Long, 10_000, 5_000, testPool(), 0)
	require.NoError(t, err)

	dearer := amm.PoolState{BaseReserve: 500_000, QuoteReserve: 500_000, FeeBps: 100, BorrowFeeBpsPerYear: 500}
	pnl, err := ComputePositionPnL(pos, dearer, 60)
	require.NoError(t, err)
	assert.Equal(t, uint64(9707), pnl.ExitValue)
	assert.Greater(t, pnl.Profit, 0.0)
	assert.False(t, pnl.ShouldLiquidate)
}

func TestComputePositionPnL_LiquidationMonotonicInTime(t *testing.T) {
	for _, dir := range []Direction{Short, Long} {
		pos, err := OpenPosition(dir, 10_000, 2_000, testPool(), 0)
		require.NoError(t, err)

		seen := false
		for years := uint64(0); years <= 60; years++ {
			pnl, err := ComputePositionPnL(pos, testPool(), years*SecondsPerYear)
			require.NoError(t, err)
			if seen {
				assert.True(t, pnl.ShouldLiquidate, "%s flipped back at year %d", dir, years)
			}
			seen = seen || pnl.ShouldLiquidate
		}
		assert.True(t, seen, "%s never liquidated", dir)
	}
}

func TestComputePositionPnL_UninitializedPool(t *testing.T) {
	pos := LeveragedPosition{Direction: Short, BorrowedAmount: 10}
	_, err := ComputePositionPnL(pos, amm.PoolState{}, 0)
	assert.ErrorIs(t, err, amm.ErrPoolUninitialized)
}
