package market

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/layout"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/models"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/rpc"
)

// AccountReader is the subset of the RPC client the market client needs
type AccountReader interface {
	GetAccountInfo(ctx context.Context, address string) (*rpc.AccountInfo, uint64, error)
	GetTokenAccountBalance(ctx context.Context, address string) (uint64, error)
}

// Client reads pool accounts and vault balances into snapshots
type Client struct {
	rpc    AccountReader
	logger *logrus.Logger
	now    func() time.Time
}

// NewClient creates a market client on top of an RPC reader
func NewClient(reader AccountReader, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{rpc: reader, logger: logger, now: time.Now}
}

// FetchSnapshot reads the pool account and both vaults
func (c *Client) FetchSnapshot(ctx context.Context, pool *Pool) (*models.PoolSnapshot, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}

	info, slot, err := c.rpc.GetAccountInfo(ctx, pool.Account.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pool account %s: %w", pool.Name, err)
	}
	if len(info.Data) < 2 {
		return nil, fmt.Errorf("pool %s: account data missing", pool.Name)
	}
	if info.Owner != "" && info.Owner != pool.ProgramID.String() {
		return nil, fmt.Errorf("pool %s: account owned by %s, expected %s", pool.Name, info.Owner, pool.ProgramID)
	}

	raw, err := layout.DecodeAccountData(info.Data[0], info.Data[1])
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", pool.Name, err)
	}
	acct, err := layout.DecodePoolAccount(raw)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", pool.Name, err)
	}
	if !acct.BaseMint.Equals(pool.BaseMint) || !acct.QuoteMint.Equals(pool.QuoteMint) {
		return nil, fmt.Errorf("pool %s: on-chain mints %s/%s do not match config", pool.Name, acct.BaseMint, acct.QuoteMint)
	}

	baseReserve, quoteReserve, err := c.FetchVaultBalances(ctx, acct)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", pool.Name, err)
	}

	// last_price is informational; a garbage value must not poison the snapshot
	lastPrice := acct.LastPriceFloat()
	if f := float64(lastPrice); math.IsNaN(f) || math.IsInf(f, 0) {
		c.logger.WithField("pool", pool.Name).Debug("non-finite last_price, reporting 0")
		lastPrice = 0
	}

	c.logger.WithFields(logrus.Fields{
		"pool":          pool.Name,
		"slot":          slot,
		"base_reserve":  baseReserve,
		"quote_reserve": quoteReserve,
		"lp_supply":     acct.LpAmount,
	}).Debug("pool snapshot fetched")

	return &models.PoolSnapshot{
		Pool:          pool.Name,
		Address:       pool.Account.String(),
		BaseMint:      pool.BaseMint.String(),
		QuoteMint:     pool.QuoteMint.String(),
		BaseDecimals:  pool.BaseDecimals,
		QuoteDecimals: pool.QuoteDecimals,
		State:         acct.PoolState(baseReserve, quoteReserve),
		LpSupply:      acct.LpAmount,
		LastPrice:     lastPrice,
		Slot:          slot,
		Timestamp:     c.now().UTC(),
	}, nil
}

// FetchVaultBalances fetches token account balances for the pool vaults
func (c *Client) FetchVaultBalances(ctx context.Context, acct *layout.PoolAccount) (baseReserve, quoteReserve uint64, err error) {
	baseReserve, err = c.rpc.GetTokenAccountBalance(ctx, acct.BaseKey.String())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch base vault balance: %w", err)
	}

	quoteReserve, err = c.rpc.GetTokenAccountBalance(ctx, acct.QuoteKey.String())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch quote vault balance: %w", err)
	}

	return baseReserve, quoteReserve, nil
}
