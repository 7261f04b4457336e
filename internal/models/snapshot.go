package models

import (
	"time"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/amm"
)

// PoolSnapshot is one observation of a pool's on-chain state
type PoolSnapshot struct {
	Pool          string        `json:"pool"`    // registry name, e.g. "SOL-USDC"
	Address       string        `json:"address"` // pool account
	BaseMint      string        `json:"base_mint"`
	QuoteMint     string        `json:"quote_mint"`
	BaseDecimals  uint8         `json:"base_decimals"`
	QuoteDecimals uint8         `json:"quote_decimals"`
	State         amm.PoolState `json:"state"`
	LpSupply      uint64        `json:"lp_supply"`
	LastPrice     float32       `json:"last_price"`
	Slot          uint64        `json:"slot"`
	Timestamp     time.Time     `json:"timestamp"`
}
