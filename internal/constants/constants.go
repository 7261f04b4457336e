package constants

import "time"

// Redis keys
const (
	RedisKeySnapshotPrefix = "pool:snapshot:"
	RedisKeySnapshotIndex  = "pool:index"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSnapshots = "pools:live"
)

// Limits
const (
	DefaultSlippageBps = 100
	MaxSlippageBps     = 5000
	SnapshotTTL        = 10 * time.Minute // stale snapshots expire from the cache
)

// Rate limiting
const (
	DelayBetweenPools = 250 * time.Millisecond // Delay between pool refreshes in one poll
	ResyncInterval    = SnapshotTTL / 4        // full refresh while watching accounts; vault-only changes emit no notification
)

// Token mint addresses to symbols
var TokenSymbols = map[string]string{
	"So11111111111111111111111111111111111111112":  "SOL",
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "mSOL",
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": "BONK",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "JUP",
}

// SymbolForMint returns the known symbol of a mint, or the mint itself
func SymbolForMint(mint string) string {
	if s, ok := TokenSymbols[mint]; ok {
		return s
	}
	return mint
}
