package market

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// PoolConfig represents a pool entry in the JSON config
type PoolConfig struct {
	Name          string `json:"name"`
	ProgramID     string `json:"program_id"`
	PoolAccount   string `json:"pool_account"`
	BaseMint      string `json:"base_mint"`
	QuoteMint     string `json:"quote_mint"`
	BaseDecimals  uint8  `json:"base_decimals"`
	QuoteDecimals uint8  `json:"quote_decimals"`
}

// Pool represents a parsed, ready-to-use pool configuration
type Pool struct {
	Name          string
	ProgramID     solana.PublicKey
	Account       solana.PublicKey
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	BaseDecimals  uint8
	QuoteDecimals uint8
}

// PoolRegistry holds all configured pools
type PoolRegistry struct {
	pools []Pool
}

// NewPoolRegistry loads pools from a JSON file
func NewPoolRegistry(configPath string) (*PoolRegistry, error) {
	pools, err := LoadPoolsFromJSON(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pools: %w", err)
	}

	return &PoolRegistry{
		pools: pools,
	}, nil
}

// NewPoolRegistryFromPools wraps already parsed pools
func NewPoolRegistryFromPools(pools []Pool) *PoolRegistry {
	return &PoolRegistry{pools: pools}
}

// LoadPoolsFromJSON reads and parses pool configurations
func LoadPoolsFromJSON(path string) ([]Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var configs []PoolConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	seen := make(map[string]bool, len(configs))
	pools := make([]Pool, 0, len(configs))
	for i, cfg := range configs {
		pool, err := parsePoolConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("pool %d (%s): %w", i, cfg.Name, err)
		}
		if seen[pool.Name] {
			return nil, fmt.Errorf("pool %d: duplicate name %q", i, pool.Name)
		}
		seen[pool.Name] = true
		pools = append(pools, pool)
	}

	return pools, nil
}

// parsePoolConfig converts a config struct to a Pool with validation
func parsePoolConfig(cfg PoolConfig) (Pool, error) {
	if cfg.Name == "" {
		return Pool{}, fmt.Errorf("name is required")
	}

	pool := Pool{
		Name:          cfg.Name,
		BaseDecimals:  cfg.BaseDecimals,
		QuoteDecimals: cfg.QuoteDecimals,
	}

	keys := []struct {
		field string
		value string
		dst   *solana.PublicKey
	}{
		{"program_id", cfg.ProgramID, &pool.ProgramID},
		{"pool_account", cfg.PoolAccount, &pool.Account},
		{"base_mint", cfg.BaseMint, &pool.BaseMint},
		{"quote_mint", cfg.QuoteMint, &pool.QuoteMint},
	}
	for _, k := range keys {
		pk, err := solana.PublicKeyFromBase58(k.value)
		if err != nil {
			return Pool{}, fmt.Errorf("%s: %w", k.field, err)
		}
		*k.dst = pk
	}

	return pool, nil
}

// FindPoolByMints searches for a pool matching the given token pair
func (r *PoolRegistry) FindPoolByMints(
	mintA, mintB solana.PublicKey,
) (*Pool, error) {

	for i := range r.pools {
		pool := &r.pools[i]

		if (pool.BaseMint.Equals(mintA) && pool.QuoteMint.Equals(mintB)) ||
			(pool.BaseMint.Equals(mintB) && pool.QuoteMint.Equals(mintA)) {
			return pool, nil
		}
	}

	return nil, fmt.Errorf("no pool found for mints %s / %s", mintA, mintB)
}

// FindPoolByName searches for a pool by its name
func (r *PoolRegistry) FindPoolByName(name string) (*Pool, error) {
	for i := range r.pools {
		if r.pools[i].Name == name {
			return &r.pools[i], nil
		}
	}
	return nil, fmt.Errorf("pool not found: %s", name)
}

// GetAllPools returns a copy of all registered pools
func (r *PoolRegistry) GetAllPools() []Pool {
	out := make([]Pool, len(r.pools))
	copy(out, r.pools)
	return out
}

// PoolCount returns the number of registered pools
func (r *PoolRegistry) PoolCount() int {
	return len(r.pools)
}
