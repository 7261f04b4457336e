package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/config"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/market"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/rpc"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// quote fetches one live pool snapshot and prints a swap quote against it
func main() {
	loadEnv()

	poolName := flag.String("pool", "SOL-USDC", "pool name from the registry")
	sideFlag := flag.String("side", "sell", "sell | buy (base token)")
	amt := flag.Float64("amt", 0, "input amount in human units (e.g. 0.1)")
	slippageBps := flag.Uint("slippage-bps", 100, "slippage in bps (e.g. 100 = 1%)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *amt <= 0 {
		fmt.Println("missing -amt (must be > 0)")
		os.Exit(2)
	}
	side, err := amm.ParseSide(*sideFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	if *slippageBps > amm.BpsDenominator {
		fmt.Println("slippage-bps must be <= 10000")
		os.Exit(2)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Println("invalid configuration:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	registry, err := market.NewPoolRegistry(cfg.PoolConfigPath)
	if err != nil {
		fmt.Println("failed to load pools:", err)
		os.Exit(1)
	}
	pool, err := registry.FindPoolByName(*poolName)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	client := market.NewClient(rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		RateLimit:    cfg.RPCRateLimit,
		RateBurst:    cfg.RPCRateBurst,
		Logger:       logger,
	}), logger)

	snap, err := client.FetchSnapshot(ctx, pool)
	if err != nil {
		fmt.Println("failed to fetch pool:", err)
		os.Exit(1)
	}

	inDecimals, outDecimals := pool.BaseDecimals, pool.QuoteDecimals
	if side == amm.BuyBase {
		inDecimals, outDecimals = outDecimals, inDecimals
	}

	raw, err := amm.ToRawAmount(*amt, inDecimals)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	q, err := amm.QuoteSwap(snap.State, side, raw)
	if err != nil {
		fmt.Println("quote failed:", err)
		os.Exit(1)
	}
	minOut := amm.ApplySlippage(q.OutputAmount, uint16(*slippageBps))

	fmt.Printf("pool=%s slot=%d side=%s amount_in=%d amount_out=%d (%.6f) min_out=%d fee=%d slippage=%.4f%% fee_bps=%d\n",
		snap.Pool, snap.Slot, side, q.InputAmount, q.OutputAmount, amm.FromRawAmount(q.OutputAmount, outDecimals),
		minOut, q.FeePaid, q.SlippagePct*100, snap.State.FeeBps)
}
