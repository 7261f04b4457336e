package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/cache"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/config"
)

// subscriber tails the live snapshot channel and logs every update
func main() {
	poolFilter := flag.String("pool", "", "only log this pool")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down subscriber")
		cancel()
	}()

	snapshots, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Logger: logger})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer snapshots.Close()

	ch, err := snapshots.SubscribeSnapshots(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe")
	}

	logger.Info("subscriber running, press Ctrl+C to stop")

	for snap := range ch {
		if *poolFilter != "" && snap.Pool != *poolFilter {
			continue
		}
		fields := logrus.Fields{
			"pool":          snap.Pool,
			"slot":          snap.Slot,
			"base_reserve":  snap.State.BaseReserve,
			"quote_reserve": snap.State.QuoteReserve,
			"lp_supply":     snap.LpSupply,
		}
		if spot, err := snap.State.SpotPrice(); err == nil {
			fields["spot"] = spot
		}
		logger.WithFields(fields).Info("snapshot")
	}
}
