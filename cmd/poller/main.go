package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/cache"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/config"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/market"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/models"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/rpc"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/storage"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/stream"
)

func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	}
}

// Poller fans every fresh snapshot out to the cache, the live channel and history
type Poller struct {
	cache   storage.SnapshotCache
	history storage.SnapshotStore // optional
	logger  *logrus.Logger
}

func (p *Poller) ProcessSnapshot(ctx context.Context, snap *models.PoolSnapshot) error {
	log := p.logger.WithFields(logrus.Fields{
		"pool": snap.Pool,
		"slot": snap.Slot,
	})

	// an unquotable pool still replaces the cached snapshot so the API
	// stops quoting old reserves and reports the pool state instead
	if err := snap.State.Validate(); err != nil {
		log.WithError(err).Warn("pool state failed validation")
	}

	// 1. Latest snapshot for the API
	if err := p.cache.PutSnapshot(ctx, snap); err != nil {
		log.WithError(err).Error("redis cache error")
		return err
	}

	// 2. Live feed
	if err := p.cache.PublishSnapshot(ctx, snap); err != nil {
		log.WithError(err).Warn("pub/sub error")
	}

	// 3. History
	if p.history != nil {
		if err := p.history.InsertSnapshot(ctx, snap); err != nil {
			log.WithError(err).Warn("clickhouse error")
		}
	}

	log.WithFields(logrus.Fields{
		"base_reserve":  snap.State.BaseReserve,
		"quote_reserve": snap.State.QuoteReserve,
	}).Info("snapshot processed")
	return nil
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	registry, err := market.NewPoolRegistry(cfg.PoolConfigPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load pool registry")
	}

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		RateLimit:    cfg.RPCRateLimit,
		RateBurst:    cfg.RPCRateBurst,
		Logger:       logger,
	})
	marketClient := market.NewClient(rpcClient, logger)

	snapshots, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Logger: logger})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer snapshots.Close()

	p := &Poller{cache: snapshots, logger: logger}

	// History is best effort; the quote path only needs Redis
	if cfg.ClickHouseAddr != "" {
		history, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, history disabled")
		} else {
			defer history.Close()
			p.history = history
		}
	}

	var provider storage.StreamProvider
	switch cfg.StreamProvider {
	case "ws":
		wsURL := cfg.WSUrl
		if wsURL == "" {
			wsURL = stream.WSURLFromRPC(cfg.RPCUrl)
		}
		logger.WithField("url", wsURL).Info("using account websocket")
		provider, err = stream.NewAccountWatcher(stream.AccountWatcherConfig{
			WSURL:    wsURL,
			Fetcher:  marketClient,
			Registry: registry,
			Logger:   logger,
		})
	default:
		logger.WithField("url", cfg.RPCUrl).Info("using RPC polling")
		provider, err = stream.NewPoolPoller(stream.PoolPollerConfig{
			Fetcher:      marketClient,
			Registry:     registry,
			PollInterval: cfg.PollInterval,
			Logger:       logger,
		})
	}
	if err != nil {
		logger.WithError(err).Fatal("failed to create stream provider")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		_ = provider.Stop()
		cancel()
	}()

	logger.WithField("pools", registry.PoolCount()).Info("poller running")

	err = provider.Start(ctx, func(snap *models.PoolSnapshot) {
		wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
		defer wcancel()
		_ = p.ProcessSnapshot(wctx, snap)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("stream provider failed")
	}
}
