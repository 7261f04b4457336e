package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/market"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/metrics"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/models"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/storage"
)

// SnapshotFetcher reads the current state of one pool
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, pool *market.Pool) (*models.PoolSnapshot, error)
}

// PoolPoller implements StreamProvider by polling every registered pool
type PoolPoller struct {
	fetcher      SnapshotFetcher
	pools        []market.Pool
	pollInterval time.Duration
	delay        time.Duration
	logger       *logrus.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

var _ storage.StreamProvider = (*PoolPoller)(nil)

// PoolPollerConfig holds configuration for the pool poller
type PoolPollerConfig struct {
	Fetcher      SnapshotFetcher
	Registry     *market.PoolRegistry
	PollInterval time.Duration
	// DelayBetweenPools spaces out refreshes within one poll; defaults to constants.DelayBetweenPools
	DelayBetweenPools time.Duration
	Logger            *logrus.Logger
}

// NewPoolPoller creates a new pool poller
func NewPoolPoller(cfg PoolPollerConfig) (*PoolPoller, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Registry == nil || cfg.Registry.PoolCount() == 0 {
		return nil, fmt.Errorf("registry has no pools")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.DelayBetweenPools == 0 {
		cfg.DelayBetweenPools = constants.DelayBetweenPools
	}

	return &PoolPoller{
		fetcher:      cfg.Fetcher,
		pools:        cfg.Registry.GetAllPools(),
		pollInterval: cfg.PollInterval,
		delay:        cfg.DelayBetweenPools,
		logger:       cfg.Logger,
	}, nil
}

// Start polls immediately and then on every tick until ctx is done or Stop is called
func (p *PoolPoller) Start(ctx context.Context, handler storage.SnapshotHandler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		p.running = false
		p.cancel = nil
		p.mu.Unlock()
	}()

	p.logger.WithFields(logrus.Fields{
		"interval": p.pollInterval,
		"pools":    len(p.pools),
	}).Info("starting pool polling")

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		if err := p.poll(ctx, handler); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			p.logger.WithError(err).Error("poll error")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stop stops the poller
func (p *PoolPoller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// poll refreshes every pool once. A failing pool does not stop the others.
func (p *PoolPoller) poll(ctx context.Context, handler storage.SnapshotHandler) error {
	start := time.Now()
	defer func() { metrics.PollDuration.Observe(time.Since(start).Seconds()) }()

	var failed int
	for i := range p.pools {
		pool := &p.pools[i]

		if i > 0 && p.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.delay):
			}
		}

		if err := refresh(ctx, p.fetcher, pool, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			p.logger.WithError(err).WithField("pool", pool.Name).Warn("failed to refresh pool")
		}
	}

	if failed == len(p.pools) {
		return fmt.Errorf("all %d pools failed to refresh", failed)
	}
	return nil
}

// refresh fetches one pool and hands the snapshot to the handler
func refresh(ctx context.Context, fetcher SnapshotFetcher, pool *market.Pool, handler storage.SnapshotHandler) error {
	snap, err := fetcher.FetchSnapshot(ctx, pool)
	if err != nil {
		metrics.PollsTotal.WithLabelValues(pool.Name, "error").Inc()
		return err
	}
	metrics.PollsTotal.WithLabelValues(pool.Name, "ok").Inc()
	handler(snap)
	return nil
}
