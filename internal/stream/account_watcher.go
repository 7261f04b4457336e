package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/market"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/storage"
)

// AccountWatcher implements StreamProvider over the Solana websocket API.
// It subscribes to every pool account and refreshes a pool whenever the
// node reports a change to it. Every pool is also refreshed when a
// connection is established and on each resync tick.
type AccountWatcher struct {
	wsURL     string
	fetcher   SnapshotFetcher
	pools     []market.Pool
	reconnect time.Duration
	resync    time.Duration
	logger    *logrus.Logger
	dialer    *websocket.Dialer

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

var _ storage.StreamProvider = (*AccountWatcher)(nil)

// AccountWatcherConfig holds configuration for the account watcher
type AccountWatcherConfig struct {
	WSURL          string
	Fetcher        SnapshotFetcher
	Registry       *market.PoolRegistry
	ReconnectDelay time.Duration
	// ResyncInterval bounds staleness between notifications; defaults to constants.ResyncInterval
	ResyncInterval time.Duration
	Logger         *logrus.Logger
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsMessage covers both subscription acks and notifications
type wsMessage struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *struct {
		Subscription uint64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
		} `json:"result"`
	} `json:"params"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// WSURLFromRPC derives the websocket endpoint from an http(s) RPC URL
func WSURLFromRPC(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	}
	return rpcURL
}

// NewAccountWatcher creates a new account watcher
func NewAccountWatcher(cfg AccountWatcherConfig) (*AccountWatcher, error) {
	if cfg.WSURL == "" {
		return nil, fmt.Errorf("websocket url is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Registry == nil || cfg.Registry.PoolCount() == 0 {
		return nil, fmt.Errorf("registry has no pools")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = constants.ResyncInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &AccountWatcher{
		wsURL:     cfg.WSURL,
		fetcher:   cfg.Fetcher,
		pools:     cfg.Registry.GetAllPools(),
		reconnect: cfg.ReconnectDelay,
		resync:    cfg.ResyncInterval,
		logger:    cfg.Logger,
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

// Start connects, subscribes and dispatches refreshes until ctx is done.
// Dropped connections are re-established after the reconnect delay.
func (w *AccountWatcher) Start(ctx context.Context, handler storage.SnapshotHandler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.mu.Unlock()

	defer func() {
		cancel()
		w.mu.Lock()
		w.running = false
		w.cancel = nil
		w.mu.Unlock()
	}()

	for {
		err := w.session(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.WithError(err).WithField("retry_in", w.reconnect).Warn("websocket session ended")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.reconnect):
		}
	}
}

// refreshAll refreshes every pool, logging failures
func (w *AccountWatcher) refreshAll(ctx context.Context, handler storage.SnapshotHandler) {
	for i := range w.pools {
		if ctx.Err() != nil {
			return
		}
		if err := refresh(ctx, w.fetcher, &w.pools[i], handler); err != nil {
			w.logger.WithError(err).WithField("pool", w.pools[i].Name).Warn("failed to refresh pool")
		}
	}
}

// Stop stops the watcher
func (w *AccountWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
	return nil
}

// session runs one websocket connection until it fails or ctx is done
func (w *AccountWatcher) session(ctx context.Context, handler storage.SnapshotHandler) error {
	conn, _, err := w.dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	// unblock ReadJSON on shutdown
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for i, pool := range w.pools {
		req := wsRequest{
			JSONRPC: "2.0",
			ID:      i + 1,
			Method:  "accountSubscribe",
			Params: []interface{}{
				pool.Account.String(),
				map[string]string{"encoding": "base64", "commitment": "confirmed"},
			},
		}
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("subscribe %s: %w", pool.Name, err)
		}
	}

	w.logger.WithField("pools", len(w.pools)).Info("connected to account websocket")

	// reader pumps messages so refreshes never block on the socket
	msgs := make(chan wsMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- fmt.Errorf("read: %w", err)
				return
			}
			select {
			case msgs <- msg:
			case <-stop:
				return
			}
		}
	}()

	// anything that changed while disconnected is picked up here
	w.refreshAll(ctx, handler)

	ticker := time.NewTicker(w.resync)
	defer ticker.Stop()

	subs := make(map[uint64]*market.Pool, len(w.pools))
	for {
		var msg wsMessage
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
			w.logger.Debug("resyncing pools")
			w.refreshAll(ctx, handler)
			continue
		case msg = <-msgs:
		}

		switch {
		case msg.Error != nil:
			w.logger.WithFields(logrus.Fields{
				"id":    msg.ID,
				"code":  msg.Error.Code,
				"error": msg.Error.Message,
			}).Warn("subscription rejected")

		case msg.ID > 0 && msg.ID <= len(w.pools):
			var subID uint64
			if err := json.Unmarshal(msg.Result, &subID); err != nil {
				return fmt.Errorf("bad subscription ack: %w", err)
			}
			subs[subID] = &w.pools[msg.ID-1]

		case msg.Method == "accountNotification" && msg.Params != nil:
			pool, ok := subs[msg.Params.Subscription]
			if !ok {
				continue
			}
			w.logger.WithFields(logrus.Fields{
				"pool": pool.Name,
				"slot": msg.Params.Result.Context.Slot,
			}).Debug("pool account changed")

			if err := refresh(ctx, w.fetcher, pool, handler); err != nil {
				w.logger.WithError(err).WithField("pool", pool.Name).Warn("failed to refresh pool")
			}
		}
	}
}
