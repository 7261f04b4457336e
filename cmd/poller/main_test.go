package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/models"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/server"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/storage"
)

type memoryCache struct {
	mu        sync.Mutex
	snaps     map[string]*models.PoolSnapshot
	published []*models.PoolSnapshot
}

func newMemoryCache() *memoryCache {
	return &memoryCache{snaps: map[string]*models.PoolSnapshot{}}
}

func (m *memoryCache) PutSnapshot(ctx context.Context, snap *models.PoolSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Pool] = snap
	return nil
}

func (m *memoryCache) GetSnapshot(ctx context.Context, pool string) (*models.PoolSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[pool]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", pool, storage.ErrSnapshotNotFound)
	}
	return s, nil
}

func (m *memoryCache) ListSnapshots(ctx context.Context) ([]*models.PoolSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.PoolSnapshot, 0, len(m.snaps))
	for _, s := range m.snaps {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryCache) PublishSnapshot(ctx context.Context, snap *models.PoolSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, snap)
	return nil
}

func (m *memoryCache) SubscribeSnapshots(ctx context.Context) (<-chan *models.PoolSnapshot, error) {
	return nil, errors.New("not supported")
}

func (m *memoryCache) Ping(ctx context.Context) error { return nil }
func (m *memoryCache) Close() error                   { return nil }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestProcessSnapshot_CachesAndPublishes(t *testing.T) {
	c := newMemoryCache()
	p := &Poller{cache: c, logger: quietLogger()}

	snap := &models.PoolSnapshot{Pool: "SOL-USDC", State: amm.PoolState{BaseReserve: 1_000_000, QuoteReserve: 500_000, FeeBps: 100}}
	require.NoError(t, p.ProcessSnapshot(context.Background(), snap))

	got, err := c.GetSnapshot(context.Background(), "SOL-USDC")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Len(t, c.published, 1)
}

func TestProcessSnapshot_DrainedPoolReplacesCachedState(t *testing.T) {
	c := newMemoryCache()
	p := &Poller{cache: c, logger: quietLogger()}
	ctx := context.Background()

	require.NoError(t, p.ProcessSnapshot(ctx, &models.PoolSnapshot{
		Pool:  "SOL-USDC",
		State: amm.PoolState{BaseReserve: 1_000_000, QuoteReserve: 500_000, FeeBps: 100},
	}))
	require.NoError(t, p.ProcessSnapshot(ctx, &models.PoolSnapshot{
		Pool:  "SOL-USDC",
		State: amm.PoolState{BaseReserve: 0, QuoteReserve: 500_000, FeeBps: 100},
	}))

	got, err := c.GetSnapshot(ctx, "SOL-USDC")
	require.NoError(t, err)
	assert.Zero(t, got.State.BaseReserve)
	assert.Len(t, c.published, 2)

	// the API now reports the pool as uninitialized rather than quoting old reserves
	e := echo.New()
	server.RegisterRoutes(e, &server.Handlers{Cache: c, Logger: quietLogger()}, server.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/pools/SOL-USDC/quote/swap?side=sell&amount=10000", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
