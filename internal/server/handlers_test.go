package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-amm-desk/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/models"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/position"
	"github.com/aman-zulfiqar/solana-amm-desk/internal/storage"
)

type fakeCache struct {
	mu    sync.Mutex
	snaps map[string]*models.PoolSnapshot
	feed  chan *models.PoolSnapshot
}

func newFakeCache(snaps ...*models.PoolSnapshot) *fakeCache {
	c := &fakeCache{snaps: map[string]*models.PoolSnapshot{}, feed: make(chan *models.PoolSnapshot, 4)}
	for _, s := range snaps {
		c.snaps[s.Pool] = s
	}
	return c
}

func (f *fakeCache) PutSnapshot(ctx context.Context, snap *models.PoolSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[snap.Pool] = snap
	return nil
}

func (f *fakeCache) GetSnapshot(ctx context.Context, pool string) (*models.PoolSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[pool]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", pool, storage.ErrSnapshotNotFound)
	}
	return s, nil
}

func (f *fakeCache) ListSnapshots(ctx context.Context) ([]*models.PoolSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.PoolSnapshot, 0, len(f.snaps))
	for _, s := range f.snaps {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeCache) PublishSnapshot(ctx context.Context, snap *models.PoolSnapshot) error {
	f.feed <- snap
	return nil
}

func (f *fakeCache) SubscribeSnapshots(ctx context.Context) (<-chan *models.PoolSnapshot, error) {
	out := make(chan *models.PoolSnapshot)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-f.feed:
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }

var openTime = time.Unix(1_700_000_000, 0)

func pools() *fakeCache {
	return newFakeCache(
		&models.PoolSnapshot{
			Pool:          "SOL-USDC",
			BaseMint:      "So11111111111111111111111111111111111111112",
			QuoteMint:     "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			BaseDecimals:  9,
			QuoteDecimals: 6,
			State:         amm.PoolState{BaseReserve: 1_000_000, QuoteReserve: 500_000, FeeBps: 100, BorrowFeeBpsPerYear: 1000},
			LpSupply:      700_000,
			Slot:          42,
		},
		&models.PoolSnapshot{Pool: "EMPTY", State: amm.PoolState{FeeBps: 30}},
	)
}

func newTestServer(t *testing.T, cache storage.SnapshotCache, cfg ServerConfig) *echo.Echo {
	t.Helper()
	cfg.DevMode = true
	if cfg.QuoteRateLimit == 0 {
		cfg.QuoteRateLimit = 1000
	}
	h := &Handlers{Cache: cache, DevMode: true, Now: func() time.Time { return openTime }}
	e := echo.New()
	RegisterRoutes(e, h, cfg)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, pools(), ServerConfig{})
	rec := do(e, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthResponse{OK: true, Cache: true}, decode[HealthResponse](t, rec))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestListAndGetPool(t *testing.T) {
	e := newTestServer(t, pools(), ServerConfig{})

	rec := do(e, http.MethodGet, "/v1/pools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items []PoolResponse `json:"items"`
	}](t, rec)
	assert.Len(t, list.Items, 2)

	rec = do(e, http.MethodGet, "/v1/pools/SOL-USDC", "")
	require.Equal(t, http.StatusOK, rec.Code)
	pool := decode[PoolResponse](t, rec)
	assert.Equal(t, "SOL", pool.BaseSymbol)
	assert.Equal(t, "USDC", pool.QuoteSymbol)
	assert.Equal(t, "0.5", pool.SpotPrice)
	assert.Equal(t, "500", pool.SpotPriceUI)

	rec = do(e, http.MethodGet, "/v1/pools/EMPTY", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[PoolResponse](t, rec).SpotPrice)

	rec = do(e, http.MethodGet, "/v1/pools/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwapQuote(t *testing.T) {
	e := newTestServer(t, pools(), ServerConfig{})

	rec := do(e, http.MethodGet, "/v1/pools/SOL-USDC/quote/swap?side=sell&amount=10000&slippageBps=100", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decode[SwapQuoteResponse](t, rec)
	assert.Equal(t, "sell", q.Side)
	assert.Equal(t, uint64(10_000), q.InputAmount)
	assert.Equal(t, uint64(100), q.FeePaid)
	assert.Equal(t, uint64(4901), q.OutputAmount)
	assert.Equal(t, "0.004901", q.OutputUI)
	assert.Equal(t, uint64(4851), q.MinimumOutput)
	assert.Equal(t, uint64(42), q.Slot)
	assert.NotEmpty(t, q.PriceAfter)

	// default slippage tolerance
	rec = do(e, http.MethodGet, "/v1/pools/SOL-USDC/quote/swap?side=buy&amount=10000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint16(100), decode[SwapQuoteResponse](t, rec).SlippageBps)
}

func TestSwapQuote_Errors(t *testing.T) {
	e := newTestServer(t, pools(), ServerConfig{})

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"bad side", "/v1/pools/SOL-USDC/quote/swap?side=hold&amount=1", http.StatusBadRequest},
		{"missing amount", "/v1/pools/SOL-USDC/quote/swap?side=sell", http.StatusBadRequest},
		{"negative amount", "/v1/pools/SOL-USDC/quote/swap?side=sell&amount=-5", http.StatusBadRequest},
		{"slippage too high", "/v1/pools/SOL-USDC/quote/swap?side=sell&amount=1&slippageBps=9000", http.StatusBadRequest},
		{"unknown pool", "/v1/pools/NOPE/quote/swap?side=sell&amount=1", http.StatusNotFound},
		{"uninitialized", "/v1/pools/EMPTY/quote/swap?side=sell&amount=1", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestLiquidityQuotes(t *testing.T) {
	e := newTestServer(t, pools(), ServerConfig{})

	rec := do(e, http.MethodGet, "/v1/pools/SOL-USDC/quote/add-liquidity?token=base&amount=10000", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	add := decode[LiquidityQuoteResponse](t, rec)
	assert.Equal(t, "base", add.Token)
	assert.Equal(t, uint64(5_000), add.PairedTokenAmount)
	assert.Equal(t, uint64(7_000), add.LpMinted)

	rec = do(e, http.MethodGet, "/v1/pools/SOL-USDC/quote/remove-liquidity?lpAmount=7000", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rm := decode[RemoveLiquidityResponse](t, rec)
	assert.Equal(t, uint64(10_000), rm.BaseOut)
	assert.Equal(t, uint64(5_000), rm.QuoteOut)

	rec = do(e, http.MethodGet, "/v1/pools/SOL-USDC/quote/remove-liquidity?lpAmount=700001", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(e, http.MethodGet, "/v1/pools/SOL-USDC/quote/add-liquidity?token=lp&amount=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLiquidationPrice(t *testing.T) {
	e := newTestServer(t, pools(), ServerConfig{})

	rec := do(e, http.MethodGet, "/v1/pools/SOL-USDC/liquidation-price?direction=short&borrowed=10000&deposit=2000", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[LiquidationPriceResponse](t, rec)
	assert.Equal(t, uint64(4901), resp.EntryValue)
	assert.Equal(t, "0.6901", resp.LiquidationPrice)

	rec = do(e, http.MethodGet, "/v1/pools/SOL-USDC/liquidation-price?direction=short&borrowed=0&deposit=2000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/v1/pools/SOL-USDC/liquidation-price?direction=sideways&borrowed=1&deposit=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPositionPnL(t *testing.T) {
	e := newTestServer(t, pools(), ServerConfig{})

	pos, err := position.OpenPosition(position.Short, 10_000, 2_000, pools().snaps["SOL-USDC"].State, uint64(openTime.Unix()))
	require.NoError(t, err)

	body, err := json.Marshal(PositionPnLRequest{Attributes: pos.Attributes()})
	require.NoError(t, err)

	rec := do(e, http.MethodPost, "/v1/pools/SOL-USDC/positions/pnl", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[PositionPnLResponse](t, rec)
	assert.Equal(t, uint64(openTime.Unix()), resp.Now)
	assert.Equal(t, uint64(1), resp.BorrowFeeAccrued)
	assert.Equal(t, position.Short, resp.Position.Direction)
	assert.False(t, resp.ShouldLiquidate)

	// explicit valuation time one year later
	later := uint64(openTime.Unix()) + position.SecondsPerYear
	body, err = json.Marshal(PositionPnLRequest{Attributes: pos.Attributes(), Now: &later})
	require.NoError(t, err)
	rec = do(e, http.MethodPost, "/v1/pools/SOL-USDC/positions/pnl", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(1_001), decode[PositionPnLResponse](t, rec).BorrowFeeAccrued)

	rec = do(e, http.MethodPost, "/v1/pools/SOL-USDC/positions/pnl", `{"attributes":[{"key":"base_amount","value":"x"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformed attributes", decode[ErrorResponse](t, rec).Error)

	rec = do(e, http.MethodPost, "/v1/pools/SOL-USDC/positions/pnl", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKey(t *testing.T) {
	e := newTestServer(t, pools(), ServerConfig{APIKey: "secret"})

	rec := do(e, http.MethodGet, "/v1/pools", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/pools", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// metrics stay scrapeable without a key
	rec = do(e, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFoundIsJSON(t *testing.T) {
	e := newTestServer(t, pools(), ServerConfig{})
	rec := do(e, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decode[ErrorResponse](t, rec).Code)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("x: %w", storage.ErrSnapshotNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", amm.ErrPoolUninitialized), http.StatusConflict},
		{fmt.Errorf("x: %w", amm.ErrInsufficientLiquidity), http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", amm.ErrInvalidAmount), http.StatusBadRequest},
		{&position.AttributeError{Key: "k", Reason: "r"}, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, _, _ := errorStatus(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestSnapshotFeed(t *testing.T) {
	cache := pools()
	srv := httptest.NewServer(newTestServer(t, cache, ServerConfig{}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/pools/stream?pool=SOL-USDC"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	require.NoError(t, cache.PublishSnapshot(ctx, &models.PoolSnapshot{Pool: "OTHER"}))
	require.NoError(t, cache.PublishSnapshot(ctx, cache.snaps["SOL-USDC"]))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got PoolResponse
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "SOL-USDC", got.Pool)
	assert.Equal(t, uint64(42), got.Slot)
}
