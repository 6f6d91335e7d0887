package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/broker"
	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/core"
	"github.com/quantpilot/quantpilot/internal/session"
	"github.com/quantpilot/quantpilot/internal/signal"
	"github.com/quantpilot/quantpilot/internal/storage"
)

// constRand always returns the same draw, making every decision and
// selection deterministic.
type constRand struct{ v float64 }

func (c constRand) Float64() float64 { return c.v }

// mockBroker is a scriptable in-memory brokerage.
type mockBroker struct {
	mu         sync.Mutex
	equity     float64
	balanceErr error
	quote      float64
	quoteErr   error
	position   *broker.Position
	failOnCall int
	placeCalls int
	placed     []broker.BracketOrderRequest

	// when set, GetAccountBalance blocks until release is closed
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (m *mockBroker) GetAccountBalance(ctx context.Context) (*broker.Balance, error) {
	if m.release != nil {
		m.once.Do(func() { close(m.started) })
		<-m.release
	}
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return &broker.Balance{Equity: m.equity, BuyingPower: m.equity, Currency: "USD"}, nil
}

func (m *mockBroker) GetPosition(ctx context.Context, symbol string) (*broker.Position, error) {
	return m.position, nil
}

func (m *mockBroker) GetLatestQuote(ctx context.Context, symbol string) (float64, error) {
	if m.quoteErr != nil {
		return 0, m.quoteErr
	}
	return m.quote, nil
}

func (m *mockBroker) PlaceBracketOrder(ctx context.Context, req broker.BracketOrderRequest) (*broker.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placeCalls++
	if m.failOnCall == m.placeCalls {
		return nil, core.WrapError(core.ErrOrderFailed, errors.New("simulated rejection"))
	}
	m.placed = append(m.placed, req)
	return &broker.Order{
		ID:     fmt.Sprintf("ord-%d", m.placeCalls),
		Symbol: req.Symbol,
		Side:   req.Side,
		Status: broker.OrderStatusFilled,
	}, nil
}

// stubFeed returns a fixed momentum value or error.
type stubFeed struct {
	value float64
	err   error
}

func (f stubFeed) GetMomentum(ctx context.Context, symbol string) (float64, error) {
	return f.value, f.err
}

func testTradingConfig() config.TradingConfig {
	return config.TradingConfig{
		CycleInterval:     6 * time.Hour,
		MinBalance:        100,
		MinNotional:       100,
		MaxNotional:       500,
		InterTradeDelay:   time.Second,
		CacheTTL:          5 * time.Minute,
		HistoryTTL:        30 * time.Second,
		HistoryWindowDays: 30,
	}
}

type harness struct {
	engine  *Engine
	broker  *mockBroker
	db      *storage.MemoryStore
	session *session.Store
}

func newHarness(t *testing.T, brk *mockBroker, strategies int) *harness {
	t.Helper()
	cfg := testTradingConfig()
	db := storage.NewMemoryStore(1000)
	ctx := context.Background()
	for i := 0; i < strategies; i++ {
		require.NoError(t, db.SaveStrategy(ctx, core.Strategy{
			ID: fmt.Sprintf("s%d", i), Name: fmt.Sprintf("Strategy %d", i),
			RiskTier: core.RiskMedium, Active: true,
		}))
	}
	require.NoError(t, db.SaveAsset(ctx, core.Asset{
		ID: "a0", Symbol: "AAPL", Class: core.AssetStock, Active: true,
	}))

	sess := session.NewStore(db, cfg, zap.NewNop())
	gen := signal.NewGenerator(constRand{0})
	eng := New(cfg, brk, stubFeed{value: 2}, db, sess, gen, nil, zap.NewNop())
	eng.sleep = func(time.Duration) {}
	return &harness{engine: eng, broker: brk, db: db, session: sess}
}

func TestCycleSkippedWhenNotRunning(t *testing.T) {
	h := newHarness(t, &mockBroker{equity: 10000, quote: 100}, 2)

	result, err := h.engine.ExecuteCycle(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.TradesExecuted)
	assert.Empty(t, result.Errors)
	assert.Zero(t, h.broker.placeCalls)
}

func TestCycleExecutesOneTradePerStrategy(t *testing.T) {
	h := newHarness(t, &mockBroker{equity: 10000, quote: 100}, 3)
	h.session.Start(10000)

	result, err := h.engine.ExecuteCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, result.TradesExecuted)
	assert.Empty(t, result.Errors)
	assert.Len(t, h.session.RecentTrades(0), 3)

	// bracket exits follow the medium tier at the quoted entry
	for _, req := range h.broker.placed {
		assert.Equal(t, "AAPL", req.Symbol)
		assert.Equal(t, core.ActionBuy, req.Side)
		assert.InDelta(t, 95.00, req.StopLoss, 1e-9)
		assert.InDelta(t, 110.00, req.TakeProfit, 1e-9)
	}

	signals, err := h.db.ListAutoTradeSignals(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, signals, 3)
}

func TestCyclePartialFailureIsolation(t *testing.T) {
	brk := &mockBroker{equity: 10000, quote: 100, failOnCall: 2}
	h := newHarness(t, brk, 3)
	h.session.Start(10000)

	result, err := h.engine.ExecuteCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.TradesExecuted)
	require.Len(t, result.Errors, 1)

	trades := h.session.RecentTrades(0)
	require.Len(t, trades, 2)
	for _, trade := range trades {
		assert.Contains(t, []core.TradeStatus{core.TradePending, core.TradeFilled}, trade.Status)
	}
}

func TestCycleCircuitBreakerAborts(t *testing.T) {
	h := newHarness(t, &mockBroker{equity: 50, quote: 100}, 2)
	h.session.Start(10000)

	result, err := h.engine.ExecuteCycle(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.TradesExecuted)
	assert.Equal(t, session.StatusStopped, h.session.Status())
	assert.Zero(t, h.broker.placeCalls)
}

func TestCycleBalanceFetchFailureContinues(t *testing.T) {
	h := newHarness(t, &mockBroker{balanceErr: errors.New("api down"), quote: 100}, 1)
	h.session.Start(10000)

	result, err := h.engine.ExecuteCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.TradesExecuted)
}

func TestOverlappingCycleSkipped(t *testing.T) {
	brk := &mockBroker{
		equity:  10000,
		quote:   100,
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	h := newHarness(t, brk, 1)
	h.session.Start(10000)

	done := make(chan Result, 1)
	go func() {
		result, _ := h.engine.ExecuteCycle(context.Background())
		done <- result
	}()
	<-brk.started

	// second trigger while the first is blocked inside the cycle
	_, err := h.engine.ExecuteCycle(context.Background())
	assert.True(t, errors.Is(err, core.ErrCycleInFlight))

	close(brk.release)
	first := <-done
	assert.Equal(t, 1, first.TradesExecuted)
	assert.Equal(t, 1, brk.placeCalls)
}

func TestExecuteSingleRunsOneStrategy(t *testing.T) {
	h := newHarness(t, &mockBroker{equity: 10000, quote: 100}, 3)
	h.session.Start(10000)

	result, err := h.engine.ExecuteSingle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.TradesExecuted)
	assert.Equal(t, 1, h.broker.placeCalls)

	// single executions are tagged manual, not auto-trade
	signals, err := h.db.ListAutoTradeSignals(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestCryptoSymbolTranslatedForOrders(t *testing.T) {
	brk := &mockBroker{equity: 10000, quote: 30000}
	h := newHarness(t, brk, 1)
	ctx := context.Background()
	require.NoError(t, h.db.SaveAsset(ctx, core.Asset{
		ID: "a-btc", Symbol: "BTCUSDT", Class: core.AssetCrypto, Active: true,
	}))
	// drop the default stock asset so the crypto one is always picked
	require.NoError(t, h.db.SaveAsset(ctx, core.Asset{
		ID: "a0", Symbol: "AAPL", Class: core.AssetStock, Active: false,
	}))
	h.session.Start(10000)

	result, err := h.engine.ExecuteCycle(ctx)

	require.NoError(t, err)
	require.Equal(t, 1, result.TradesExecuted)
	require.Len(t, brk.placed, 1)
	assert.Equal(t, "BTC/USD", brk.placed[0].Symbol)
	assert.Greater(t, brk.placed[0].Quantity, 0.0)
}

func TestQuantityTooSmallSkipsTrade(t *testing.T) {
	// with constRand 0 the notional is the band minimum ($100); a $150
	// equity price truncates the quantity to zero
	h := newHarness(t, &mockBroker{equity: 10000, quote: 150}, 1)
	h.session.Start(10000)

	result, err := h.engine.ExecuteCycle(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.TradesExecuted)
	require.Len(t, result.Errors, 1)
	assert.Zero(t, h.broker.placeCalls)
}

func TestResolvePriceFallbacks(t *testing.T) {
	t.Run("quote preferred", func(t *testing.T) {
		h := newHarness(t, &mockBroker{quote: 123.45}, 0)
		assert.InDelta(t, 123.45, h.engine.resolvePrice(context.Background(), "AAPL"), 1e-9)
	})

	t.Run("position mark fallback", func(t *testing.T) {
		h := newHarness(t, &mockBroker{
			quoteErr: core.ErrQuoteUnavailable,
			position: &broker.Position{Symbol: "AAPL", MarkPrice: 87.5},
		}, 0)
		assert.InDelta(t, 87.5, h.engine.resolvePrice(context.Background(), "AAPL"), 1e-9)
	})

	t.Run("fixed default last", func(t *testing.T) {
		h := newHarness(t, &mockBroker{quoteErr: core.ErrQuoteUnavailable}, 0)
		assert.InDelta(t, defaultPrice, h.engine.resolvePrice(context.Background(), "AAPL"), 1e-9)
	})
}

func TestStrategyCacheRefreshFailureUsesStale(t *testing.T) {
	h := newHarness(t, &mockBroker{equity: 10000, quote: 100}, 2)
	h.session.Start(10000)

	// prime the cache
	_, err := h.engine.ExecuteCycle(context.Background())
	require.NoError(t, err)

	// expire the cache and break the backend
	h.engine.cacheMu.Lock()
	h.engine.strategiesAt = time.Time{}
	h.engine.assetsAt = time.Time{}
	h.engine.cacheMu.Unlock()
	h.engine.db = &failingListStore{h.db}

	result, err := h.engine.ExecuteCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.TradesExecuted)
}

// failingListStore errors on list reads but delegates writes.
type failingListStore struct {
	*storage.MemoryStore
}

func (f *failingListStore) ListActiveStrategies(ctx context.Context) ([]core.Strategy, error) {
	return nil, errors.New("backend down")
}

func (f *failingListStore) ListEligibleAssets(ctx context.Context) ([]core.Asset, error) {
	return nil, errors.New("backend down")
}
