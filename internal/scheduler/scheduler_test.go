package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/broker"
	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/session"
	"github.com/quantpilot/quantpilot/internal/storage"
)

// seqBroker fails the first N balance calls, then succeeds.
type seqBroker struct {
	failures int
	calls    int
	equity   float64
}

func (b *seqBroker) GetAccountBalance(ctx context.Context) (*broker.Balance, error) {
	b.calls++
	if b.calls <= b.failures {
		return nil, errors.New("brokerage unavailable")
	}
	return &broker.Balance{Equity: b.equity, Currency: "USD"}, nil
}

func (b *seqBroker) GetPosition(ctx context.Context, symbol string) (*broker.Position, error) {
	return nil, nil
}

func (b *seqBroker) GetLatestQuote(ctx context.Context, symbol string) (float64, error) {
	return 100, nil
}

func (b *seqBroker) PlaceBracketOrder(ctx context.Context, req broker.BracketOrderRequest) (*broker.Order, error) {
	return &broker.Order{ID: "ord-1", Status: broker.OrderStatusFilled}, nil
}

func testCfg() config.TradingConfig {
	return config.TradingConfig{
		CycleInterval:     6 * time.Hour,
		HeartbeatInterval: 30 * time.Minute,
		NarrativeInterval: time.Hour,
		MinBalance:        100,
		AutoStartRetries:  3,
		AutoStartDelay:    5 * time.Second,
		HistoryTTL:        30 * time.Second,
		HistoryWindowDays: 30,
	}
}

func newScheduler(t *testing.T, brk broker.Broker) (*Scheduler, *session.Store) {
	t.Helper()
	cfg := testCfg()
	db := storage.NewMemoryStore(100)
	sess := session.NewStore(db, cfg, zap.NewNop())
	s := New(cfg, nil, sess, brk, zap.NewNop())
	s.sleep = func(time.Duration) {}
	return s, sess
}

func TestBootstrapStartsOnFirstAttempt(t *testing.T) {
	brk := &seqBroker{equity: 12345}
	s, sess := newScheduler(t, brk)

	s.Bootstrap(context.Background())

	assert.Equal(t, session.StatusRunning, sess.Status())
	assert.InDelta(t, 12345, sess.Stats().StartingBalance, 1e-9)
	assert.Equal(t, 1, brk.calls)
}

func TestBootstrapRetriesThenSucceeds(t *testing.T) {
	brk := &seqBroker{failures: 2, equity: 5000}
	s, sess := newScheduler(t, brk)

	slept := 0
	s.sleep = func(d time.Duration) {
		assert.Equal(t, 5*time.Second, d)
		slept++
	}

	s.Bootstrap(context.Background())

	assert.Equal(t, session.StatusRunning, sess.Status())
	assert.Equal(t, 3, brk.calls)
	assert.Equal(t, 2, slept)
}

func TestBootstrapExhaustsRetries(t *testing.T) {
	brk := &seqBroker{failures: 10}
	s, sess := newScheduler(t, brk)

	s.Bootstrap(context.Background())

	assert.Equal(t, session.StatusIdle, sess.Status())
	assert.Equal(t, 3, brk.calls)

	logs := sess.LogMessages(0)
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "Auto-start gave up")
}

func TestHeartbeatOnlyWhileRunning(t *testing.T) {
	s, sess := newScheduler(t, &seqBroker{equity: 1000})

	s.heartbeat()
	assert.Empty(t, sess.LogMessages(0))

	sess.Start(1000)
	before := len(sess.LogMessages(0))
	s.heartbeat()
	assert.Len(t, sess.LogMessages(0), before+1)
}

func TestMarketNarrativeOnlyDuringHours(t *testing.T) {
	s, sess := newScheduler(t, &seqBroker{equity: 1000})
	sess.Start(1000)
	before := len(sess.LogMessages(0))

	eastern, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Saturday: closed
	s.nowFn = func() time.Time { return time.Date(2026, 8, 29, 11, 0, 0, 0, eastern) }
	s.marketNarrative()
	assert.Len(t, sess.LogMessages(0), before)

	// Monday mid-session: open
	s.nowFn = func() time.Time { return time.Date(2026, 8, 31, 11, 0, 0, 0, eastern) }
	s.marketNarrative()
	assert.Len(t, sess.LogMessages(0), before+1)
}

func TestMarketOpen(t *testing.T) {
	eastern, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"weekday mid-session", time.Date(2026, 9, 2, 12, 0, 0, 0, eastern), true},
		{"weekday at open", time.Date(2026, 9, 2, 9, 30, 0, 0, eastern), true},
		{"weekday before open", time.Date(2026, 9, 2, 9, 29, 0, 0, eastern), false},
		{"weekday at close", time.Date(2026, 9, 2, 16, 0, 0, 0, eastern), false},
		{"saturday", time.Date(2026, 9, 5, 12, 0, 0, 0, eastern), false},
		{"sunday", time.Date(2026, 9, 6, 12, 0, 0, 0, eastern), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, marketOpen(tt.t))
		})
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s, _ := newScheduler(t, &seqBroker{equity: 1000})
	s.Start(context.Background())

	s.Stop()
	s.Stop()
}
