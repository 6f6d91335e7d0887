// Package session holds the trading session state machine: lifecycle
// status, bounded trade and log buffers, and running statistics. It is the
// single mutable shared resource of the engine; writes come only from the
// serialized execution path or explicit operator calls, reads may happen
// concurrently from polling endpoints.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/core"
	"github.com/quantpilot/quantpilot/internal/storage"
)

// Status is the lifecycle state of a trading session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
)

const (
	maxTrades = 100
	maxLogs   = 50
)

// Stats are the derived session statistics, recomputed incrementally as
// trades are recorded and wholesale when history is reconciled.
type Stats struct {
	TotalTrades      int       `json:"total_trades"`
	SuccessfulTrades int       `json:"successful_trades"`
	FailedTrades     int       `json:"failed_trades"`
	TodayTrades      int       `json:"today_trades"`
	TotalVolume      float64   `json:"total_volume"`
	WinRate          float64   `json:"win_rate"`
	LastTradeAt      time.Time `json:"last_trade_at"`
	StartedAt        time.Time `json:"started_at"`
	CurrentBalance   float64   `json:"current_balance"`
	StartingBalance  float64   `json:"starting_balance"`
	ProfitLoss       float64   `json:"profit_loss"`
	ProfitLossPct    float64   `json:"profit_loss_pct"`
}

// LogMessage is one narrative entry in the session's bounded log buffer.
type LogMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// State is a point-in-time snapshot of the session for read endpoints.
type State struct {
	Status    Status    `json:"status"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	LastRunAt time.Time `json:"last_run_at"`
	NextRunAt time.Time `json:"next_run_at"`
	Stats     Stats     `json:"stats"`
}

// Store is the session state store. Single writer, many readers.
type Store struct {
	mu    sync.RWMutex
	log   *zap.Logger
	db    storage.Store
	cfg   config.TradingConfig
	now   func() time.Time

	status        Status
	sessionID     string
	startedAt     time.Time
	lastRunAt     time.Time
	nextRunAt     time.Time
	trades        []core.TradeRecord
	logs          []LogMessage
	stats         Stats
	lastReconcile time.Time
}

// NewStore creates an idle session store.
func NewStore(db storage.Store, cfg config.TradingConfig, log *zap.Logger) *Store {
	return &Store{
		log:    log,
		db:     db,
		cfg:    cfg,
		now:    time.Now,
		status: StatusIdle,
	}
}

// Start replaces any prior session with a fresh running one. Callers must
// check the status first if an accidental restart matters to them.
func (s *Store) Start(startingBalance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.status = StatusRunning
	s.sessionID = uuid.NewString()
	s.startedAt = now
	s.lastRunAt = time.Time{}
	s.nextRunAt = now.Add(s.cfg.CycleInterval)
	s.trades = nil
	s.logs = nil
	s.stats = Stats{
		StartedAt:       now,
		StartingBalance: startingBalance,
		CurrentBalance:  startingBalance,
	}

	s.appendLog(fmt.Sprintf("Session %s started with balance $%.2f", s.sessionID, startingBalance))
	s.appendLog(fmt.Sprintf("Next cycle scheduled for %s", s.nextRunAt.Format(time.RFC3339)))
	s.log.Info("session started",
		zap.String("session_id", s.sessionID),
		zap.Float64("starting_balance", startingBalance))
}

// Pause transitions running to paused. Any other status is a no-op and
// returns false.
func (s *Store) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return false
	}
	s.status = StatusPaused
	s.appendLog("Trading paused")
	return true
}

// Resume transitions paused to running and reschedules the next cycle.
// Any other status is a no-op and returns false.
func (s *Store) Resume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPaused {
		return false
	}
	s.status = StatusRunning
	s.nextRunAt = s.now().Add(s.cfg.CycleInterval)
	s.appendLog("Trading resumed")
	return true
}

// Stop transitions to stopped unconditionally.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusStopped
	s.appendLog("Trading stopped")
}

// Reset clears control fields but preserves trade history and stats,
// which remain sourced from persistence.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusIdle
	s.sessionID = ""
	s.startedAt = time.Time{}
	s.lastRunAt = time.Time{}
	s.nextRunAt = time.Time{}
	s.appendLog("Session reset")
}

// FullReset clears everything, including history reconciliation state.
func (s *Store) FullReset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusIdle
	s.sessionID = ""
	s.startedAt = time.Time{}
	s.lastRunAt = time.Time{}
	s.nextRunAt = time.Time{}
	s.trades = nil
	s.logs = nil
	s.stats = Stats{}
	s.lastReconcile = time.Time{}
}

// IsTradeAllowed reports whether a trade attempt may proceed. Running is
// the sole status that permits trading.
func (s *Store) IsTradeAllowed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == StatusRunning
}

// Status returns the current session status.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// UpdateBalance recomputes P&L from a fresh balance reading. A balance
// below the configured minimum trips the circuit breaker: status is forced
// to stopped and false is returned, disallowing further trading this
// cycle.
func (s *Store) UpdateBalance(balance float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.CurrentBalance = balance
	s.stats.ProfitLoss = balance - s.stats.StartingBalance
	if s.stats.StartingBalance > 0 {
		s.stats.ProfitLossPct = s.stats.ProfitLoss / s.stats.StartingBalance * 100
	}

	if balance < s.cfg.MinBalance {
		s.status = StatusStopped
		s.appendLog(fmt.Sprintf("Balance $%.2f below minimum $%.2f, trading stopped", balance, s.cfg.MinBalance))
		s.log.Warn("balance below minimum, stopping session",
			zap.Float64("balance", balance),
			zap.Float64("minimum", s.cfg.MinBalance))
		return false
	}
	return true
}

// RecordTrade prepends a trade to the bounded buffer, updates statistics,
// and advances the run timestamps.
func (s *Store) RecordTrade(rec core.TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append([]core.TradeRecord{rec}, s.trades...)
	if len(s.trades) > maxTrades {
		s.trades = s.trades[:maxTrades]
	}

	s.stats.TotalTrades++
	switch rec.Status {
	case core.TradeFilled:
		s.stats.SuccessfulTrades++
	case core.TradeFailed:
		s.stats.FailedTrades++
	}
	s.stats.TotalVolume += rec.Amount
	s.stats.LastTradeAt = rec.Timestamp
	s.stats.WinRate = winRate(s.stats.SuccessfulTrades, s.stats.TotalTrades)
	s.stats.TodayTrades = countSince(s.trades, localMidnight(s.now()))

	now := s.now()
	s.lastRunAt = now
	s.nextRunAt = now.Add(s.cfg.CycleInterval)

	s.appendLog(fmt.Sprintf("%s %s %s $%.2f @ $%.2f (%s)",
		rec.StrategyName, rec.Action, rec.Symbol, rec.Amount, rec.Price, rec.Status))
}

// AddLog appends a narrative message to the bounded log buffer.
func (s *Store) AddLog(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLog(message)
}

// Snapshot returns the current session state for read endpoints.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Status:    s.status,
		SessionID: s.sessionID,
		StartedAt: s.startedAt,
		LastRunAt: s.lastRunAt,
		NextRunAt: s.nextRunAt,
		Stats:     s.stats,
	}
}

// Stats returns a copy of the current statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// RecentTrades returns up to limit trades, most recent first. A
// non-positive limit returns the whole buffer.
func (s *Store) RecentTrades(limit int) []core.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.trades)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.TradeRecord, n)
	copy(out, s.trades[:n])
	return out
}

// LogMessages returns up to limit log entries, most recent first. A
// non-positive limit returns the whole buffer.
func (s *Store) LogMessages(limit int) []LogMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.logs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]LogMessage, n)
	copy(out, s.logs[:n])
	return out
}

// Reconcile repopulates the trade buffer and statistics from the
// persistence layer's recent auto-trade signals. Calls within the history
// TTL are no-ops; failures are logged and leave the prior state untouched.
func (s *Store) Reconcile(ctx context.Context) {
	s.mu.RLock()
	fresh := s.now().Sub(s.lastReconcile) < s.cfg.HistoryTTL
	s.mu.RUnlock()
	if fresh {
		return
	}

	since := s.now().AddDate(0, 0, -s.cfg.HistoryWindowDays)
	signals, err := s.db.ListAutoTradeSignals(ctx, since)
	if err != nil {
		s.log.Warn("history reconciliation failed, keeping in-memory state", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	midnight := localMidnight(s.now())
	volume := 0.0
	today := 0
	trades := make([]core.TradeRecord, 0, len(signals))
	for _, sig := range signals {
		volume += sig.Notional
		if !sig.CreatedAt.Before(midnight) {
			today++
		}
		trades = append(trades, core.TradeRecord{
			ID:         sig.ID,
			Timestamp:  sig.CreatedAt,
			StrategyID: sig.StrategyID,
			Symbol:     sig.Symbol,
			Action:     sig.Action,
			Amount:     sig.Notional,
			Status:     core.TradeFilled,
			Rationale:  sig.Rationale,
			Confidence: sig.Confidence,
		})
	}
	if len(trades) > maxTrades {
		trades = trades[:maxTrades]
	}
	s.trades = trades

	// Recorded signals count as successful; there is no fill-outcome
	// tracking to say otherwise.
	s.stats.TotalTrades = len(signals)
	s.stats.SuccessfulTrades = len(signals)
	s.stats.FailedTrades = 0
	s.stats.WinRate = winRate(s.stats.SuccessfulTrades, s.stats.TotalTrades)
	s.stats.TotalVolume = volume
	s.stats.TodayTrades = today
	if len(trades) > 0 {
		s.stats.LastTradeAt = trades[0].Timestamp
	}
	s.lastReconcile = s.now()

	s.log.Debug("history reconciled", zap.Int("signals", len(signals)))
}

func (s *Store) appendLog(message string) {
	s.logs = append([]LogMessage{{Timestamp: s.now(), Message: message}}, s.logs...)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[:maxLogs]
	}
}

func winRate(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(successful) / float64(total)
}

func countSince(trades []core.TradeRecord, cutoff time.Time) int {
	count := 0
	for _, t := range trades {
		if !t.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}

func localMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
