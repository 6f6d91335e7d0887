// Package stats builds the dashboard's read-side views by combining live
// brokerage data, session state, and persisted signal history. It holds
// no state of its own.
package stats

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/broker"
	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/core"
	"github.com/quantpilot/quantpilot/internal/session"
	"github.com/quantpilot/quantpilot/internal/storage"
)

// dailyWindowDays is the trailing window of the per-day breakdown.
const dailyWindowDays = 7

// StrategyPerformance aggregates persisted signals for one strategy.
// A "win" is simply a recorded signal; there is no fill-outcome tracking.
type StrategyPerformance struct {
	StrategyID    string  `json:"strategy_id"`
	Trades        int     `json:"trades"`
	Volume        float64 `json:"volume"`
	AvgConfidence float64 `json:"avg_confidence"`
	WinRate       float64 `json:"win_rate"`
}

// DailyPerformance aggregates signals for one calendar day.
type DailyPerformance struct {
	Date   string  `json:"date"`
	Trades int     `json:"trades"`
	Volume float64 `json:"volume"`
}

// Overview is the combined dashboard view.
type Overview struct {
	Session      session.State         `json:"session"`
	Balance      broker.Balance        `json:"balance"`
	LiveBalance  bool                  `json:"live_balance"`
	Strategies   []StrategyPerformance `json:"strategies"`
	Daily        []DailyPerformance    `json:"daily"`
	RecentTrades []core.TradeRecord    `json:"recent_trades"`
}

// QuickSummary is the lightweight subset served to high-frequency
// pollers.
type QuickSummary struct {
	Status         session.Status `json:"status"`
	CurrentBalance float64        `json:"current_balance"`
	TotalTrades    int            `json:"total_trades"`
	TodayTrades    int            `json:"today_trades"`
	WinRate        float64        `json:"win_rate"`
	ProfitLoss     float64        `json:"profit_loss"`
	ProfitLossPct  float64        `json:"profit_loss_pct"`
	LastTradeAt    time.Time      `json:"last_trade_at"`
}

// Aggregator computes read-side views on demand.
type Aggregator struct {
	log     *zap.Logger
	cfg     config.TradingConfig
	brk     broker.Broker
	db      storage.Store
	session *session.Store
	now     func() time.Time
}

// New creates an aggregator.
func New(cfg config.TradingConfig, brk broker.Broker, db storage.Store, sess *session.Store, log *zap.Logger) *Aggregator {
	return &Aggregator{
		log:     log,
		cfg:     cfg,
		brk:     brk,
		db:      db,
		session: sess,
		now:     time.Now,
	}
}

// Overview builds the full dashboard view. Every input degrades
// gracefully: a dead brokerage falls back to last-known session balances
// and a failed history read yields empty aggregates.
func (a *Aggregator) Overview(ctx context.Context) Overview {
	a.session.Reconcile(ctx)
	snap := a.session.Snapshot()

	balance, live := a.balance(ctx, snap.Stats)
	view := Overview{
		Session:      snap,
		Balance:      balance,
		LiveBalance:  live,
		RecentTrades: a.session.RecentTrades(0),
	}

	since := a.now().AddDate(0, 0, -a.cfg.HistoryWindowDays)
	signals, err := a.db.ListAutoTradeSignals(ctx, since)
	if err != nil {
		a.log.Warn("signal history unavailable for aggregation", zap.Error(err))
		return view
	}
	view.Strategies = aggregateByStrategy(signals)
	view.Daily = aggregateByDay(signals, a.now())
	return view
}

// QuickSummary returns the polling subset from session state alone.
func (a *Aggregator) QuickSummary(ctx context.Context) QuickSummary {
	a.session.Reconcile(ctx)
	snap := a.session.Snapshot()

	summary := QuickSummary{
		Status:         snap.Status,
		CurrentBalance: snap.Stats.CurrentBalance,
		TotalTrades:    snap.Stats.TotalTrades,
		TodayTrades:    snap.Stats.TodayTrades,
		WinRate:        snap.Stats.WinRate,
		ProfitLoss:     snap.Stats.ProfitLoss,
		ProfitLossPct:  snap.Stats.ProfitLossPct,
		LastTradeAt:    snap.Stats.LastTradeAt,
	}
	if balance, err := a.brk.GetAccountBalance(ctx); err == nil {
		summary.CurrentBalance = balance.Equity
	}
	return summary
}

// balance returns the live brokerage balance, or the last-known session
// values when the brokerage is unreachable.
func (a *Aggregator) balance(ctx context.Context, stats session.Stats) (broker.Balance, bool) {
	balance, err := a.brk.GetAccountBalance(ctx)
	if err != nil {
		a.log.Debug("live balance unavailable, using session values", zap.Error(err))
		return broker.Balance{Equity: stats.CurrentBalance, Currency: "USD"}, false
	}
	return *balance, true
}

func aggregateByStrategy(signals []core.SignalRecord) []StrategyPerformance {
	byStrategy := make(map[string]*StrategyPerformance)
	confidence := make(map[string]float64)
	for _, sig := range signals {
		agg, ok := byStrategy[sig.StrategyID]
		if !ok {
			agg = &StrategyPerformance{StrategyID: sig.StrategyID}
			byStrategy[sig.StrategyID] = agg
		}
		agg.Trades++
		agg.Volume += sig.Notional
		confidence[sig.StrategyID] += sig.Confidence
	}

	result := make([]StrategyPerformance, 0, len(byStrategy))
	for id, agg := range byStrategy {
		agg.AvgConfidence = confidence[id] / float64(agg.Trades)
		agg.WinRate = 1 // recorded == won
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StrategyID < result[j].StrategyID })
	return result
}

func aggregateByDay(signals []core.SignalRecord, now time.Time) []DailyPerformance {
	cutoff := now.AddDate(0, 0, -dailyWindowDays)
	byDay := make(map[string]*DailyPerformance)
	for _, sig := range signals {
		if sig.CreatedAt.Before(cutoff) {
			continue
		}
		day := sig.CreatedAt.Local().Format("2006-01-02")
		agg, ok := byDay[day]
		if !ok {
			agg = &DailyPerformance{Date: day}
			byDay[day] = agg
		}
		agg.Trades++
		agg.Volume += sig.Notional
	}

	result := make([]DailyPerformance, 0, len(byDay))
	for _, agg := range byDay {
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date > result[j].Date })
	return result
}
