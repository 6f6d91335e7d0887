// Package engine orchestrates trading cycles: balance checks, cache
// refresh, per-strategy trade attempts with partial-failure isolation,
// persistence, and session updates.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/broker"
	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/core"
	"github.com/quantpilot/quantpilot/internal/metrics"
	"github.com/quantpilot/quantpilot/internal/momentum"
	"github.com/quantpilot/quantpilot/internal/session"
	"github.com/quantpilot/quantpilot/internal/signal"
	"github.com/quantpilot/quantpilot/internal/storage"
)

// defaultPrice is the last-resort entry price when both the live quote
// and the position mark are unavailable.
const defaultPrice = 100.0

// Result reports the outcome of one cycle.
type Result struct {
	TradesExecuted int      `json:"trades_executed"`
	Errors         []string `json:"errors"`
}

// Engine runs trading cycles. At most one cycle is in flight at a time;
// overlapping triggers are skipped, never queued.
type Engine struct {
	log     *zap.Logger
	cfg     config.TradingConfig
	brk     broker.Broker
	feed    momentum.Feed
	db      storage.Store
	session *session.Store
	gen     *signal.Generator
	metrics *metrics.Registry

	inFlight atomic.Bool
	sleep    func(time.Duration)

	cacheMu      sync.Mutex
	strategies   []core.Strategy
	strategiesAt time.Time
	assets       []core.Asset
	assetsAt     time.Time
}

// New creates an engine. The metrics registry may be nil.
func New(
	cfg config.TradingConfig,
	brk broker.Broker,
	feed momentum.Feed,
	db storage.Store,
	sess *session.Store,
	gen *signal.Generator,
	reg *metrics.Registry,
	log *zap.Logger,
) *Engine {
	return &Engine{
		log:     log,
		cfg:     cfg,
		brk:     brk,
		feed:    feed,
		db:      db,
		session: sess,
		gen:     gen,
		metrics: reg,
		sleep:   time.Sleep,
	}
}

// InFlight reports whether a cycle is currently executing.
func (e *Engine) InFlight() bool {
	return e.inFlight.Load()
}

// ExecuteCycle runs one full trading cycle: one trade attempt per active
// strategy. A cycle already in flight returns core.ErrCycleInFlight
// without executing anything.
func (e *Engine) ExecuteCycle(ctx context.Context) (Result, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		if e.metrics != nil {
			e.metrics.RecordCycleSkipped()
		}
		return Result{}, core.ErrCycleInFlight
	}
	defer e.inFlight.Store(false)

	start := time.Now()
	result := e.runCycle(ctx, 0)
	if e.metrics != nil {
		e.metrics.RecordCycle(time.Since(start).Seconds())
	}
	return result, nil
}

// ExecuteSingle runs the trade pipeline for one randomly chosen active
// strategy. It respects the same in-flight guard as the full cycle.
func (e *Engine) ExecuteSingle(ctx context.Context) (Result, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		if e.metrics != nil {
			e.metrics.RecordCycleSkipped()
		}
		return Result{}, core.ErrCycleInFlight
	}
	defer e.inFlight.Store(false)

	return e.runCycle(ctx, 1), nil
}

// runCycle executes the cycle body. maxStrategies of 0 means all.
func (e *Engine) runCycle(ctx context.Context, maxStrategies int) Result {
	var result Result

	if !e.session.IsTradeAllowed() {
		e.log.Info("session not running, skipping cycle",
			zap.String("status", string(e.session.Status())))
		return result
	}

	if balance, err := e.brk.GetAccountBalance(ctx); err != nil {
		e.log.Warn("balance fetch failed, continuing with last known", zap.Error(err))
	} else {
		if e.metrics != nil {
			e.metrics.SetAccountBalance(balance.Equity)
		}
		if !e.session.UpdateBalance(balance.Equity) {
			e.log.Warn("balance circuit breaker tripped, aborting cycle",
				zap.Float64("equity", balance.Equity))
			return result
		}
	}

	strategies, err := e.activeStrategies(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	assets, err := e.eligibleAssets(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	if len(strategies) == 0 {
		e.log.Info("no active strategies")
		return result
	}

	if maxStrategies == 1 {
		pick := e.pickIndex(len(strategies))
		strategies = strategies[pick : pick+1]
	}

	source := core.SourceAutoTrade
	if maxStrategies == 1 {
		source = core.SourceManual
	}

	for i, strat := range strategies {
		if i > 0 {
			e.sleep(e.cfg.InterTradeDelay)
		}
		if err := e.attemptTrade(ctx, strat, assets, source); err != nil {
			e.log.Error("trade attempt failed",
				zap.String("strategy", strat.Name),
				zap.Error(err))
			if e.metrics != nil {
				e.metrics.RecordTradeError(strat.Name)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", strat.Name, err))
			continue
		}
		result.TradesExecuted++
	}

	if balance, err := e.brk.GetAccountBalance(ctx); err == nil {
		if e.metrics != nil {
			e.metrics.SetAccountBalance(balance.Equity)
		}
		e.session.UpdateBalance(balance.Equity)
	}

	e.log.Info("cycle complete",
		zap.Int("trades_executed", result.TradesExecuted),
		zap.Int("errors", len(result.Errors)))
	return result
}

// attemptTrade runs the full pipeline for one strategy: asset selection,
// signal generation, sizing, order placement, persistence, and session
// recording.
func (e *Engine) attemptTrade(ctx context.Context, strat core.Strategy, assets []core.Asset, source string) error {
	if len(assets) == 0 {
		return core.ErrNoEligibleAsset
	}
	asset := assets[e.pickIndex(len(assets))]

	symbol, err := broker.TranslateSymbol(asset)
	if err != nil {
		return err
	}

	mom, err := e.feed.GetMomentum(ctx, asset.Symbol)
	if err != nil {
		e.log.Debug("momentum fetch failed, using 0",
			zap.String("symbol", asset.Symbol), zap.Error(err))
		mom = 0
	}

	decision := e.gen.Generate(strat, asset, mom)
	if e.metrics != nil {
		e.metrics.RecordSignal(strat.Name, string(decision.Action))
	}

	price := e.resolvePrice(ctx, symbol)
	notional := e.gen.Notional(e.cfg.MinNotional, e.cfg.MaxNotional)
	qty, err := signal.Quantity(notional, price, asset.Class)
	if err != nil {
		return fmt.Errorf("sizing notional $%.2f at price $%.2f: %w", notional, price, err)
	}
	exits := signal.Exits(strat.RiskTier, price)

	// Only buy-side brackets are placed; the attached stop-loss and
	// take-profit encode the eventual exit.
	order, err := e.brk.PlaceBracketOrder(ctx, broker.BracketOrderRequest{
		Symbol:     symbol,
		Quantity:   qty,
		Side:       core.ActionBuy,
		TakeProfit: exits.TakeProfit,
		StopLoss:   exits.StopLoss,
	})
	if err != nil {
		return err
	}

	status := core.TradePending
	if order.Status == broker.OrderStatusFilled {
		status = core.TradeFilled
	}

	sigRec := &core.SignalRecord{
		StrategyID: strat.ID,
		Symbol:     symbol,
		Action:     decision.Action,
		Confidence: decision.Confidence,
		Momentum:   decision.Momentum,
		Notional:   notional,
		Scores:     decision.Scores,
		Source:     source,
		Rationale:  decision.Rationale,
	}
	if err := e.db.SaveSignal(ctx, sigRec); err != nil {
		return err
	}
	if err := e.db.SaveOrder(ctx, &core.OrderRecord{
		SignalID:      sigRec.ID,
		StrategyID:    strat.ID,
		Symbol:        symbol,
		Side:          core.ActionBuy,
		Notional:      notional,
		Quantity:      qty,
		Price:         price,
		StopLoss:      exits.StopLoss,
		TakeProfit:    exits.TakeProfit,
		BrokerOrderID: order.ID,
		Status:        status,
	}); err != nil {
		return err
	}

	e.session.RecordTrade(core.TradeRecord{
		ID:            uuid.NewString(),
		Timestamp:     time.Now(),
		StrategyID:    strat.ID,
		StrategyName:  strat.Name,
		Symbol:        symbol,
		Action:        core.ActionBuy,
		Amount:        notional,
		Price:         price,
		BrokerOrderID: order.ID,
		Status:        status,
		Rationale:     decision.Rationale,
		Confidence:    decision.Confidence,
	})
	if e.metrics != nil {
		e.metrics.RecordTrade(strat.Name, string(status))
	}

	e.log.Info("trade placed",
		zap.String("strategy", strat.Name),
		zap.String("symbol", symbol),
		zap.Float64("notional", notional),
		zap.Float64("qty", qty),
		zap.String("status", string(status)))
	return nil
}

// resolvePrice falls back through live quote, position mark price, and a
// fixed default.
func (e *Engine) resolvePrice(ctx context.Context, symbol string) float64 {
	if price, err := e.brk.GetLatestQuote(ctx, symbol); err == nil && price > 0 {
		return price
	}
	if pos, err := e.brk.GetPosition(ctx, symbol); err == nil && pos != nil && pos.MarkPrice > 0 {
		e.log.Debug("quote unavailable, using position mark",
			zap.String("symbol", symbol), zap.Float64("mark", pos.MarkPrice))
		return pos.MarkPrice
	}
	e.log.Debug("no price available, using default",
		zap.String("symbol", symbol), zap.Float64("default", defaultPrice))
	return defaultPrice
}

// activeStrategies returns the cached strategy list, refreshing it when
// the cache TTL has elapsed. A failed refresh falls back to stale data
// when any exists.
func (e *Engine) activeStrategies(ctx context.Context) ([]core.Strategy, error) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	if time.Since(e.strategiesAt) < e.cfg.CacheTTL {
		return e.strategies, nil
	}
	strategies, err := e.db.ListActiveStrategies(ctx)
	if err != nil {
		if e.strategies != nil {
			e.log.Warn("strategy refresh failed, using stale cache", zap.Error(err))
			return e.strategies, nil
		}
		return nil, err
	}
	e.strategies = strategies
	e.strategiesAt = time.Now()
	return strategies, nil
}

// eligibleAssets returns the cached asset list filtered to instruments
// the brokerage supports, refreshing on the same TTL policy.
func (e *Engine) eligibleAssets(ctx context.Context) ([]core.Asset, error) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	if time.Since(e.assetsAt) < e.cfg.CacheTTL {
		return e.assets, nil
	}
	assets, err := e.db.ListEligibleAssets(ctx)
	if err != nil {
		if e.assets != nil {
			e.log.Warn("asset refresh failed, using stale cache", zap.Error(err))
			return e.assets, nil
		}
		return nil, err
	}
	supported := make([]core.Asset, 0, len(assets))
	for _, a := range assets {
		if broker.Supported(a) {
			supported = append(supported, a)
		}
	}
	e.assets = supported
	e.assetsAt = time.Now()
	return supported, nil
}

// pickIndex selects a uniformly random index in [0, n).
func (e *Engine) pickIndex(n int) int {
	idx := int(e.gen.Rand().Float64() * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}
