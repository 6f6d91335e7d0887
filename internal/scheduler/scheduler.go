// Package scheduler drives the engine on fixed intervals and keeps the
// session's narrative log lively between cycles.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/broker"
	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/core"
	"github.com/quantpilot/quantpilot/internal/engine"
	"github.com/quantpilot/quantpilot/internal/session"
)

var heartbeatMessages = []string{
	"Monitoring markets for the next cycle",
	"All systems nominal, strategies standing by",
	"Watching price action, no cycle due yet",
	"Portfolio checks complete, awaiting next run",
}

var marketMessages = []string{
	"Market is open, tracking intraday movement",
	"Scanning exchange activity during trading hours",
	"Live session in progress, order books active",
}

// Scheduler owns the cycle timer, the narrative timers, and the
// bootstrap auto-start sequence.
type Scheduler struct {
	log     *zap.Logger
	cfg     config.TradingConfig
	engine  *engine.Engine
	session *session.Store
	brk     broker.Broker

	sleep func(time.Duration)
	nowFn func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New creates a scheduler.
func New(cfg config.TradingConfig, eng *engine.Engine, sess *session.Store, brk broker.Broker, log *zap.Logger) *Scheduler {
	return &Scheduler{
		log:     log,
		cfg:     cfg,
		engine:  eng,
		session: sess,
		brk:     brk,
		sleep:   time.Sleep,
		nowFn:   time.Now,
		stop:    make(chan struct{}),
	}
}

// Bootstrap attempts to auto-start the session using the live balance,
// retrying a bounded number of times. Exhausted retries leave the
// session idle; the process keeps running either way.
func (s *Scheduler) Bootstrap(ctx context.Context) {
	for attempt := 1; attempt <= s.cfg.AutoStartRetries; attempt++ {
		balance, err := s.brk.GetAccountBalance(ctx)
		if err == nil {
			s.session.Start(balance.Equity)
			s.log.Info("auto-start succeeded",
				zap.Int("attempt", attempt),
				zap.Float64("equity", balance.Equity))
			return
		}

		s.log.Warn("auto-start attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.cfg.AutoStartRetries),
			zap.Error(err))
		if attempt < s.cfg.AutoStartRetries {
			s.sleep(s.cfg.AutoStartDelay)
		}
	}

	s.session.AddLog(fmt.Sprintf("Auto-start gave up after %d attempts, session idle", s.cfg.AutoStartRetries))
	s.log.Error("auto-start exhausted retries, session left idle",
		zap.Int("attempts", s.cfg.AutoStartRetries))
}

// Start launches the timer loop in the background.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop halts the timers and waits for the loop to exit. A cycle already
// in flight finishes on its own.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	cycle := time.NewTicker(s.cfg.CycleInterval)
	defer cycle.Stop()
	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	market := time.NewTicker(s.cfg.NarrativeInterval)
	defer market.Stop()

	for {
		select {
		case <-cycle.C:
			s.runCycle(ctx)
		case <-heartbeat.C:
			s.heartbeat()
		case <-market.C:
			s.marketNarrative()
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCycle invokes the engine; a tick landing while a cycle is in
// flight is skipped entirely, never queued.
func (s *Scheduler) runCycle(ctx context.Context) {
	result, err := s.engine.ExecuteCycle(ctx)
	if err != nil {
		if errors.Is(err, core.ErrCycleInFlight) {
			s.log.Info("cycle tick skipped, previous cycle still running")
			return
		}
		s.log.Error("scheduled cycle failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled cycle finished",
		zap.Int("trades_executed", result.TradesExecuted),
		zap.Int("errors", len(result.Errors)))
}

// heartbeat appends a low-stakes narrative message while trading is
// active. It performs no trading action and never touches the engine's
// in-flight state.
func (s *Scheduler) heartbeat() {
	if !s.session.IsTradeAllowed() {
		return
	}
	s.session.AddLog(heartbeatMessages[rand.Intn(len(heartbeatMessages))])
}

// marketNarrative appends a message only during exchange hours.
func (s *Scheduler) marketNarrative() {
	if !s.session.IsTradeAllowed() || !marketOpen(s.nowFn()) {
		return
	}
	s.session.AddLog(marketMessages[rand.Intn(len(marketMessages))])
}

// marketOpen reports whether the NYSE regular session is open at t:
// weekdays 9:30 to 16:00 Eastern.
func marketOpen(t time.Time) bool {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return false
	}
	local := t.In(loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
