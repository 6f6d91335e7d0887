// Package signal turns (strategy, asset, momentum, price) into a trade
// decision with risk-tier exit levels. All functions here are pure apart
// from the injected randomness source.
package signal

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/quantpilot/quantpilot/internal/core"
)

// Rand is the randomness source behind signal generation and sizing.
// Injecting it keeps decision tests deterministic.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

const (
	momentumWeight   = 0.02
	momentumShiftCap = 0.25
	noiseRange       = 0.10
	minBuyProb       = 0.30
	maxBuyProb       = 0.70

	confidenceFloor  = 0.50
	confidenceSpread = 0.30
	trendBonus       = 0.10
	confidenceCap    = 0.95
)

// Decision is the ephemeral outcome of one signal generation run. It is
// recorded for audit via core.SignalRecord but is not domain truth itself.
type Decision struct {
	Action     core.Action
	Confidence float64
	Momentum   float64
	Scores     core.SubScores
	Rationale  string
}

// Generator synthesizes trade decisions from momentum plus bounded noise.
type Generator struct {
	rand Rand
}

// NewGenerator creates a generator backed by the given randomness source.
func NewGenerator(r Rand) *Generator {
	return &Generator{rand: r}
}

// NewDefault creates a generator seeded from the wall clock.
func NewDefault() *Generator {
	return NewGenerator(&lockedRand{src: rand.New(rand.NewSource(time.Now().UnixNano()))})
}

// Rand exposes the generator's randomness source so callers can make
// uniform selections from the same injected stream.
func (g *Generator) Rand() Rand {
	return g.rand
}

// Generate produces a decision for one (strategy, asset) pair. The buy
// probability starts at 50%, shifts by a clamped function of momentum plus
// bounded noise, and is itself clamped so neither side is ever certain.
func (g *Generator) Generate(strategy core.Strategy, asset core.Asset, momentum float64) Decision {
	shift := clamp(momentum*momentumWeight, -momentumShiftCap, momentumShiftCap)
	noise := (g.rand.Float64()*2 - 1) * noiseRange
	buyProb := clamp(0.5+shift+noise, minBuyProb, maxBuyProb)

	action := core.ActionSell
	if g.rand.Float64() < buyProb {
		action = core.ActionBuy
	}

	confidence := confidenceFloor + g.rand.Float64()*confidenceSpread
	trendFollowing := (action == core.ActionBuy && momentum > 0) ||
		(action == core.ActionSell && momentum < 0)
	if trendFollowing {
		confidence += trendBonus
	}
	confidence = clamp(confidence, 0, confidenceCap)

	return Decision{
		Action:     action,
		Confidence: confidence,
		Momentum:   momentum,
		Scores:     g.subScores(momentum),
		Rationale: fmt.Sprintf("%s selected %s %s (momentum %+.2f%%, buy probability %.0f%%, confidence %.0f%%)",
			strategy.Name, action, asset.Symbol, momentum, buyProb*100, confidence*100),
	}
}

// Notional returns a uniformly random trade amount within [min, max].
func (g *Generator) Notional(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + g.rand.Float64()*(max-min)
}

// subScores derives explanatory telemetry from momentum plus independent
// randomness. The decision is already made when these are computed.
func (g *Generator) subScores(momentum float64) core.SubScores {
	trend := clamp(0.5+momentum*0.05+g.jitter(0.10), 0, 1)
	return core.SubScores{
		Sentiment:   clamp(0.5+momentum*0.02+g.jitter(0.15), 0, 1),
		Trend:       trend,
		Fundamental: clamp(0.5+g.jitter(0.20), 0, 1),
		Liquidity:   clamp(0.7+g.jitter(0.20), 0, 1),
		Volatility:  clamp(0.5+abs(momentum)*0.03+g.jitter(0.15), 0, 1),
		Macro:       clamp(0.5+g.jitter(0.20), 0, 1),
	}
}

func (g *Generator) jitter(span float64) float64 {
	return (g.rand.Float64()*2 - 1) * span
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// lockedRand makes the default math/rand source safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}
