package signal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantpilot/quantpilot/internal/core"
)

// seqRand replays a fixed sequence of draws, wrapping around at the end.
type seqRand struct {
	vals []float64
	i    int
}

func (s *seqRand) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

var (
	testStrategy = core.Strategy{ID: "s1", Name: "Alpha Momentum", RiskTier: core.RiskMedium, Active: true}
	testAsset    = core.Asset{ID: "a1", Symbol: "AAPL", Class: core.AssetStock, Active: true}
)

func TestGenerateBuyWithTrendBonus(t *testing.T) {
	// noise, action draw, confidence, then six sub-score jitters
	g := NewGenerator(&seqRand{vals: []float64{0.5, 0.1, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}})

	d := g.Generate(testStrategy, testAsset, 10)

	assert.Equal(t, core.ActionBuy, d.Action)
	assert.InDelta(t, 0.75, d.Confidence, 1e-9)
	assert.InDelta(t, 10, d.Momentum, 1e-9)
	assert.Contains(t, d.Rationale, "Alpha Momentum")
	assert.Contains(t, d.Rationale, "BUY AAPL")
}

func TestGenerateSellWithTrendBonus(t *testing.T) {
	g := NewGenerator(&seqRand{vals: []float64{0.5, 0.9, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}})

	d := g.Generate(testStrategy, testAsset, -10)

	assert.Equal(t, core.ActionSell, d.Action)
	assert.InDelta(t, 0.75, d.Confidence, 1e-9)
}

func TestGenerateNoBonusAgainstTrend(t *testing.T) {
	// momentum positive but the draw lands on SELL
	g := NewGenerator(&seqRand{vals: []float64{0.5, 0.9, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}})

	d := g.Generate(testStrategy, testAsset, 10)

	assert.Equal(t, core.ActionSell, d.Action)
	assert.InDelta(t, 0.65, d.Confidence, 1e-9)
}

func TestGenerateBuyProbabilityClamped(t *testing.T) {
	tests := []struct {
		name     string
		momentum float64
		noise    float64
		want     string
	}{
		{"extreme positive momentum", 1000, 1.0, "buy probability 70%"},
		{"extreme negative momentum", -1000, 0.0, "buy probability 30%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(&seqRand{vals: []float64{tt.noise, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}})
			d := g.Generate(testStrategy, testAsset, tt.momentum)
			assert.True(t, strings.Contains(d.Rationale, tt.want), "rationale: %s", d.Rationale)
		})
	}
}

func TestGenerateConfidenceCapped(t *testing.T) {
	// max confidence draw plus trend bonus must not exceed the cap
	g := NewGenerator(&seqRand{vals: []float64{0.5, 0.1, 0.999999, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}})

	d := g.Generate(testStrategy, testAsset, 10)

	assert.Equal(t, core.ActionBuy, d.Action)
	assert.LessOrEqual(t, d.Confidence, 0.95)
}

func TestGenerateSubScoresBounded(t *testing.T) {
	g := NewGenerator(&seqRand{vals: []float64{0.99, 0.01, 0.37, 0.81, 0.12, 0.66, 0.5, 0.93, 0.28}})

	d := g.Generate(testStrategy, testAsset, 42)

	for name, score := range map[string]float64{
		"sentiment":   d.Scores.Sentiment,
		"trend":       d.Scores.Trend,
		"fundamental": d.Scores.Fundamental,
		"liquidity":   d.Scores.Liquidity,
		"volatility":  d.Scores.Volatility,
		"macro":       d.Scores.Macro,
	} {
		assert.GreaterOrEqual(t, score, 0.0, name)
		assert.LessOrEqual(t, score, 1.0, name)
	}
}

func TestNotional(t *testing.T) {
	g := NewGenerator(&seqRand{vals: []float64{0.0, 0.5, 0.999}})

	assert.InDelta(t, 100, g.Notional(100, 500), 1e-9)
	assert.InDelta(t, 300, g.Notional(100, 500), 1e-9)
	assert.InDelta(t, 499.6, g.Notional(100, 500), 0.01)
}

func TestNotionalDegenerateBand(t *testing.T) {
	g := NewGenerator(&seqRand{vals: []float64{0.5}})

	assert.InDelta(t, 250, g.Notional(250, 250), 1e-9)
	assert.InDelta(t, 250, g.Notional(250, 100), 1e-9)
}
