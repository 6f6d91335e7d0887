package signal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpilot/quantpilot/internal/core"
)

func TestExits(t *testing.T) {
	tests := []struct {
		name     string
		tier     core.RiskTier
		entry    float64
		wantStop float64
		wantTake float64
	}{
		{"medium tier", core.RiskMedium, 100, 95.00, 110.00},
		{"low tier", core.RiskLow, 100, 97.00, 106.00},
		{"high tier", core.RiskHigh, 100, 92.00, 120.00},
		{"default tier", core.RiskDefault, 100, 95.00, 110.00},
		{"unknown tier falls back to default", core.RiskTier("aggressive"), 100, 95.00, 110.00},
		{"fractional entry rounds to cents", core.RiskMedium, 123.456, 117.28, 135.80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Exits(tt.tier, tt.entry)
			assert.InDelta(t, tt.wantStop, got.StopLoss, 1e-9)
			assert.InDelta(t, tt.wantTake, got.TakeProfit, 1e-9)
		})
	}
}

func TestQuantityEquity(t *testing.T) {
	qty, err := Quantity(450, 200, core.AssetStock)
	require.NoError(t, err)
	assert.InDelta(t, 2, qty, 1e-9)
}

func TestQuantityEquityTooExpensive(t *testing.T) {
	_, err := Quantity(250, 300, core.AssetStock)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrQuantityTooSmall))
}

func TestQuantityCrypto(t *testing.T) {
	qty, err := Quantity(100, 30000, core.AssetCrypto)
	require.NoError(t, err)
	assert.InDelta(t, 0.00333333, qty, 1e-9)
}

func TestQuantityInvalidPrice(t *testing.T) {
	for _, price := range []float64{0, -5} {
		_, err := Quantity(100, price, core.AssetStock)
		assert.True(t, errors.Is(err, core.ErrQuantityTooSmall))
	}
}
