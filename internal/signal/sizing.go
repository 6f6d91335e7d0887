package signal

import (
	"github.com/shopspring/decimal"

	"github.com/quantpilot/quantpilot/internal/core"
)

// ExitLevels are the bracket exit prices derived from a risk tier.
type ExitLevels struct {
	StopLoss   float64
	TakeProfit float64
}

// tierExits maps each risk tier to a (stop-loss %, take-profit %) pair.
// Each pair preserves roughly a 1:2 risk/reward ratio.
var tierExits = map[core.RiskTier]struct{ stop, take float64 }{
	core.RiskLow:     {3, 6},
	core.RiskMedium:  {5, 10},
	core.RiskHigh:    {8, 20},
	core.RiskDefault: {5, 10},
}

// Exits computes bracket exit prices for an entry price under a risk tier.
// Unknown tiers fall back to the default pair. Prices are rounded to 2
// decimals.
func Exits(tier core.RiskTier, entryPrice float64) ExitLevels {
	pair, ok := tierExits[tier]
	if !ok {
		pair = tierExits[core.RiskDefault]
	}
	entry := decimal.NewFromFloat(entryPrice)
	stop := entry.Mul(decimal.NewFromFloat(1 - pair.stop/100)).Round(2)
	take := entry.Mul(decimal.NewFromFloat(1 + pair.take/100)).Round(2)
	return ExitLevels{
		StopLoss:   stop.InexactFloat64(),
		TakeProfit: take.InexactFloat64(),
	}
}

// Quantity converts a notional amount into an order quantity at the given
// price. Equities trade in whole units; crypto is truncated to 8 decimal
// places. A non-positive result means the price is too high for the
// notional and the trade must be skipped, not retried larger.
func Quantity(notional, price float64, class core.AssetClass) (float64, error) {
	if price <= 0 {
		return 0, core.ErrQuantityTooSmall
	}
	qty := decimal.NewFromFloat(notional).Div(decimal.NewFromFloat(price))
	switch class {
	case core.AssetCrypto:
		qty = qty.Truncate(8)
	default:
		qty = qty.Truncate(0)
	}
	value := qty.InexactFloat64()
	if value <= 0 {
		return 0, core.ErrQuantityTooSmall
	}
	return value, nil
}
