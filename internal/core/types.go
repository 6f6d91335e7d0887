package core

import "time"

// AssetClass represents the class of a tradeable asset.
type AssetClass string

const (
	AssetStock  AssetClass = "stock"
	AssetCrypto AssetClass = "crypto"
)

// RiskTier categorizes a strategy's appetite for drawdown. Each tier maps
// to a fixed stop-loss / take-profit pair (see the signal package).
type RiskTier string

const (
	RiskLow     RiskTier = "low"
	RiskMedium  RiskTier = "medium"
	RiskHigh    RiskTier = "high"
	RiskDefault RiskTier = "default"
)

// Action represents a trading signal action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// TradeStatus represents the lifecycle status of an attempted trade.
// Status is set optimistically at placement time from the broker's
// immediate response; there is no asynchronous fill tracking.
type TradeStatus string

const (
	TradePending TradeStatus = "pending"
	TradeFilled  TradeStatus = "filled"
	TradeFailed  TradeStatus = "failed"
)

// Strategy is a configured trading strategy. Read-only to the engine;
// strategies are managed out of band and stay immutable during a cycle.
type Strategy struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	RiskTier RiskTier `json:"risk_tier"`
	Active   bool     `json:"active"`
}

// Asset is a tradeable instrument. Crypto symbols are stored in exchange
// notation (e.g. BTCUSDT) and translated to broker pair notation before
// any order is placed.
type Asset struct {
	ID     string     `json:"id"`
	Symbol string     `json:"symbol"`
	Class  AssetClass `json:"class"`
	Active bool       `json:"active"`
}

// SubScores are explanatory telemetry attached to a signal. They are
// derived after the decision is made and never feed back into it.
type SubScores struct {
	Sentiment   float64 `json:"sentiment"`
	Trend       float64 `json:"trend"`
	Fundamental float64 `json:"fundamental"`
	Liquidity   float64 `json:"liquidity"`
	Volatility  float64 `json:"volatility"`
	Macro       float64 `json:"macro"`
}

// Signal sources distinguish the unattended engine's decisions from
// operator-triggered single executions.
const (
	SourceAutoTrade = "auto_trade"
	SourceManual    = "manual"
)

// SignalRecord is the audit record of one synthesized trade decision.
type SignalRecord struct {
	ID         string    `json:"id"`
	StrategyID string    `json:"strategy_id"`
	Symbol     string    `json:"symbol"`
	Action     Action    `json:"action"`
	Confidence float64   `json:"confidence"`
	Momentum   float64   `json:"momentum"`
	Notional   float64   `json:"notional"`
	Scores     SubScores `json:"scores"`
	Source     string    `json:"source"`
	Rationale  string    `json:"rationale"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderRecord is the persisted record of one broker order placement.
type OrderRecord struct {
	ID            string      `json:"id"`
	SignalID      string      `json:"signal_id"`
	StrategyID    string      `json:"strategy_id"`
	Symbol        string      `json:"symbol"`
	Side          Action      `json:"side"`
	Notional      float64     `json:"notional"`
	Quantity      float64     `json:"quantity"`
	Price         float64     `json:"price"`
	StopLoss      float64     `json:"stop_loss"`
	TakeProfit    float64     `json:"take_profit"`
	BrokerOrderID string      `json:"broker_order_id"`
	Status        TradeStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

// TradeRecord is the session-facing view of one attempted trade, kept in
// the session's bounded ring buffer and served to the dashboard.
type TradeRecord struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	StrategyID    string      `json:"strategy_id"`
	StrategyName  string      `json:"strategy_name"`
	Symbol        string      `json:"symbol"`
	Action        Action      `json:"action"`
	Amount        float64     `json:"amount"`
	Price         float64     `json:"price"`
	BrokerOrderID string      `json:"broker_order_id"`
	Status        TradeStatus `json:"status"`
	Rationale     string      `json:"rationale"`
	Confidence    float64     `json:"confidence"`
}
