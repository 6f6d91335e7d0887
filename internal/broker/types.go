// Package broker provides the brokerage abstraction used by the
// auto-trading engine and its paper-trading REST implementation.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/quantpilot/quantpilot/internal/core"
)

// Broker-specific errors.
var (
	// ErrNotConfigured indicates the broker client has no credentials.
	ErrNotConfigured = errors.New("broker: not configured")
	// ErrInvalidSymbol indicates an invalid or empty symbol.
	ErrInvalidSymbol = errors.New("broker: invalid symbol")
	// ErrInvalidQuantity indicates a non-positive order quantity.
	ErrInvalidQuantity = errors.New("broker: invalid quantity")
	// ErrInvalidExitLevels indicates missing or inverted bracket exits.
	ErrInvalidExitLevels = errors.New("broker: invalid bracket exit levels")
	// ErrOrderRejected indicates the broker rejected the order.
	ErrOrderRejected = errors.New("broker: order rejected")
)

// Balance represents the account's buying capacity.
type Balance struct {
	// Equity is the total account value including open positions.
	Equity float64 `json:"equity"`
	// BuyingPower is the amount available for new orders.
	BuyingPower float64 `json:"buying_power"`
	// Cash is the settled cash balance.
	Cash float64 `json:"cash"`
	// Currency is the account's base currency.
	Currency string `json:"currency"`
}

// Position represents an open position at the broker.
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"qty"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	MarkPrice     float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPL  float64 `json:"unrealized_pl"`
}

// OrderStatus is the broker-reported status of an order.
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "new"
	OrderStatusAccepted OrderStatus = "accepted"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusRejected OrderStatus = "rejected"
)

// Order is the broker's immediate response to an order placement.
type Order struct {
	ID             string      `json:"id"`
	Symbol         string      `json:"symbol"`
	Side           core.Action `json:"side"`
	Quantity       float64     `json:"qty"`
	Status         OrderStatus `json:"status"`
	FilledAvgPrice float64     `json:"filled_avg_price"`
	CreatedAt      time.Time   `json:"created_at"`
}

// BracketOrderRequest bundles an entry order with an attached stop-loss
// and take-profit; whichever exit triggers first cancels the other.
type BracketOrderRequest struct {
	Symbol     string      `json:"symbol"`
	Quantity   float64     `json:"qty"`
	Side       core.Action `json:"side"`
	TakeProfit float64     `json:"take_profit"`
	StopLoss   float64     `json:"stop_loss"`
}

// Validate checks the request for fields the broker would reject.
func (r BracketOrderRequest) Validate() error {
	if r.Symbol == "" {
		return ErrInvalidSymbol
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if r.StopLoss <= 0 || r.TakeProfit <= r.StopLoss {
		return ErrInvalidExitLevels
	}
	return nil
}

// Broker is the brokerage contract consumed by the engine. Fill timing
// and rejection semantics belong to the collaborator; the engine only
// observes the immediate placement response.
type Broker interface {
	// GetAccountBalance returns the account's current balances.
	GetAccountBalance(ctx context.Context) (*Balance, error)

	// GetPosition returns the open position for a symbol, or (nil, nil)
	// when there is none.
	GetPosition(ctx context.Context, symbol string) (*Position, error)

	// GetLatestQuote returns the most recent trade price for a symbol.
	GetLatestQuote(ctx context.Context, symbol string) (float64, error)

	// PlaceBracketOrder places an entry order with attached exits.
	PlaceBracketOrder(ctx context.Context, req BracketOrderRequest) (*Order, error)
}
