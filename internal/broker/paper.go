package broker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/core"
	"go.uber.org/zap"
)

// PaperClient is a Broker backed by a paper-trading brokerage REST API.
type PaperClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewPaperClient creates a paper brokerage client from config.
func NewPaperClient(cfg config.BrokerConfig, logger *zap.Logger) (*PaperClient, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("APCA-API-KEY-ID", cfg.APIKey)
	client.SetHeader("APCA-API-SECRET-KEY", cfg.APISecret)

	return &PaperClient{
		client: client,
		logger: logger,
	}, nil
}

// accountResponse mirrors the brokerage account payload; numeric fields
// arrive as strings.
type accountResponse struct {
	Equity      string `json:"equity"`
	BuyingPower string `json:"buying_power"`
	Cash        string `json:"cash"`
	Currency    string `json:"currency"`
}

// GetAccountBalance returns the account's current balances.
func (c *PaperClient) GetAccountBalance(ctx context.Context) (*Balance, error) {
	var acct accountResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&acct).
		Get("/v2/account")
	if err != nil {
		return nil, core.WrapError(core.ErrBrokerFailed, err)
	}
	if resp.IsError() {
		return nil, core.WrapError(core.ErrBrokerFailed, fmt.Errorf("account request: %s", resp.Status()))
	}

	equity, err := strconv.ParseFloat(acct.Equity, 64)
	if err != nil {
		return nil, core.WrapError(core.ErrBrokerFailed, fmt.Errorf("parsing equity %q: %w", acct.Equity, err))
	}
	buyingPower, _ := strconv.ParseFloat(acct.BuyingPower, 64)
	cash, _ := strconv.ParseFloat(acct.Cash, 64)

	return &Balance{
		Equity:      equity,
		BuyingPower: buyingPower,
		Cash:        cash,
		Currency:    acct.Currency,
	}, nil
}

type positionResponse struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
	MarketValue   string `json:"market_value"`
	UnrealizedPL  string `json:"unrealized_pl"`
}

// GetPosition returns the open position for a symbol, or (nil, nil) when
// the broker reports none.
func (c *PaperClient) GetPosition(ctx context.Context, symbol string) (*Position, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}

	var pos positionResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&pos).
		SetPathParam("symbol", symbol).
		Get("/v2/positions/{symbol}")
	if err != nil {
		return nil, core.WrapError(core.ErrBrokerFailed, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, core.WrapError(core.ErrBrokerFailed, fmt.Errorf("position request: %s", resp.Status()))
	}

	qty, _ := strconv.ParseFloat(pos.Qty, 64)
	entry, _ := strconv.ParseFloat(pos.AvgEntryPrice, 64)
	mark, _ := strconv.ParseFloat(pos.CurrentPrice, 64)
	value, _ := strconv.ParseFloat(pos.MarketValue, 64)
	pl, _ := strconv.ParseFloat(pos.UnrealizedPL, 64)

	return &Position{
		Symbol:        pos.Symbol,
		Quantity:      qty,
		AvgEntryPrice: entry,
		MarkPrice:     mark,
		MarketValue:   value,
		UnrealizedPL:  pl,
	}, nil
}

type quoteResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// GetLatestQuote returns the most recent trade price for a symbol.
func (c *PaperClient) GetLatestQuote(ctx context.Context, symbol string) (float64, error) {
	if symbol == "" {
		return 0, ErrInvalidSymbol
	}

	var quote quoteResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&quote).
		SetQueryParam("symbol", symbol).
		Get("/v2/quotes/latest")
	if err != nil {
		return 0, core.WrapError(core.ErrBrokerFailed, err)
	}
	if resp.IsError() || quote.Price <= 0 {
		return 0, core.ErrQuoteUnavailable
	}
	return quote.Price, nil
}

// bracketOrderBody is the wire shape of a bracket order placement.
type bracketOrderBody struct {
	Symbol      string  `json:"symbol"`
	Qty         string  `json:"qty"`
	Side        string  `json:"side"`
	Type        string  `json:"type"`
	TimeInForce string  `json:"time_in_force"`
	OrderClass  string  `json:"order_class"`
	TakeProfit  goalLeg `json:"take_profit"`
	StopLoss    stopLeg `json:"stop_loss"`
}

type goalLeg struct {
	LimitPrice string `json:"limit_price"`
}

type stopLeg struct {
	StopPrice string `json:"stop_price"`
}

type orderResponse struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	Qty            string `json:"qty"`
	Status         string `json:"status"`
	FilledAvgPrice string `json:"filled_avg_price"`
	CreatedAt      string `json:"created_at"`
}

// PlaceBracketOrder places a market entry with attached stop-loss and
// take-profit legs.
func (c *PaperClient) PlaceBracketOrder(ctx context.Context, req BracketOrderRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := bracketOrderBody{
		Symbol:      req.Symbol,
		Qty:         strconv.FormatFloat(req.Quantity, 'f', -1, 64),
		Side:        string(req.Side),
		Type:        "market",
		TimeInForce: "gtc",
		OrderClass:  "bracket",
		TakeProfit:  goalLeg{LimitPrice: strconv.FormatFloat(req.TakeProfit, 'f', 2, 64)},
		StopLoss:    stopLeg{StopPrice: strconv.FormatFloat(req.StopLoss, 'f', 2, 64)},
	}

	var order orderResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&order).
		Post("/v2/orders")
	if err != nil {
		return nil, core.WrapError(core.ErrOrderFailed, err)
	}
	if resp.IsError() {
		return nil, core.WrapError(core.ErrOrderFailed,
			fmt.Errorf("%w: %s: %s", ErrOrderRejected, resp.Status(), resp.String()))
	}

	c.logger.Info("bracket order placed",
		zap.String("symbol", req.Symbol),
		zap.Float64("qty", req.Quantity),
		zap.Float64("stop_loss", req.StopLoss),
		zap.Float64("take_profit", req.TakeProfit),
		zap.String("order_id", order.ID),
	)

	filled, _ := strconv.ParseFloat(order.FilledAvgPrice, 64)
	qty, _ := strconv.ParseFloat(order.Qty, 64)
	created, _ := time.Parse(time.RFC3339, order.CreatedAt)

	return &Order{
		ID:             order.ID,
		Symbol:         order.Symbol,
		Side:           core.Action(order.Side),
		Quantity:       qty,
		Status:         OrderStatus(order.Status),
		FilledAvgPrice: filled,
		CreatedAt:      created,
	}, nil
}
