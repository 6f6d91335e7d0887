// Package momentum provides the price/momentum feed client. The feed is
// best-effort: callers treat any failure as zero momentum.
package momentum

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/core"
)

// Feed supplies a short-term price-change percentage per symbol.
type Feed interface {
	// GetMomentum returns the momentum percentage for a symbol.
	GetMomentum(ctx context.Context, symbol string) (float64, error)
}

// Client is a Feed backed by a REST momentum endpoint.
type Client struct {
	client *resty.Client
}

// NewClient creates a momentum feed client from config.
func NewClient(cfg config.MomentumConfig) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		client.SetQueryParam("token", cfg.APIKey)
	}
	return &Client{client: client}
}

type momentumResponse struct {
	Symbol   string  `json:"symbol"`
	Momentum float64 `json:"momentum"`
}

// GetMomentum returns the momentum percentage for a symbol.
func (c *Client) GetMomentum(ctx context.Context, symbol string) (float64, error) {
	var result momentumResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		SetQueryParam("symbol", symbol).
		Get("/v1/momentum")
	if err != nil {
		return 0, core.WrapError(core.ErrBrokerFailed, err)
	}
	if resp.IsError() {
		return 0, core.WrapError(core.ErrBrokerFailed, fmt.Errorf("momentum request: %s", resp.Status()))
	}
	return result.Momentum, nil
}
