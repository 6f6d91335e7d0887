package broker

import (
	"context"

	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/core"
)

// New returns the paper client when credentials are configured, and an
// inert stand-in otherwise so the process can still serve its read
// endpoints.
func New(cfg config.BrokerConfig, logger *zap.Logger) Broker {
	client, err := NewPaperClient(cfg, logger)
	if err != nil {
		return unconfiguredBroker{}
	}
	return client
}

// unconfiguredBroker fails every call with a configuration error.
type unconfiguredBroker struct{}

func (unconfiguredBroker) GetAccountBalance(ctx context.Context) (*Balance, error) {
	return nil, core.ErrBrokerNotConfigured
}

func (unconfiguredBroker) GetPosition(ctx context.Context, symbol string) (*Position, error) {
	return nil, core.ErrBrokerNotConfigured
}

func (unconfiguredBroker) GetLatestQuote(ctx context.Context, symbol string) (float64, error) {
	return 0, core.ErrBrokerNotConfigured
}

func (unconfiguredBroker) PlaceBracketOrder(ctx context.Context, req BracketOrderRequest) (*Order, error) {
	return nil, core.ErrBrokerNotConfigured
}
