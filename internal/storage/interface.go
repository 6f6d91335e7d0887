// Package storage persists strategies, assets, signals, and orders. Two
// backends exist: an in-memory store for tests and ephemeral runs, and a
// BadgerDB store for durable single-node deployments.
package storage

import (
	"context"
	"time"

	"github.com/quantpilot/quantpilot/internal/core"
)

// Store defines the persistence operations the engine depends on.
type Store interface {
	// ListActiveStrategies returns all strategies with the active flag set.
	ListActiveStrategies(ctx context.Context) ([]core.Strategy, error)

	// ListEligibleAssets returns all assets with the active flag set.
	// Brokerage support filtering is the caller's concern.
	ListEligibleAssets(ctx context.Context) ([]core.Asset, error)

	// SaveStrategy inserts or replaces a strategy by ID.
	SaveStrategy(ctx context.Context, strategy core.Strategy) error

	// SaveAsset inserts or replaces an asset by ID.
	SaveAsset(ctx context.Context, asset core.Asset) error

	// SaveSignal persists a signal audit record. A missing ID is assigned.
	SaveSignal(ctx context.Context, record *core.SignalRecord) error

	// SaveOrder persists an order record. A missing ID is assigned.
	SaveOrder(ctx context.Context, record *core.OrderRecord) error

	// ListAutoTradeSignals returns auto-trade signals created at or after
	// since, newest first.
	ListAutoTradeSignals(ctx context.Context, since time.Time) ([]core.SignalRecord, error)

	// Close releases backend resources.
	Close() error
}
