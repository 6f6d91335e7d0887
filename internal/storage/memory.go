package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantpilot/quantpilot/internal/core"
)

// MemoryStore is an in-memory Store. Signals and orders are capped; the
// oldest records are trimmed when capacity is exceeded.
type MemoryStore struct {
	mu         sync.RWMutex
	strategies map[string]core.Strategy
	assets     map[string]core.Asset
	signals    []core.SignalRecord
	orders     []core.OrderRecord
	maxRecords int
}

// NewMemoryStore creates an in-memory store keeping at most maxRecords
// signals and orders each.
func NewMemoryStore(maxRecords int) *MemoryStore {
	return &MemoryStore{
		strategies: make(map[string]core.Strategy),
		assets:     make(map[string]core.Asset),
		signals:    make([]core.SignalRecord, 0, maxRecords),
		orders:     make([]core.OrderRecord, 0, maxRecords),
		maxRecords: maxRecords,
	}
}

// ListActiveStrategies returns all active strategies sorted by ID.
func (m *MemoryStore) ListActiveStrategies(ctx context.Context) ([]core.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]core.Strategy, 0, len(m.strategies))
	for _, s := range m.strategies {
		if s.Active {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListEligibleAssets returns all active assets sorted by ID.
func (m *MemoryStore) ListEligibleAssets(ctx context.Context) ([]core.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]core.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		if a.Active {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SaveStrategy inserts or replaces a strategy by ID.
func (m *MemoryStore) SaveStrategy(ctx context.Context, strategy core.Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strategy.ID == "" {
		strategy.ID = uuid.NewString()
	}
	m.strategies[strategy.ID] = strategy
	return nil
}

// SaveAsset inserts or replaces an asset by ID.
func (m *MemoryStore) SaveAsset(ctx context.Context, asset core.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	m.assets[asset.ID] = asset
	return nil
}

// SaveSignal persists a signal record, assigning ID and timestamp when
// missing.
func (m *MemoryStore) SaveSignal(ctx context.Context, record *core.SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	m.signals = append(m.signals, *record)
	if len(m.signals) > m.maxRecords {
		m.signals = m.signals[len(m.signals)-m.maxRecords:]
	}
	return nil
}

// SaveOrder persists an order record, assigning ID and timestamp when
// missing.
func (m *MemoryStore) SaveOrder(ctx context.Context, record *core.OrderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	m.orders = append(m.orders, *record)
	if len(m.orders) > m.maxRecords {
		m.orders = m.orders[len(m.orders)-m.maxRecords:]
	}
	return nil
}

// ListAutoTradeSignals returns auto-trade signals created at or after
// since, newest first.
func (m *MemoryStore) ListAutoTradeSignals(ctx context.Context, since time.Time) ([]core.SignalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]core.SignalRecord, 0)
	for _, sig := range m.signals {
		if sig.Source == core.SourceAutoTrade && !sig.CreatedAt.Before(since) {
			result = append(result, sig)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
