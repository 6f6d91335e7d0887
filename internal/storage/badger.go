package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/quantpilot/quantpilot/internal/core"
)

const (
	strategyPrefix = "strategy:"
	assetPrefix    = "asset:"
	signalPrefix   = "signal:"
	orderPrefix    = "order:"
)

// BadgerStore is a durable Store backed by an embedded BadgerDB database.
// Signal keys embed a zero-padded creation timestamp so time-range scans
// iterate in key order.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a Badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	// Badger's own logger is noisy; errors still surface from operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return &BadgerStore{db: db}, nil
}

// ListActiveStrategies returns all active strategies.
func (s *BadgerStore) ListActiveStrategies(ctx context.Context) ([]core.Strategy, error) {
	var result []core.Strategy
	err := s.scanPrefix(strategyPrefix, func(val []byte) error {
		var strategy core.Strategy
		if err := json.Unmarshal(val, &strategy); err != nil {
			return err
		}
		if strategy.Active {
			result = append(result, strategy)
		}
		return nil
	})
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return result, nil
}

// ListEligibleAssets returns all active assets.
func (s *BadgerStore) ListEligibleAssets(ctx context.Context) ([]core.Asset, error) {
	var result []core.Asset
	err := s.scanPrefix(assetPrefix, func(val []byte) error {
		var asset core.Asset
		if err := json.Unmarshal(val, &asset); err != nil {
			return err
		}
		if asset.Active {
			result = append(result, asset)
		}
		return nil
	})
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return result, nil
}

// SaveStrategy inserts or replaces a strategy by ID.
func (s *BadgerStore) SaveStrategy(ctx context.Context, strategy core.Strategy) error {
	if strategy.ID == "" {
		strategy.ID = uuid.NewString()
	}
	return s.put(strategyPrefix+strategy.ID, strategy)
}

// SaveAsset inserts or replaces an asset by ID.
func (s *BadgerStore) SaveAsset(ctx context.Context, asset core.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	return s.put(assetPrefix+asset.ID, asset)
}

// SaveSignal persists a signal record, assigning ID and timestamp when
// missing.
func (s *BadgerStore) SaveSignal(ctx context.Context, record *core.SignalRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	key := fmt.Sprintf("%s%020d:%s", signalPrefix, record.CreatedAt.UnixNano(), record.ID)
	return s.put(key, record)
}

// SaveOrder persists an order record, assigning ID and timestamp when
// missing.
func (s *BadgerStore) SaveOrder(ctx context.Context, record *core.OrderRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	return s.put(orderPrefix+record.ID, record)
}

// ListAutoTradeSignals returns auto-trade signals created at or after
// since, newest first.
func (s *BadgerStore) ListAutoTradeSignals(ctx context.Context, since time.Time) ([]core.SignalRecord, error) {
	startKey := []byte(fmt.Sprintf("%s%020d", signalPrefix, since.UnixNano()))
	prefix := []byte(signalPrefix)

	var result []core.SignalRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(startKey); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record core.SignalRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return err
				}
				if record.Source == core.SourceAutoTrade {
					result = append(result, record)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	// Keys iterate oldest first; callers want newest first.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// Close gracefully closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

func (s *BadgerStore) scanPrefix(prefix string, fn func(val []byte) error) error {
	p := []byte(prefix)
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
