package storage

import (
	"fmt"

	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/core"
)

// defaultMaxRecords caps the in-memory store's signal and order slices.
const defaultMaxRecords = 10000

// Open creates the Store selected by config.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(defaultMaxRecords), nil
	case "badger":
		return NewBadgerStore(cfg.Path)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", cfg.Type))
	}
}
