package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RawCache is the low-level cache interface that works with bytes.
type RawCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Flush(ctx context.Context) error
	Close() error
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	Decrement(ctx context.Context, key string, delta int64) (int64, error)
}

// Manager manages multiple raw cache instances, keyed by name, so wiring can
// register one per backing store (search-index responses, quota counters,
// ...) and close them all together on shutdown.
type Manager struct {
	caches sync.Map // map[string]RawCache
}

// NewManager creates a new Manager.
func NewManager() *Manager {
	return &Manager{}
}

// AddCache adds a raw cache with the given name.
func (cm *Manager) AddCache(name string, cache RawCache) {
	cm.caches.Store(name, cache)
}

// Close closes all managed caches.
func (cm *Manager) Close() error {
	var errs []error

	cm.caches.Range(func(_, value interface{}) bool {
		if rawCache, ok := value.(RawCache); ok {
			if closeErr := rawCache.Close(); closeErr != nil {
				errs = append(errs, closeErr)
			}
		}
		return true
	})

	if len(errs) > 0 {
		return fmt.Errorf("errors closing caches: %v", errs)
	}
	return nil
}
