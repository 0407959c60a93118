// Package store keeps generated digests retrievable under opaque handles for
// a bounded time.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/repodigest/repodigest/internal/ingest"
)

// Defaults applied by New for any zero Config field.
const (
	DefaultTTL           = time.Hour
	DefaultSweepInterval = time.Minute
)

// Entry is one stored digest with its retention bookkeeping.
type Entry struct {
	Digest    ingest.Digest
	Source    string
	CreatedAt time.Time
}

// Config assembles a Store.
type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
	Clock         func() time.Time
	Logger        *zap.Logger
}

// Store maps opaque handles to digests and evicts entries past their TTL.
// Handles carry no meaning beyond one process lifetime. Safe for concurrent
// use.
type Store struct {
	mutex         sync.RWMutex
	entries       map[string]Entry
	ttl           time.Duration
	sweepInterval time.Duration
	clock         func() time.Time
	logger        *zap.Logger
}

// New builds a Store, filling unset configuration with defaults.
func New(config Config) *Store {
	store := &Store{
		entries:       make(map[string]Entry),
		ttl:           config.TTL,
		sweepInterval: config.SweepInterval,
		clock:         config.Clock,
		logger:        config.Logger,
	}
	if store.ttl <= 0 {
		store.ttl = DefaultTTL
	}
	if store.sweepInterval <= 0 {
		store.sweepInterval = DefaultSweepInterval
	}
	if store.clock == nil {
		store.clock = time.Now
	}
	if store.logger == nil {
		store.logger = zap.NewNop()
	}
	return store
}

// Put stores digest and returns the handle it can be retrieved with.
func (store *Store) Put(source string, digest ingest.Digest) string {
	handle := uuid.NewString()
	entry := Entry{Digest: digest, Source: source, CreatedAt: store.clock()}
	store.mutex.Lock()
	store.entries[handle] = entry
	store.mutex.Unlock()
	return handle
}

// Get returns the entry stored under handle. Expired entries are misses even
// before the sweeper collects them.
func (store *Store) Get(handle string) (Entry, bool) {
	store.mutex.RLock()
	entry, found := store.entries[handle]
	store.mutex.RUnlock()
	if !found {
		return Entry{}, false
	}
	if store.clock().Sub(entry.CreatedAt) > store.ttl {
		return Entry{}, false
	}
	return entry, true
}

// Len reports the number of stored entries, expired ones included until the
// next sweep.
func (store *Store) Len() int {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return len(store.entries)
}

// Run sweeps expired entries every sweep interval until ctx is canceled.
func (store *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(store.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if evicted := store.sweep(); evicted > 0 {
				store.logger.Debug("expired digests evicted", zap.Int("count", evicted))
			}
		}
	}
}

// sweep removes every entry past its TTL and reports how many went.
func (store *Store) sweep() int {
	deadline := store.clock().Add(-store.ttl)
	store.mutex.Lock()
	defer store.mutex.Unlock()
	evicted := 0
	for handle, entry := range store.entries {
		if entry.CreatedAt.Before(deadline) {
			delete(store.entries, handle)
			evicted++
		}
	}
	return evicted
}
