// Package geocache persists resolved coordinates keyed by the exact address
// string a caller asked for. The whole cache is one JSON blob in a
// storage.Store, pruned of expired entries on every read.
package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/address-geocoder/internal/adapter/storage"
	"github.com/couchcryptid/address-geocoder/internal/domain"
)

const (
	// DefaultKey names the stored blob. A breaking format change needs a new key.
	DefaultKey       = "geocode-cache-v1"
	DefaultRetention = 30 * 24 * time.Hour
)

// Entry is a cached resolution. Coordinate is nil for a stored "no result".
type Entry struct {
	Coordinate *domain.Coordinate
	CreatedAt  time.Time
}

// storedEntry is the persisted shape of an Entry.
type storedEntry struct {
	Coordinate *domain.Coordinate `json:"coordenadas"`
	Timestamp  int64              `json:"timestamp"` // epoch millis
}

// Options configures a Cache. Zero values fall back to the defaults.
type Options struct {
	Key       string
	Retention time.Duration
	Clock     clockwork.Clock
}

// Cache is safe for concurrent use within one process. Storage failures are
// logged and never returned: reads behave as an empty cache and writes
// become no-ops.
type Cache struct {
	store     storage.Store
	key       string
	retention time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger

	mu sync.Mutex // serializes read-modify-write of the blob
}

// New creates a Cache backed by store.
func New(store storage.Store, opts Options, logger *slog.Logger) *Cache {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Cache{
		store:     store,
		key:       opts.Key,
		retention: opts.Retention,
		clock:     opts.Clock,
		logger:    logger,
	}
}

// Load returns all live entries, persisting the pruned map when expired
// entries were dropped.
func (c *Cache) Load(ctx context.Context) map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Get looks up the exact address string. The boolean reports presence;
// a present entry may still carry a nil coordinate.
func (c *Cache) Get(ctx context.Context, address string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.load(ctx)[address]
	return e, ok
}

// Put records coord for address, stamped with the current time.
func (c *Cache) Put(ctx context.Context, address string, coord domain.Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load(ctx)
	entries[address] = Entry{Coordinate: &coord, CreatedAt: c.clock.Now()}
	c.persist(ctx, entries)
}

// Clear removes the persisted blob.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, c.key); err != nil {
		c.logger.Error("geocode cache clear failed", "key", c.key, "error", err)
		return
	}
	c.logger.Info("geocode cache cleared", "key", c.key)
}

func (c *Cache) load(ctx context.Context) map[string]Entry {
	entries := make(map[string]Entry)

	data, err := c.store.Get(ctx, c.key)
	if errors.Is(err, storage.ErrNotFound) {
		return entries
	}
	if err != nil {
		c.logger.Warn("geocode cache read failed, treating as empty", "key", c.key, "error", err)
		return entries
	}

	var stored map[string]storedEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		c.logger.Warn("geocode cache corrupt, treating as empty", "key", c.key, "error", err)
		return entries
	}

	now := c.clock.Now()
	pruned := 0
	for addr, se := range stored {
		created := time.UnixMilli(se.Timestamp)
		if now.Sub(created) > c.retention {
			pruned++
			continue
		}
		entries[addr] = Entry{Coordinate: se.Coordinate, CreatedAt: created}
	}

	if pruned > 0 {
		c.logger.Debug("geocode cache pruned expired entries", "pruned", pruned, "remaining", len(entries))
		c.persist(ctx, entries)
	}
	return entries
}

func (c *Cache) persist(ctx context.Context, entries map[string]Entry) {
	stored := make(map[string]storedEntry, len(entries))
	for addr, e := range entries {
		stored[addr] = storedEntry{Coordinate: e.Coordinate, Timestamp: e.CreatedAt.UnixMilli()}
	}

	data, err := json.Marshal(stored)
	if err != nil {
		c.logger.Error("geocode cache encode failed", "error", err)
		return
	}
	if err := c.store.Set(ctx, c.key, data); err != nil {
		c.logger.Error("geocode cache write failed", "key", c.key, "error", err)
	}
}
