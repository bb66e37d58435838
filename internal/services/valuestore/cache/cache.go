// Package cache keeps the most recent ingestion result per value store file
// for a fixed freshness window.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
)

// DefaultTTL is how long a fetched table is served without refetching.
const DefaultTTL = 60 * time.Second

// Options configures a Cache.
type Options struct {
	// TTL is the freshness window. Zero or negative uses DefaultTTL.
	TTL time.Duration
	// MaxEntries bounds the number of files kept, evicting the least
	// recently used. Zero keeps every entry until it is overwritten.
	MaxEntries int
	// Clock reports the current time. Nil uses time.Now.
	Clock func() time.Time
}

type entry struct {
	table     domain.ValueTable
	fetchedAt time.Time
}

// store is the backing map; both implementations are safe for concurrent
// use and replace entries atomically.
type store interface {
	get(key string) (entry, bool)
	put(key string, e entry)
	len() int
}

// Cache maps normalized file names to their last ingested table.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	store store
}

// New builds a cache from opts.
func New(opts Options) (*Cache, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	var s store
	if opts.MaxEntries > 0 {
		bounded, err := lru.New[string, entry](opts.MaxEntries)
		if err != nil {
			return nil, err
		}
		s = lruStore{entries: bounded}
	} else {
		s = &mapStore{entries: map[string]entry{}}
	}
	return &Cache{ttl: ttl, now: now, store: s}, nil
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns a copy of the table stored under key when it is still fresh.
// A stale entry is reported as a miss and left in place.
func (c *Cache) Get(key string) (domain.ValueTable, bool) {
	e, ok := c.store.get(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.table.Clone(), true
}

// Put stores a copy of table under key, stamped with the current time.
func (c *Cache) Put(key string, table domain.ValueTable) {
	c.store.put(key, entry{table: table.Clone(), fetchedAt: c.now()})
}

// Len reports how many entries are held, fresh or stale.
func (c *Cache) Len() int {
	return c.store.len()
}

type mapStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func (s *mapStore) get(key string) (entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *mapStore) put(key string, e entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
}

func (s *mapStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

type lruStore struct {
	entries *lru.Cache[string, entry]
}

func (s lruStore) get(key string) (entry, bool) {
	return s.entries.Get(key)
}

func (s lruStore) put(key string, e entry) {
	s.entries.Add(key, e)
}

func (s lruStore) len() int {
	return s.entries.Len()
}
