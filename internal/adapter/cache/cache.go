// Package cache holds the station directory used when reports are created
// from a station id, with an in-memory LRU decorator in front of the store.
package cache

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/couchcryptid/weather-report-store/internal/domain"
	"github.com/couchcryptid/weather-report-store/internal/observability"
)

// StationLookup resolves a stored station by id.
type StationLookup interface {
	Station(ctx context.Context, id string) (domain.StationDoc, error)
}

// StationFinder is the store call StoreDirectory reads through.
type StationFinder interface {
	FindOne(ctx context.Context, collection string, filter, sort, out any) error
}

// StoreDirectory reads stations straight from the store.
type StoreDirectory struct {
	store StationFinder
}

// NewStoreDirectory creates an uncached directory.
func NewStoreDirectory(store StationFinder) *StoreDirectory {
	return &StoreDirectory{store: store}
}

func (d *StoreDirectory) Station(ctx context.Context, id string) (domain.StationDoc, error) {
	var doc domain.StationDoc
	if err := d.store.FindOne(ctx, domain.CollectionWeatherStations, bson.D{{Key: "_id", Value: id}}, nil, &doc); err != nil {
		return domain.StationDoc{}, fmt.Errorf("station %s: %w", id, err)
	}
	return doc, nil
}

// CachedStationDirectory wraps a StationLookup with an LRU cache. Misses are
// not cached so a station created after a failed lookup is found next time.
type CachedStationDirectory struct {
	inner   StationLookup
	cache   *lruCache[string, domain.StationDoc]
	metrics *observability.Metrics
}

// NewCachedStationDirectory creates a cache decorator around a directory.
func NewCachedStationDirectory(inner StationLookup, maxEntries int, metrics *observability.Metrics) *CachedStationDirectory {
	return &CachedStationDirectory{
		inner:   inner,
		cache:   newLRUCache[string, domain.StationDoc](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedStationDirectory) Station(ctx context.Context, id string) (domain.StationDoc, error) {
	if doc, ok := c.cache.get(id); ok {
		c.metrics.StationCache.WithLabelValues("hit").Inc()
		return doc, nil
	}
	c.metrics.StationCache.WithLabelValues("miss").Inc()
	doc, err := c.inner.Station(ctx, id)
	if err != nil {
		return doc, err
	}
	c.cache.put(id, doc)
	return doc, nil
}

// Forget drops one cached station.
func (c *CachedStationDirectory) Forget(id string) { c.cache.remove(id) }

// Purge drops every cached station.
func (c *CachedStationDirectory) Purge() { c.cache.purge() }

// Len reports the number of cached stations.
func (c *CachedStationDirectory) Len() int { return c.cache.len() }

// lruCache is a thread-safe LRU map.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // most recently used
	tail       *entry[K, V] // least recently used
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		entries:    make(map[K]*entry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[K, V]) remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.unlink(e)
	}
}

func (c *lruCache[K, V]) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.head, c.tail = nil, nil
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache[K, V]) addToFront(e *entry[K, V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[K, V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
