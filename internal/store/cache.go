// Package store provides a caching decorator for metadata lookups using a Bloom filter and LRU cache.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"audioflow/pkg/audiometa"
)

// DefaultFalsePositiveRate is the bloom filter rate used by NewCachedLookup.
const DefaultFalsePositiveRate = 0.001

// Stats reports cache effectiveness.
type Stats struct {
	Hits          uint64
	Misses        uint64
	ShortCircuits uint64
}

// CachedLookup decorates a Lookup with an LRU of resolved records. Once primed
// with the backend's identifiers, ids the bloom filter has never seen are
// answered as not found without consulting the backend.
type CachedLookup struct {
	next              audiometa.Lookup
	lru               *lru.Cache[string, audiometa.Record]
	bloom             *bloom.BloomFilter
	primed            bool
	mutex             sync.RWMutex
	size              int
	falsePositiveRate float64
	stats             Stats
}

// NewCachedLookup creates a cache holding up to size records.
func NewCachedLookup(next audiometa.Lookup, size int) (*CachedLookup, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}

	lruCache, err := lru.New[string, audiometa.Record](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}

	return &CachedLookup{
		next:              next,
		lru:               lruCache,
		size:              size,
		falsePositiveRate: DefaultFalsePositiveRate,
	}, nil
}

// Prime loads the known identifiers into the bloom filter. After priming,
// lookups for ids outside the set skip the backend.
func (c *CachedLookup) Prime(ids []string) {
	estimate := len(ids)
	if estimate < c.size {
		estimate = c.size
	}

	filter := bloom.NewWithEstimates(uint(estimate), c.falsePositiveRate) //nolint:gosec // estimate is positive
	for _, id := range ids {
		if id != "" {
			filter.AddString(id)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.bloom = filter
	c.primed = true
	c.lru.Purge()
}

// Lookup returns a cached record or asks the backend.
func (c *CachedLookup) Lookup(ctx context.Context, id string) (*audiometa.Record, error) {
	c.mutex.Lock()
	if c.primed && !c.bloom.TestString(id) {
		c.stats.ShortCircuits++
		c.mutex.Unlock()
		return nil, fmt.Errorf("%w: %s", audiometa.ErrNotFound, id)
	}
	if record, ok := c.lru.Get(id); ok {
		c.stats.Hits++
		c.mutex.Unlock()
		return &record, nil
	}
	c.stats.Misses++
	c.mutex.Unlock()

	record, err := c.next.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", audiometa.ErrNotFound, id)
	}

	c.lru.Add(id, *record)
	out := *record
	return &out, nil
}

// Len returns the number of cached records.
func (c *CachedLookup) Len() int {
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *CachedLookup) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.stats
}
