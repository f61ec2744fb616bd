package spatial

import (
	"container/list"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jengzang/crime-lisa-go/internal/metrics"
	"github.com/jengzang/crime-lisa-go/internal/models"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize bounds the number of weights matrices kept in memory
const DefaultCacheSize = 64

// WeightsCache memoises queen weights keyed by geo level and the ordered
// unit identifier set. Concurrent requests for the same key build once.
//
// Thread Safety: safe for concurrent use.
type WeightsCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	flight  singleflight.Group
	size    int
	opts    QueenOptions

	hits   atomic.Int64
	misses atomic.Int64
	builds atomic.Int64
}

type cacheEntry struct {
	key     string
	weights *Weights
}

// CacheStats is a snapshot of cache counters
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Builds  int64 `json:"builds"`
}

// NewWeightsCache creates a cache holding at most size matrices
func NewWeightsCache(size int, opts QueenOptions) *WeightsCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &WeightsCache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		size:    size,
		opts:    opts,
	}
}

// CacheKey derives the cache key of an ordered unit set
func CacheKey(level models.GeoLevel, units []models.SpatialUnit) string {
	var b strings.Builder
	b.WriteString(string(level))
	for _, u := range units {
		b.WriteByte('|')
		b.WriteString(u.ID)
	}
	return b.String()
}

// Get returns the cached weights for the unit set, building them on a miss
func (c *WeightsCache) Get(level models.GeoLevel, units []models.SpatialUnit) (*Weights, error) {
	key := CacheKey(level, units)

	if w, ok := c.lookup(key); ok {
		c.hits.Add(1)
		metrics.WeightsCacheLookups.WithLabelValues("hit").Inc()
		return w, nil
	}
	c.misses.Add(1)
	metrics.WeightsCacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		if w, ok := c.lookup(key); ok {
			return w, nil
		}
		start := time.Now()
		w, err := BuildQueen(units, c.opts)
		if err != nil {
			return nil, err
		}
		c.builds.Add(1)
		metrics.WeightsBuildDuration.Observe(time.Since(start).Seconds())
		if islands := w.Islands(); len(islands) > 0 {
			metrics.IslandsRepaired.Add(float64(len(islands)))
			slog.Info("island repair applied",
				slog.String("component", "weights"),
				slog.String("level", string(level)),
				slog.Any("units", islands))
		}
		c.store(key, w)
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Weights), nil
}

// Stats returns a snapshot of the cache counters
func (c *WeightsCache) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()
	return CacheStats{
		Entries: entries,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Builds:  c.builds.Load(),
	}
}

// Purge drops every cached matrix
func (c *WeightsCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

func (c *WeightsCache) lookup(key string) (*Weights, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(el)
	return el.Value.(*cacheEntry).weights, true
}

func (c *WeightsCache) store(key string, w *Weights) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		return
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, weights: w})
	for c.lru.Len() > c.size {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}
