package manifest

import "sync"

// Cache is a thread-safe least-recently-used cache of loaded manifests,
// keyed by manifest path
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*cacheEntry
	// head.next is the most recently used entry, tail.prev the least
	head, tail   *cacheEntry
	hits, misses int64
}

type cacheEntry struct {
	key        string
	manifest   *Manifest
	prev, next *cacheEntry
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits     int64   `json:"hits" yaml:"hits"`
	Misses   int64   `json:"misses" yaml:"misses"`
	HitRate  float64 `json:"hit_rate_percent" yaml:"hit_rate_percent"`
	Size     int     `json:"current_size" yaml:"current_size"`
	Capacity int     `json:"max_capacity" yaml:"max_capacity"`
}

// NewCache creates a cache holding up to capacity manifests
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 64
	}
	c := &Cache{
		capacity: capacity,
		entries:  make(map[string]*cacheEntry),
		head:     &cacheEntry{},
		tail:     &cacheEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the manifest stored under key and marks it recently used
func (c *Cache) Get(key string) (*Manifest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.unlink(e)
	c.pushFront(e)
	c.hits++
	return e.manifest, true
}

// Put stores m under key, evicting the least recently used entry when full
func (c *Cache) Put(key string, m *Manifest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.manifest = m
		c.unlink(e)
		c.pushFront(e)
		return
	}

	e := &cacheEntry{key: key, manifest: m}
	c.entries[key] = e
	c.pushFront(e)

	if len(c.entries) > c.capacity {
		lru := c.tail.prev
		c.unlink(lru)
		delete(c.entries, lru.key)
	}
}

// Remove drops key from the cache
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.unlink(e)
	delete(c.entries, key)
	return true
}

// Len returns the number of cached manifests
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counters
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rate float64
	if total := c.hits + c.misses; total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return CacheStats{
		Hits:     c.hits,
		Misses:   c.misses,
		HitRate:  rate,
		Size:     len(c.entries),
		Capacity: c.capacity,
	}
}

func (c *Cache) pushFront(e *cacheEntry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *Cache) unlink(e *cacheEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}
