package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"matrixdesk/app/mtx"
)

// Cache provides LRU caching for parsed matrices. It is safe for concurrent use.
type Cache struct {
	storage     map[string]*CacheEntry
	maxSize     int64
	currentSize int64
	lru         *LRUList[string]
	mutex       sync.Mutex
	logger      Logger

	// Performance counters
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	rejected  atomic.Int64
}

// NewCache creates a new cache
func NewCache(maxSize int64) *Cache {
	return NewCacheWithLogger(maxSize, nil)
}

// NewCacheWithLogger creates a new cache with a logger
func NewCacheWithLogger(maxSize int64, logger Logger) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheMaxSize
	}

	return &Cache{
		storage: make(map[string]*CacheEntry),
		maxSize: maxSize,
		lru:     NewLRUList[string](),
		logger:  logger,
	}
}

func (c *Cache) logf(level, format string, args ...any) {
	if c.logger != nil {
		c.logger.Log(level, fmt.Sprintf(format, args...))
	}
}

// Get retrieves a cached result and marks it as recently used. When modTime
// is non-zero an entry recorded for a different modification time is stale:
// it is dropped and reported as a miss.
func (c *Cache) Get(key string, modTime time.Time) (*mtx.Result, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.storage[key]
	if exists && !modTime.IsZero() && !entry.ModTime.Equal(modTime) {
		c.removeLocked(key)
		c.logf("debug", "[CACHE_STALE] Key: %s", key)
		exists = false
	}
	if !exists {
		c.misses.Add(1)
		c.logf("debug", "[CACHE_MISS] Key: %s", key)
		return nil, false
	}

	c.hits.Add(1)
	entry.AccessTime = time.Now().Unix()
	c.lru.Touch(key)
	c.logf("debug", "[CACHE_HIT] Key: %s, Size: %d bytes", key, entry.Size)
	return entry.Result, true
}

// Store adds or replaces the entry for key. Results larger than the whole
// cache are not stored; Store reports whether the entry was kept.
func (c *Cache) Store(key, filePath string, modTime time.Time, result *mtx.Result) bool {
	if result == nil || result.Grid == nil {
		return false
	}
	size := entrySize(result)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if size > c.maxSize {
		c.rejected.Add(1)
		c.logf("warn", "[CACHE_REJECT] Entry too large: %d bytes > %d cache limit", size, c.maxSize)
		return false
	}
	if _, exists := c.storage[key]; exists {
		c.removeLocked(key)
	}
	c.evictToMakeSpace(size)

	now := time.Now()
	c.storage[key] = &CacheEntry{
		Result:     result,
		FilePath:   filePath,
		ModTime:    modTime,
		Size:       size,
		AccessTime: now.Unix(),
		CreateTime: now,
	}
	c.currentSize += size
	c.lru.Touch(key)

	c.logf("debug", "[CACHE_STORE] Key: %s, Size: %d bytes, Total Cache: %d/%d bytes",
		key, size, c.currentSize, c.maxSize)
	return true
}

// Remove removes an entry from the cache
func (c *Cache) Remove(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.removeLocked(key)
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.storage = make(map[string]*CacheEntry)
	c.lru = NewLRUList[string]()
	c.currentSize = 0
}

// Size returns the current cache size in bytes
func (c *Cache) Size() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.currentSize
}

// EntryCount returns the number of entries in the cache
func (c *Cache) EntryCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.storage)
}

// UpdateMaxSize updates the maximum cache size and triggers eviction if necessary
func (c *Cache) UpdateMaxSize(newMaxSize int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if newMaxSize <= 0 {
		newMaxSize = DefaultCacheMaxSize
	}
	oldMaxSize := c.maxSize
	c.maxSize = newMaxSize
	c.logf("info", "[CACHE_RESIZE] Cache size updated from %d to %d bytes", oldMaxSize, newMaxSize)

	if evicted := c.evictToMakeSpace(0); evicted > 0 {
		c.logf("info", "[CACHE_RESIZE_EVICT] Evicted %d entries due to cache size reduction, Final Cache: %d/%d bytes",
			evicted, c.currentSize, c.maxSize)
	}
}

// GetCacheStats returns detailed cache statistics
func (c *Cache) GetCacheStats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := CacheStats{
		TotalEntries: len(c.storage),
		TotalSize:    c.currentSize,
		MaxSize:      c.maxSize,
		UsagePercent: float64(c.currentSize) / float64(c.maxSize) * 100,
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Evictions:    c.evictions.Load(),
		Rejected:     c.rejected.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// evictToMakeSpace drops least recently used entries until neededSize more
// bytes fit. Callers hold the mutex and have checked neededSize <= maxSize.
func (c *Cache) evictToMakeSpace(neededSize int64) int {
	evicted := 0
	for c.currentSize+neededSize > c.maxSize {
		oldestKey, ok := c.lru.Oldest()
		if !ok {
			break
		}
		size := c.storage[oldestKey].Size
		c.removeLocked(oldestKey)
		c.evictions.Add(1)
		evicted++
		c.logf("debug", "[CACHE_EVICT] Evicted entry: %s, Size: %d bytes, Remaining Cache: %d/%d bytes",
			oldestKey, size, c.currentSize, c.maxSize)
	}
	return evicted
}

func (c *Cache) removeLocked(key string) {
	if entry, exists := c.storage[key]; exists {
		delete(c.storage, key)
		c.currentSize -= entry.Size
	}
	c.lru.Remove(key)
}

func entrySize(result *mtx.Result) int64 {
	size := result.Grid.SizeBytes() + entryOverhead
	for _, fb := range result.Fallbacks {
		size += int64(len(fb.Token)+len(fb.Reason)) + 16
	}
	return size
}
