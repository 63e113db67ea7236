package cache

import (
	"time"

	"matrixdesk/app/interfaces"
	"matrixdesk/app/mtx"
)

// Logger interface for cache logging
type Logger = interfaces.Logger

// CacheEntry is one parsed matrix, kept so a second preview of an unchanged
// file with the same load options skips ingestion.
type CacheEntry struct {
	Result     *mtx.Result
	FilePath   string
	ModTime    time.Time // File modification time for invalidation
	Size       int64
	AccessTime int64
	CreateTime time.Time
}

// CacheStats contains detailed cache statistics
type CacheStats struct {
	TotalEntries int
	TotalSize    int64
	MaxSize      int64
	UsagePercent float64

	Hits      int64
	Misses    int64
	Evictions int64
	Rejected  int64   // entries larger than the whole cache
	HitRate   float64 // hits / (hits + misses)
}

// DefaultCacheMaxSize is the default cache size limit (100MB)
const DefaultCacheMaxSize = 100 * 1024 * 1024

// entryOverhead approximates the bookkeeping cost of an entry beyond its grid.
const entryOverhead = 256
