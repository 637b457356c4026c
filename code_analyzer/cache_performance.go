package code_analyzer

import (
	"sync/atomic"
	"time"
)

// CacheStats counts lookups of the extraction cache since the last reset.
type CacheStats struct {
	hits         atomic.Int64
	misses       atomic.Int64
	skippedBytes atomic.Int64
	resetAt      atomic.Pointer[time.Time]
}

func newCacheStats() *CacheStats {
	s := &CacheStats{}
	s.reset()
	return s
}

// hit records a lookup that spared extracting size bytes of source.
func (s *CacheStats) hit(size int) {
	s.hits.Add(1)
	s.skippedBytes.Add(int64(size))
}

func (s *CacheStats) miss() {
	s.misses.Add(1)
}

func (s *CacheStats) reset() {
	now := time.Now()
	s.hits.Store(0)
	s.misses.Store(0)
	s.skippedBytes.Store(0)
	s.resetAt.Store(&now)
}

// GetPerformanceStats returns the hit/miss counters of this process
func (cm *CacheManager) GetPerformanceStats() map[string]interface{} {
	hits := cm.stats.hits.Load()
	misses := cm.stats.misses.Load()
	total := hits + misses

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	resetAt := *cm.stats.resetAt.Load()

	return map[string]interface{}{
		"total_requests": total,
		"cache_hits":     hits,
		"cache_misses":   misses,
		"hit_rate":       hitRate,
		"skipped_bytes":  cm.stats.skippedBytes.Load(),
		"uptime_seconds": time.Since(resetAt).Seconds(),
		"last_reset":     resetAt.Format(time.RFC3339),
	}
}

// ResetPerformanceStats zeroes the counters.
func (cm *CacheManager) ResetPerformanceStats() {
	cm.stats.reset()
}
