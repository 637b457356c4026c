package code_analyzer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/zeebo/xxh3"
)

// CacheEntry is the stored extraction result of one file.
type CacheEntry struct {
	Declarations []models.Declaration
	ContentHash  uint64
	Extractor    string
	Timestamp    time.Time
}

// FileCache stores one gob file per cache key in a directory.
type FileCache struct {
	cacheDir string
	mutex    sync.RWMutex
}

// CacheManager memoizes declaration extraction by file content. Every
// refresh still reads every file; only the extraction of unchanged content
// is skipped.
type CacheManager struct {
	fileCache *FileCache
	stats     *CacheStats
}

// NewCacheManager creates a cache manager storing entries in cacheDir.
// If cacheDir is empty, it defaults to ".cache" in the current working directory.
func NewCacheManager(cacheDir string) (*CacheManager, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		cacheDir = filepath.Join(cwd, ".cache")
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &CacheManager{
		fileCache: &FileCache{cacheDir: cacheDir},
		stats:     newCacheStats(),
	}, nil
}

// generateCacheKey creates the cache file name for a key
func (fc *FileCache) generateCacheKey(key string) string {
	return fmt.Sprintf("%016x.cache", xxh3.HashString(key))
}

// getCachePath returns the full path to a cache file
func (fc *FileCache) getCachePath(cacheKey string) string {
	return filepath.Join(fc.cacheDir, cacheKey)
}

func (fc *FileCache) get(key string) (*CacheEntry, bool) {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	data, err := os.ReadFile(fc.getCachePath(fc.generateCacheKey(key)))
	if err != nil {
		return nil, false
	}

	var entry CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, false
	}
	return &entry, true
}

func (fc *FileCache) set(key string, entry *CacheEntry) error {
	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if err := os.WriteFile(fc.getCachePath(fc.generateCacheKey(key)), buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

func declarationKey(extractor string, relativePath string) string {
	return extractor + "\x00" + relativePath
}

// GetDeclarations returns the cached declarations for a file if its content
// and extractor are unchanged.
func (cm *CacheManager) GetDeclarations(extractor string, relativePath string, content []byte) ([]models.Declaration, bool) {
	entry, found := cm.fileCache.get(declarationKey(extractor, relativePath))
	if !found || entry.Extractor != extractor || entry.ContentHash != xxh3.Hash(content) {
		cm.stats.miss()
		return nil, false
	}
	cm.stats.hit(len(content))
	return entry.Declarations, true
}

// SetDeclarations stores the declarations extracted from content.
func (cm *CacheManager) SetDeclarations(extractor string, relativePath string, content []byte, declarations []models.Declaration) error {
	return cm.fileCache.set(declarationKey(extractor, relativePath), &CacheEntry{
		Declarations: declarations,
		ContentHash:  xxh3.Hash(content),
		Extractor:    extractor,
		Timestamp:    time.Now(),
	})
}

// GetCacheStats returns storage statistics merged with the hit/miss counters.
func (cm *CacheManager) GetCacheStats() (map[string]interface{}, error) {
	cm.fileCache.mutex.RLock()
	defer cm.fileCache.mutex.RUnlock()

	entries, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var totalSize int64
	var count int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		totalSize += info.Size()
	}

	stats := cm.GetPerformanceStats()
	stats["cache_enabled"] = true
	stats["cache_files"] = count
	stats["total_size"] = totalSize
	stats["cache_dir"] = cm.fileCache.cacheDir

	return stats, nil
}

// ClearCache removes all cache entries
func (cm *CacheManager) ClearCache() error {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	entries, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(cm.fileCache.getCachePath(entry.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete cache file: %w", err)
		}
	}

	return nil
}

// CleanExpiredCache removes cache entries older than maxAge.
func (cm *CacheManager) CleanExpiredCache(maxAge time.Duration) (int, error) {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	entries, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, file := range entries {
		if file.IsDir() {
			continue
		}
		cachePath := cm.fileCache.getCachePath(file.Name())

		data, err := os.ReadFile(cachePath)
		if err != nil {
			continue
		}

		var entry CacheEntry
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
			// unreadable entries are stale by definition
			if os.Remove(cachePath) == nil {
				removed++
			}
			continue
		}

		if entry.Timestamp.Before(cutoff) {
			if os.Remove(cachePath) == nil {
				removed++
			}
		}
	}

	return removed, nil
}
