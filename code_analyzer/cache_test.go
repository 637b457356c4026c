package code_analyzer

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cachedDeclarations = []models.Declaration{
	{
		Name:       "Foo",
		BaseType:   "Base",
		Interfaces: []string{"IA"},
		Fields:     []string{"int x"},
		Methods:    []string{"void Bar()"},
		Offset:     12,
	},
}

// Test cache manager setup and basic operations
func TestCacheManager_BasicOperations(t *testing.T) {
	cacheManager, err := NewCacheManager(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, cacheManager)

	content := []byte("class Foo : Base, IA { public int x; public void Bar() {} }")

	decls, found := cacheManager.GetDeclarations("pattern", "A/Foo.cs", content)
	assert.False(t, found) // Should not be cached initially
	assert.Nil(t, decls)

	require.NoError(t, cacheManager.SetDeclarations("pattern", "A/Foo.cs", content, cachedDeclarations))

	decls, found = cacheManager.GetDeclarations("pattern", "A/Foo.cs", content)
	assert.True(t, found)
	assert.Equal(t, cachedDeclarations, decls)
}

// Test cache invalidation when the content changes
func TestCacheManager_ContentInvalidation(t *testing.T) {
	cacheManager, err := NewCacheManager(t.TempDir())
	require.NoError(t, err)

	original := []byte("class Foo { public int x; }")
	require.NoError(t, cacheManager.SetDeclarations("pattern", "Foo.cs", original, cachedDeclarations))

	_, found := cacheManager.GetDeclarations("pattern", "Foo.cs", []byte("class Foo { public int y; }"))
	assert.False(t, found)

	// entries of another extractor are separate
	_, found = cacheManager.GetDeclarations("treesitter", "Foo.cs", original)
	assert.False(t, found)

	_, found = cacheManager.GetDeclarations("pattern", "Foo.cs", original)
	assert.True(t, found)
}

func TestCacheManager_StatsAndClear(t *testing.T) {
	cacheDir := t.TempDir()
	cacheManager, err := NewCacheManager(cacheDir)
	require.NoError(t, err)

	content := []byte("class Foo {}")
	require.NoError(t, cacheManager.SetDeclarations("pattern", "Foo.cs", content, cachedDeclarations))
	require.NoError(t, cacheManager.SetDeclarations("pattern", "Bar.cs", content, nil))
	cacheManager.GetDeclarations("pattern", "Foo.cs", content)
	cacheManager.GetDeclarations("pattern", "Missing.cs", content)

	stats, err := cacheManager.GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, true, stats["cache_enabled"])
	assert.Equal(t, 2, stats["cache_files"])
	assert.Equal(t, cacheDir, stats["cache_dir"])
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, 50.0, stats["hit_rate"])
	assert.Equal(t, int64(len(content)), stats["skipped_bytes"])
	assert.Greater(t, stats["total_size"].(int64), int64(0))

	require.NoError(t, cacheManager.ClearCache())

	stats, err = cacheManager.GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats["cache_files"])

	cacheManager.ResetPerformanceStats()
	assert.Equal(t, int64(0), cacheManager.GetPerformanceStats()["total_requests"])
}

func TestCacheManager_CleanExpiredCache(t *testing.T) {
	cacheDir := t.TempDir()
	cacheManager, err := NewCacheManager(cacheDir)
	require.NoError(t, err)

	content := []byte("class Foo {}")
	require.NoError(t, cacheManager.SetDeclarations("pattern", "Foo.cs", content, cachedDeclarations))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "garbage.cache"), []byte("not gob"), 0644))

	removed, err := cacheManager.CleanExpiredCache(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed) // only the unreadable entry

	time.Sleep(10 * time.Millisecond)
	removed, err = cacheManager.CleanExpiredCache(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found := cacheManager.GetDeclarations("pattern", "Foo.cs", content)
	assert.False(t, found)
}

func TestCacheManager_ConcurrentAccess(t *testing.T) {
	cacheManager, err := NewCacheManager(t.TempDir())
	require.NoError(t, err)

	content := []byte("class Foo {}")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cacheManager.SetDeclarations("pattern", "Foo.cs", content, cachedDeclarations))
			if decls, ok := cacheManager.GetDeclarations("pattern", "Foo.cs", content); ok {
				assert.Equal(t, "Foo", decls[0].Name)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(16), cacheManager.GetPerformanceStats()["total_requests"])
}

func TestNewCacheManager_DefaultDirectory(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	tempDir := t.TempDir()
	require.NoError(t, os.Chdir(tempDir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cacheManager, err := NewCacheManager("")
	require.NoError(t, err)

	stats, err := cacheManager.GetCacheStats()
	require.NoError(t, err)
	dir := stats["cache_dir"].(string)
	assert.Equal(t, ".cache", filepath.Base(dir))
	assert.DirExists(t, dir)
}
