package code_analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer(t *testing.T, root string, mutate ...func(*Options)) *CodeAnalyzer {
	t.Helper()
	opts := Options{
		RootDir:    root,
		PathPrefix: "Assets/Scripts",
		Extension:  ".cs",
		Workers:    4,
	}
	for _, m := range mutate {
		m(&opts)
	}
	analyzer, err := NewCodeAnalyzer(opts)
	require.NoError(t, err)
	return analyzer
}

func TestCodeAnalyzer_RefreshBuildsBothIndexes(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "A/Foo.cs", "class Foo : Base, IA, IB { public int x; public void Bar() {} }")

	analyzer := newTestAnalyzer(t, root)
	assert.Nil(t, analyzer.Snapshot())
	assert.Nil(t, analyzer.FlatIndex())

	snapshot, err := analyzer.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"File: Assets/Scripts/A/Foo.cs",
		"  Class: Foo",
		"    Field: int x",
		"    Method: void Bar()",
	}, snapshot.Flat)

	assert.Equal(t, filepath.Base(root), snapshot.Root.Name)
	require.Len(t, snapshot.Root.Subfolders, 1)
	folder := snapshot.Root.Subfolders[0]
	assert.Equal(t, "A", folder.Name)
	require.Len(t, folder.Files, 1)
	file := folder.Files[0]
	assert.Equal(t, "Assets/Scripts/A/Foo.cs", file.RelativePath)
	require.Len(t, file.Classes, 1)
	assert.Equal(t, &models.TypeNode{
		Name:       "Foo",
		BaseType:   "Base",
		Interfaces: []string{"IA", "IB"},
		Fields:     []string{"int x"},
		Methods:    []string{"void Bar()"},
	}, file.Classes[0])

	assert.Equal(t, 1, snapshot.FileCount)
	assert.Equal(t, 1, snapshot.TypeCount)
	assert.Empty(t, snapshot.Diagnostics)
	assert.NotEmpty(t, snapshot.ID)
	assert.Same(t, snapshot, analyzer.Snapshot())
	assert.Equal(t, snapshot.Flat, analyzer.FlatIndex())
	assert.Same(t, snapshot.Root, analyzer.Hierarchy())
}

func TestCodeAnalyzer_RefreshIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Player/Move.cs", "class Move { public float speed; public void Tick(float dt) {} }")
	writeSource(t, root, "Player/Jump.cs", "class Jump : Move { public void Go() {} }")
	writeSource(t, root, "UI/Menu.cs", "class Menu { }")
	writeSource(t, root, "Empty.cs", "// nothing declared")

	analyzer := newTestAnalyzer(t, root)

	first, err := analyzer.Refresh(context.Background())
	require.NoError(t, err)
	second, err := analyzer.Refresh(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Flat, second.Flat)
	assert.Equal(t, first.Root, second.Root)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Contains(t, first.Flat, "File: Assets/Scripts/Empty.cs")
}

func TestCodeAnalyzer_SameTypeNameInTwoFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Net/Util.cs", "class Util { public int port; }")
	writeSource(t, root, "Audio/Util.cs", "class Util { public float volume; }")

	snapshot, err := newTestAnalyzer(t, root).Refresh(context.Background())
	require.NoError(t, err)

	var utils []*models.TypeNode
	snapshot.Root.Walk(func(_ *models.FolderNode, file *models.FileNode) {
		if cls := file.Class("Util"); cls != nil {
			utils = append(utils, cls)
		}
	})
	require.Len(t, utils, 2)
	assert.Equal(t, []string{"float volume"}, utils[0].Fields)
	assert.Equal(t, []string{"int port"}, utils[1].Fields)
	assert.Equal(t, 2, snapshot.TypeCount)
}

func TestCodeAnalyzer_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Scripts")
	analyzer := newTestAnalyzer(t, root)

	snapshot, err := analyzer.Refresh(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snapshot.Flat)
	assert.Equal(t, "Scripts", snapshot.Root.Name)
	assert.Empty(t, snapshot.Root.Files)
	assert.Empty(t, snapshot.Root.Subfolders)
	assert.Len(t, snapshot.Warnings(models.MissingRoot), 1)
	assert.Same(t, snapshot, analyzer.Snapshot())
}

func TestCodeAnalyzer_UnterminatedDeclarationIsReported(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Broken.cs", "class Broken { public int x;")

	snapshot, err := newTestAnalyzer(t, root).Refresh(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshot.Root.Files, 1)
	require.Len(t, snapshot.Root.Files[0].Classes, 1)
	assert.Empty(t, snapshot.Root.Files[0].Classes[0].Fields)
	assert.Len(t, snapshot.Warnings(models.MalformedDeclaration), 1)
}

func TestCodeAnalyzer_UnreadableFileIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Good.cs", "class Good { }")
	// a dangling link is listed by the walker but cannot be read
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "Ghost.cs")))

	snapshot, err := newTestAnalyzer(t, root).Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, snapshot.FileCount)
	assert.Len(t, snapshot.Warnings(models.FileReadFailure), 1)
	assert.Equal(t, "Ghost.cs", snapshot.Diagnostics[0].Path)
	assert.NotContains(t, snapshot.Flat, "File: Assets/Scripts/Ghost.cs")
	assert.Contains(t, snapshot.Flat, "File: Assets/Scripts/Good.cs")
}

func TestCodeAnalyzer_CancelledRefreshDoesNotPublish(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Foo.cs", "class Foo { }")
	analyzer := newTestAnalyzer(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := analyzer.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, analyzer.Snapshot())
}

func TestCodeAnalyzer_ConcurrentRefreshes(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"A", "B", "C", "D"} {
		writeSource(t, root, name+"/"+name+".cs", "class "+name+" { public int v; }")
	}
	analyzer := newTestAnalyzer(t, root)

	var wg sync.WaitGroup
	fingerprints := make([]uint64, 8)
	for i := range fingerprints {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshot, err := analyzer.Refresh(context.Background())
			if assert.NoError(t, err) {
				fingerprints[i] = snapshot.Fingerprint
			}
		}()
	}
	wg.Wait()

	for _, fp := range fingerprints {
		assert.Equal(t, fingerprints[0], fp)
	}
	assert.Equal(t, 4, analyzer.Snapshot().TypeCount)
}

func TestCodeAnalyzer_CancelledCallerDoesNotFailOthers(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("Type%03d", i)
		writeSource(t, root, "Many/"+name+".cs", "class "+name+" { public int v; public void Run() {} }")
	}
	analyzer := newTestAnalyzer(t, root, func(o *Options) { o.Workers = 1 })

	cancelled, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = analyzer.Refresh(cancelled)
	}()
	cancel()

	snapshot, err := analyzer.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, snapshot.TypeCount)
	wg.Wait()
}

func TestCodeAnalyzer_SharedScanOutlivesSingleCaller(t *testing.T) {
	analyzer := newTestAnalyzer(t, t.TempDir())

	first := analyzer.joinFlight(context.Background())
	second := analyzer.joinFlight(context.Background())
	require.Same(t, first, second)

	analyzer.leaveFlight(first)
	assert.NoError(t, first.ctx.Err())

	analyzer.leaveFlight(second)
	assert.ErrorIs(t, first.ctx.Err(), context.Canceled)

	next := analyzer.joinFlight(context.Background())
	assert.NotSame(t, first, next)
	analyzer.leaveFlight(next)
}

func TestCodeAnalyzer_LaxAttribution(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "AB.cs", twoClassSource)

	analyzer := newTestAnalyzer(t, root, func(o *Options) { o.FlatAttribution = LaxAttribution })
	snapshot, err := analyzer.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"File: Assets/Scripts/AB.cs",
		"  Class: A",
		"    Field: int a",
		"    Field: int b",
		"    Method: void Run()",
		"  Class: B",
		"    Field: int b",
		"    Method: void Run()",
	}, snapshot.Flat)

	// the hierarchy always uses brace scoping
	require.Len(t, snapshot.Root.Files[0].Classes, 2)
	assert.Equal(t, []string{"int a"}, snapshot.Root.Files[0].Classes[0].Fields)
}

func TestCodeAnalyzer_UsesExtractionCache(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Foo.cs", "class Foo { public int x; }")

	cacheManager, err := NewCacheManager(t.TempDir())
	require.NoError(t, err)
	analyzer := newTestAnalyzer(t, root, func(o *Options) { o.CacheManager = cacheManager })

	first, err := analyzer.Refresh(context.Background())
	require.NoError(t, err)
	second, err := analyzer.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Root, second.Root)

	stats, err := analyzer.GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["cache_hits"])
	assert.Equal(t, int64(1), stats["cache_misses"])

	writeSource(t, root, "Foo.cs", "class Foo { public int y; }")
	third, err := analyzer.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"int y"}, third.Root.Files[0].Classes[0].Fields)

	require.NoError(t, analyzer.ClearCache())
}

func TestCodeAnalyzer_CacheFollowsTypeKeywords(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "Foo.cs", "class Foo { public int x; }\nstruct Bar { public float y; }")
	cacheDir := t.TempDir()

	refresh := func(keywords ...string) *models.Snapshot {
		cacheManager, err := NewCacheManager(cacheDir)
		require.NoError(t, err)
		analyzer := newTestAnalyzer(t, root, func(o *Options) {
			o.TypeKeywords = keywords
			o.Extractor = NewPatternExtractor(keywords)
			o.CacheManager = cacheManager
		})
		snapshot, err := analyzer.Refresh(context.Background())
		require.NoError(t, err)
		return snapshot
	}

	assert.Equal(t, 1, refresh("class").TypeCount)

	warm := refresh("class", "struct")
	assert.Equal(t, 2, warm.TypeCount)
	assert.Contains(t, warm.Flat, "  Class: Bar")

	assert.Equal(t, 1, refresh("class").TypeCount)
}

func TestCodeAnalyzer_CacheDisabled(t *testing.T) {
	analyzer := newTestAnalyzer(t, t.TempDir())

	stats, err := analyzer.GetCacheStats()
	require.NoError(t, err)
	assert.Equal(t, false, stats["cache_enabled"])
	assert.NoError(t, analyzer.ClearCache())
}

func TestNewCodeAnalyzer_RequiresRoot(t *testing.T) {
	_, err := NewCodeAnalyzer(Options{})
	assert.Error(t, err)
}

func TestNewExtractor(t *testing.T) {
	pattern, err := NewExtractor("", nil)
	require.NoError(t, err)
	assert.Equal(t, "pattern:class", pattern.Name())

	treesitter, err := NewExtractor("TreeSitter", nil)
	require.NoError(t, err)
	assert.Equal(t, "treesitter:class", treesitter.Name())

	keyed, err := NewExtractor("pattern", []string{"struct", "class", "struct"})
	require.NoError(t, err)
	assert.Equal(t, "pattern:class,struct", keyed.Name())

	_, err = NewExtractor("roslyn", nil)
	assert.Error(t, err)
}
