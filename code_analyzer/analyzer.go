package code_analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/meysamhadeli/scriptindex/code_analyzer/contracts"
	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/meysamhadeli/scriptindex/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Options configures a CodeAnalyzer.
type Options struct {
	// RootDir is the directory that is scanned.
	RootDir string
	// PathPrefix is prepended to scan-root relative paths in the output.
	PathPrefix      string
	Extension       string
	TypeKeywords    []string
	FlatAttribution FlatAttribution
	// Extractor defaults to a PatternExtractor for TypeKeywords.
	Extractor      contracts.IDeclarationExtractor
	Workers        int
	MaxFileSize    int64
	IgnorePatterns []string
	// CacheManager enables the extraction cache when set.
	CacheManager *CacheManager
	Logger       *zerolog.Logger
}

// CodeAnalyzer owns the published index and replaces it on every refresh.
type CodeAnalyzer struct {
	rootDir      string
	pathPrefix   string
	workers      int
	walker       *Walker
	extractor    contracts.IDeclarationExtractor
	flat         *FlatIndexer
	cacheManager *CacheManager
	logger       zerolog.Logger

	current atomic.Pointer[models.Snapshot]
	group   singleflight.Group

	flightMu sync.Mutex
	flight   *refreshFlight
}

// refreshFlight is the context of the scan shared by overlapping Refresh
// calls. It is cancelled once every caller waiting on it has left.
type refreshFlight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

var _ contracts.ICodeAnalyzer = (*CodeAnalyzer)(nil)

// NewCodeAnalyzer validates the options and builds an analyzer. No files are
// read until Refresh is called.
func NewCodeAnalyzer(opts Options) (*CodeAnalyzer, error) {
	if strings.TrimSpace(opts.RootDir) == "" {
		return nil, errors.New("root directory is required")
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	ignore, err := utils.NewIgnoreMatcher(opts.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	mode := opts.FlatAttribution
	if mode == "" {
		mode = ScopedAttribution
	}

	extractor := opts.Extractor
	if extractor == nil {
		extractor = NewPatternExtractor(opts.TypeKeywords)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &CodeAnalyzer{
		rootDir:    filepath.Clean(opts.RootDir),
		pathPrefix: opts.PathPrefix,
		workers:    workers,
		walker: &Walker{
			Extension:   opts.Extension,
			MaxFileSize: opts.MaxFileSize,
			Ignore:      ignore,
			Logger:      logger,
		},
		extractor:    extractor,
		flat:         NewFlatIndexer(mode, opts.TypeKeywords),
		cacheManager: opts.CacheManager,
		logger:       logger,
	}, nil
}

// NewExtractor returns the extractor registered under name.
func NewExtractor(name string, keywords []string) (contracts.IDeclarationExtractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pattern":
		return NewPatternExtractor(keywords), nil
	case "treesitter", "tree-sitter":
		return NewTreeSitterExtractor(keywords), nil
	default:
		return nil, fmt.Errorf("unknown extractor %q (want \"pattern\" or \"treesitter\")", name)
	}
}

// RootDir returns the scanned directory.
func (analyzer *CodeAnalyzer) RootDir() string {
	return analyzer.rootDir
}

// Refresh rescans the whole root and publishes a new snapshot. Concurrent
// calls share one scan; a caller whose ctx ends stops waiting, and the scan
// itself is cancelled only when no caller is left. A missing root is not an
// error: the snapshot is empty and carries a MissingRoot diagnostic.
func (analyzer *CodeAnalyzer) Refresh(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refresh cancelled: %w", err)
	}

	flight := analyzer.joinFlight(ctx)
	defer analyzer.leaveFlight(flight)

	for {
		results := analyzer.group.DoChan("refresh", func() (interface{}, error) {
			return analyzer.refresh(flight.ctx)
		})

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("refresh cancelled: %w", ctx.Err())
		case result := <-results:
			if result.Err == nil {
				return result.Val.(*models.Snapshot), nil
			}
			// joined a scan abandoned by all of its own callers
			if errors.Is(result.Err, context.Canceled) && flight.ctx.Err() == nil {
				continue
			}
			return nil, result.Err
		}
	}
}

func (analyzer *CodeAnalyzer) joinFlight(ctx context.Context) *refreshFlight {
	analyzer.flightMu.Lock()
	defer analyzer.flightMu.Unlock()

	if analyzer.flight == nil {
		flightCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		analyzer.flight = &refreshFlight{ctx: flightCtx, cancel: cancel}
	}
	analyzer.flight.waiters++
	return analyzer.flight
}

func (analyzer *CodeAnalyzer) leaveFlight(flight *refreshFlight) {
	analyzer.flightMu.Lock()
	defer analyzer.flightMu.Unlock()

	flight.waiters--
	if flight.waiters > 0 {
		return
	}
	flight.cancel()
	if analyzer.flight == flight {
		analyzer.flight = nil
	}
}

func (analyzer *CodeAnalyzer) refresh(ctx context.Context) (*models.Snapshot, error) {
	started := time.Now()

	snapshot := &models.Snapshot{
		ID:          uuid.NewString(),
		CreatedAt:   started,
		Root:        models.NewFolderNode(filepath.Base(analyzer.rootDir)),
		Flat:        []string{},
		Diagnostics: []models.Diagnostic{},
	}

	files, err := analyzer.walker.Walk(analyzer.rootDir)
	if errors.Is(err, ErrMissingRoot) {
		analyzer.logger.Warn().Str("root", analyzer.rootDir).Msg("scripts folder not found")
		snapshot.Diagnostics = append(snapshot.Diagnostics, models.Diagnostic{
			Kind:    models.MissingRoot,
			Path:    analyzer.rootDir,
			Message: fmt.Sprintf("scripts folder not found: %s", analyzer.rootDir),
		})
		analyzer.publish(snapshot)
		return snapshot, nil
	}
	if err != nil {
		return nil, err
	}

	results, err := analyzer.extractAll(ctx, files)
	if err != nil {
		return nil, err
	}

	// single-threaded reduction in walk order
	for _, result := range results {
		if result.Err != nil {
			analyzer.logger.Warn().Err(result.Err).Str("file", result.File.RelativePath).Msg("skipping unreadable file")
			snapshot.Diagnostics = append(snapshot.Diagnostics, models.Diagnostic{
				Kind:    models.FileReadFailure,
				Path:    result.File.RelativePath,
				Message: result.Err.Error(),
			})
			continue
		}

		logicalPath := LogicalPath(analyzer.pathPrefix, result.File.RelativePath)
		InsertFile(snapshot.Root, result.File.RelativePath, logicalPath, result.Declarations)
		snapshot.Flat = append(snapshot.Flat, result.FlatEntries...)

		for _, decl := range result.Declarations {
			if !decl.Unterminated {
				continue
			}
			analyzer.logger.Warn().Str("file", logicalPath).Str("type", decl.Name).Msg("no closing brace for declaration")
			snapshot.Diagnostics = append(snapshot.Diagnostics, models.Diagnostic{
				Kind:    models.MalformedDeclaration,
				Path:    logicalPath,
				Message: fmt.Sprintf("no closing brace for %s", decl.Name),
			})
		}
	}

	snapshot.FileCount, snapshot.TypeCount = snapshot.Root.Counts()
	snapshot.Fingerprint = Fingerprint(snapshot.Root, snapshot.Flat)
	analyzer.publish(snapshot)

	analyzer.logger.Info().
		Int("files", snapshot.FileCount).
		Int("types", snapshot.TypeCount).
		Int("entries", len(snapshot.Flat)).
		Int("diagnostics", len(snapshot.Diagnostics)).
		Dur("took", time.Since(started)).
		Msg("project index refreshed")

	return snapshot, nil
}

// extractAll reads and extracts every file on a bounded pool. Results keep
// the order of files.
func (analyzer *CodeAnalyzer) extractAll(ctx context.Context, files []models.SourceFile) ([]models.FileResult, error) {
	results := make([]models.FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analyzer.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = analyzer.processFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("refresh cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refresh cancelled: %w", err)
	}

	return results, nil
}

func (analyzer *CodeAnalyzer) processFile(file models.SourceFile) models.FileResult {
	content, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return models.FileResult{File: file, Err: fmt.Errorf("failed to read file: %s, error: %w", file.RelativePath, err)}
	}
	source := normalizeSource(content)

	var declarations []models.Declaration
	cached := false
	if analyzer.cacheManager != nil {
		declarations, cached = analyzer.cacheManager.GetDeclarations(analyzer.extractor.Name(), file.RelativePath, content)
	}
	if !cached {
		declarations = analyzer.extractor.ExtractDeclarations(source)
		if analyzer.cacheManager != nil {
			if err := analyzer.cacheManager.SetDeclarations(analyzer.extractor.Name(), file.RelativePath, content, declarations); err != nil {
				analyzer.logger.Debug().Err(err).Str("file", file.RelativePath).Msg("failed to cache declarations")
			}
		}
	}

	logicalPath := LogicalPath(analyzer.pathPrefix, file.RelativePath)
	return models.FileResult{
		File:         file,
		Declarations: declarations,
		FlatEntries:  analyzer.flat.Entries(logicalPath, source, declarations),
	}
}

// normalizeSource drops a UTF-8 byte order mark and converts CRLF to LF.
func normalizeSource(content []byte) string {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	return strings.ReplaceAll(string(content), "\r\n", "\n")
}

func (analyzer *CodeAnalyzer) publish(snapshot *models.Snapshot) {
	analyzer.current.Store(snapshot)
}

// Snapshot returns the last published snapshot, or nil before the first refresh.
func (analyzer *CodeAnalyzer) Snapshot() *models.Snapshot {
	return analyzer.current.Load()
}

// FlatIndex returns the flat entries of the last snapshot.
func (analyzer *CodeAnalyzer) FlatIndex() []string {
	if snapshot := analyzer.current.Load(); snapshot != nil {
		return snapshot.Flat
	}
	return nil
}

// Hierarchy returns the folder tree of the last snapshot.
func (analyzer *CodeAnalyzer) Hierarchy() *models.FolderNode {
	if snapshot := analyzer.current.Load(); snapshot != nil {
		return snapshot.Root
	}
	return nil
}

func (analyzer *CodeAnalyzer) GetCacheStats() (map[string]interface{}, error) {
	if analyzer.cacheManager == nil {
		return map[string]interface{}{"cache_enabled": false}, nil
	}
	return analyzer.cacheManager.GetCacheStats()
}

func (analyzer *CodeAnalyzer) ClearCache() error {
	if analyzer.cacheManager == nil {
		return nil
	}
	return analyzer.cacheManager.ClearCache()
}

// CleanExpiredCache removes cache entries older than maxAge and returns how
// many were removed.
func (analyzer *CodeAnalyzer) CleanExpiredCache(maxAge time.Duration) (int, error) {
	if analyzer.cacheManager == nil {
		return 0, nil
	}
	return analyzer.cacheManager.CleanExpiredCache(maxAge)
}
