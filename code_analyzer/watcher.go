package code_analyzer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the watcher waits after the last relevant
// event before refreshing.
const DefaultDebounce = 500 * time.Millisecond

// RefreshFunc receives the snapshot before and after a watch triggered refresh.
type RefreshFunc func(previous *models.Snapshot, current *models.Snapshot)

// Watcher triggers a full refresh of an analyzer when source files below its
// root change.
type Watcher struct {
	analyzer  *CodeAnalyzer
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	onRefresh RefreshFunc
	logger    zerolog.Logger
}

// NewWatcher registers every folder below the analyzer's root. The root must exist.
func NewWatcher(analyzer *CodeAnalyzer, debounce time.Duration, onRefresh RefreshFunc) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		analyzer:  analyzer,
		watcher:   fsWatcher,
		debounce:  debounce,
		onRefresh: onRefresh,
		logger:    analyzer.logger,
	}

	if err := w.addDirectories(analyzer.rootDir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Run blocks until ctx is done. Bursts of events collapse into one refresh.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	changed := 0

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			changed++

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectories(event.Name); err != nil {
						w.logger.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new folder")
					}
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Debug().Int("events", changed).Msg("change detected, refreshing")
			changed = 0
			w.refresh(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) {
	previous := w.analyzer.Snapshot()
	current, err := w.analyzer.Refresh(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("refresh after change failed")
		return
	}
	if w.onRefresh != nil {
		w.onRefresh(previous, current)
	}
}

// relevant reports whether an event can change the index: writes, creations,
// removals and renames of source files or of folders.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	relPath, err := filepath.Rel(w.analyzer.rootDir, event.Name)
	if err != nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}
	if w.analyzer.walker.Ignore.Matches(relPath, isDir) {
		return false
	}
	if isDir || w.analyzer.walker.hasExtension(event.Name) {
		return true
	}
	// a removed folder can no longer be stat'ed
	return !event.Has(fsnotify.Write) && filepath.Ext(event.Name) == ""
}

func (w *Watcher) addDirectories(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			w.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable folder")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if relPath, err := filepath.Rel(w.analyzer.rootDir, path); err == nil && relPath != "." {
			if w.analyzer.walker.Ignore.Matches(filepath.ToSlash(relPath), true) {
				return filepath.SkipDir
			}
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("failed to watch folder")
		}
		return nil
	})
}
