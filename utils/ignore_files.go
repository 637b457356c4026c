package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

// IgnoreFileName is the optional per-project file listing extra ignore globs.
const IgnoreFileName = ".scriptindex-ignore"

// ignoreCacheEntry holds cached ignore patterns with metadata
type ignoreCacheEntry struct {
	patterns []string
	modTime  time.Time
}

// Global cache for ignore patterns
var (
	ignoreCache = make(map[string]*ignoreCacheEntry)
	cacheMutex  sync.RWMutex
)

// defaultIgnoredDirs are version control and editor folders, never descended into.
// Build output folders are only skipped through ignore patterns.
var defaultIgnoredDirs = []string{
	".git",
	".hg",
	".svn",
	".idea",
	".vs",
	".vscode",
}

// GetIgnorePatterns reads the patterns of the ignore file in cwd.
// A missing file yields an empty list. Results are cached by modification time.
func GetIgnorePatterns(cwd string) ([]string, error) {
	ignorePath := filepath.Join(cwd, IgnoreFileName)

	fileInfo, err := os.Stat(ignorePath)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error checking %s: %w", IgnoreFileName, err)
	}

	cacheMutex.RLock()
	if cached, exists := ignoreCache[ignorePath]; exists {
		if fileInfo.ModTime().Equal(cached.modTime) {
			cacheMutex.RUnlock()
			return cached.patterns, nil
		}
	}
	cacheMutex.RUnlock()

	patterns, err := readIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}

	cacheMutex.Lock()
	ignoreCache[ignorePath] = &ignoreCacheEntry{
		patterns: patterns,
		modTime:  fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return patterns, nil
}

// ClearIgnoreCache clears all cached ignore patterns
func ClearIgnoreCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	ignoreCache = make(map[string]*ignoreCacheEntry)
}

// IsDefaultIgnored reports whether any folder segment of a slash path is on the default ignore list.
func IsDefaultIgnored(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		for _, dir := range defaultIgnoredDirs {
			if strings.EqualFold(part, dir) {
				return true
			}
		}
	}
	return false
}

// readIgnoreFile returns the non-empty, non-comment lines of an ignore file.
func readIgnoreFile(ignorePath string) ([]string, error) {
	content, err := os.ReadFile(ignorePath)
	if err != nil {
		return nil, err
	}
	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// IgnoreMatcher matches scan-root relative slash paths against ignore globs.
type IgnoreMatcher struct {
	patterns []compiledPattern
}

// NewIgnoreMatcher compiles the given glob patterns ('/' separated).
func NewIgnoreMatcher(patterns []string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, compiledPattern{pattern: pattern, glob: g})
	}
	return m, nil
}

// Matches reports whether relPath should be skipped. For directories a
// pattern like "dir/**" also matches the directory itself.
func (m *IgnoreMatcher) Matches(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	if IsDefaultIgnored(relPath) {
		return true
	}
	if m == nil {
		return false
	}
	for _, p := range m.patterns {
		if p.glob.Match(relPath) {
			return true
		}
		if isDir && p.glob.Match(relPath+"/**") {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns of the matcher.
func (m *IgnoreMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.patterns))
	for _, p := range m.patterns {
		out = append(out, p.pattern)
	}
	return out
}
