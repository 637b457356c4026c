package code_analyzer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/meysamhadeli/scriptindex/utils"
	"github.com/rs/zerolog"
)

// ErrMissingRoot is returned by Walk when the scan root does not exist.
var ErrMissingRoot = errors.New("scan root not found")

// Walker enumerates the source files below a root directory.
type Walker struct {
	Extension   string
	MaxFileSize int64
	Ignore      *utils.IgnoreMatcher
	Logger      zerolog.Logger
}

// Walk returns every file with the walker's extension below root, in lexical
// order. Unreadable folders are skipped.
func (w *Walker) Walk(root string) ([]models.SourceFile, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMissingRoot, root)
	}

	var files []models.SourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.Logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			return nil
		}
		if path == root {
			return nil
		}

		relativePath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)

		if w.Ignore.Matches(relativePath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !w.hasExtension(path) {
			return nil
		}

		var size int64
		if fileInfo, err := d.Info(); err == nil {
			size = fileInfo.Size()
		}
		if w.MaxFileSize > 0 && size > w.MaxFileSize {
			w.Logger.Debug().Str("file", relativePath).Int64("size", size).Msg("skipping large file")
			return nil
		}

		files = append(files, models.SourceFile{
			AbsPath:      path,
			RelativePath: relativePath,
			Size:         size,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return files, nil
}

func (w *Walker) hasExtension(path string) bool {
	ext := w.Extension
	if ext == "" {
		return true
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.EqualFold(filepath.Ext(path), ext)
}
