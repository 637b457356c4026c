package report

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/meysamhadeli/scriptindex/code_analyzer"
)

// SelectEntries returns the flat entries of every file whose path matches
// one of the selectors. Each file keeps its own lines in order. With no
// selectors all entries are returned.
func SelectEntries(entries []string, selectors []string) ([]string, error) {
	if len(selectors) == 0 {
		return entries, nil
	}

	globs := make([]glob.Glob, 0, len(selectors))
	for _, selector := range selectors {
		g, err := glob.Compile(selector, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
		}
		globs = append(globs, g)
	}

	var selected []string
	keep := false
	for _, entry := range entries {
		if code_analyzer.IsFileEntry(entry) {
			keep = matchesAny(globs, code_analyzer.FileEntryPath(entry))
		}
		if keep {
			selected = append(selected, entry)
		}
	}
	return selected, nil
}

func matchesAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// BuildContext joins the selected entries into the context text handed to a
// downstream consumer.
func BuildContext(entries []string) string {
	return strings.Join(entries, "\n")
}
