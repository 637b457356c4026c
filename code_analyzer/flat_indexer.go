package code_analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
)

// FlatAttribution selects how the flat index assigns members to types.
type FlatAttribution string

const (
	// ScopedAttribution uses the members inside each type's matched braces.
	ScopedAttribution FlatAttribution = "scoped"
	// LaxAttribution gives a type every member found after its declaration
	// anywhere later in the file, including members of later types.
	LaxAttribution FlatAttribution = "lax"
)

// ParseFlatAttribution converts a config value into a FlatAttribution.
func ParseFlatAttribution(value string) (FlatAttribution, error) {
	switch FlatAttribution(strings.ToLower(strings.TrimSpace(value))) {
	case ScopedAttribution, "":
		return ScopedAttribution, nil
	case LaxAttribution:
		return LaxAttribution, nil
	default:
		return "", fmt.Errorf("unknown flat attribution %q (want %q or %q)", value, ScopedAttribution, LaxAttribution)
	}
}

// FlatIndexer renders one file into flat index lines.
type FlatIndexer struct {
	mode     FlatAttribution
	laxRegex *regexp.Regexp
}

func NewFlatIndexer(mode FlatAttribution, keywords []string) *FlatIndexer {
	if len(keywords) == 0 {
		keywords = DefaultTypeKeywords
	}
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	return &FlatIndexer{
		mode:     mode,
		laxRegex: regexp.MustCompile(fmt.Sprintf(`\b(?:%s)\s+(\w+)`, strings.Join(quoted, "|"))),
	}
}

func (f *FlatIndexer) Mode() FlatAttribution {
	return f.mode
}

// Entries returns the lines for one file: the file line first, then per type
// its class line followed by its field and method lines.
func (f *FlatIndexer) Entries(relativePath string, source string, declarations []models.Declaration) []string {
	entries := []string{fileEntry(relativePath)}
	if f.mode == LaxAttribution {
		return append(entries, f.laxEntries(source)...)
	}
	for _, decl := range declarations {
		entries = append(entries, classEntry(decl.Name))
		for _, field := range decl.Fields {
			entries = append(entries, fieldEntry(field))
		}
		for _, method := range decl.Methods {
			entries = append(entries, methodEntry(method))
		}
	}
	return entries
}

func (f *FlatIndexer) laxEntries(source string) []string {
	var entries []string
	fields := fieldRegex.FindAllStringSubmatchIndex(source, -1)
	methods := methodRegex.FindAllStringSubmatchIndex(source, -1)

	for _, cls := range f.laxRegex.FindAllStringSubmatchIndex(source, -1) {
		entries = append(entries, classEntry(source[cls[2]:cls[3]]))
		for _, m := range fields {
			if m[0] > cls[0] {
				entries = append(entries, fieldEntry(source[m[2]:m[3]]+" "+source[m[4]:m[5]]))
			}
		}
		for _, m := range methods {
			if m[0] > cls[0] {
				params := strings.Join(strings.Fields(source[m[6]:m[7]]), " ")
				entries = append(entries, methodEntry(fmt.Sprintf("%s %s(%s)", source[m[2]:m[3]], source[m[4]:m[5]], params)))
			}
		}
	}
	return entries
}

const (
	filePrefix   = "File: "
	classPrefix  = "  Class: "
	fieldPrefix  = "    Field: "
	methodPrefix = "    Method: "
)

func fileEntry(path string) string     { return filePrefix + path }
func classEntry(name string) string    { return classPrefix + name }
func fieldEntry(field string) string   { return fieldPrefix + field }
func methodEntry(method string) string { return methodPrefix + method }

// IsFileEntry reports whether a flat entry starts a new file.
func IsFileEntry(entry string) bool {
	return strings.HasPrefix(entry, filePrefix)
}

// FileEntryPath returns the path of a file entry.
func FileEntryPath(entry string) string {
	return strings.TrimPrefix(entry, filePrefix)
}
