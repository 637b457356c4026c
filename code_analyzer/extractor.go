package code_analyzer

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/meysamhadeli/scriptindex/code_analyzer/contracts"
	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
)

const (
	visibilityPattern = `(?:public|private|protected|internal)`
	modifierPattern   = `(?:(?:static|readonly|const|virtual|override|abstract|sealed|async|new|extern|unsafe|volatile|partial)\s+)*`
	typeTokenPattern  = `([\w<>\[\]]+)`
)

var (
	fieldRegex  = regexp.MustCompile(`\b` + visibilityPattern + `\s+` + modifierPattern + typeTokenPattern + `\s+(\w+)\s*(?:=|;)`)
	methodRegex = regexp.MustCompile(`\b` + visibilityPattern + `\s+` + modifierPattern + typeTokenPattern + `\s+(\w+)\s*\(([^)]*)\)`)
)

// DefaultTypeKeywords are the keywords that introduce a type declaration.
var DefaultTypeKeywords = []string{"class"}

// PatternExtractor finds declarations with regular expressions and brace matching.
// It does not understand comments, strings or preprocessor directives.
type PatternExtractor struct {
	name      string
	typeRegex *regexp.Regexp
}

// NewPatternExtractor builds an extractor for the given declaration keywords.
func NewPatternExtractor(keywords []string) contracts.IDeclarationExtractor {
	return &PatternExtractor{
		name:      extractorName("pattern", keywords),
		typeRegex: regexp.MustCompile(typeDeclarationPattern(keywords)),
	}
}

// extractorName identifies an extractor together with its keyword set, so
// cached results of one configuration are never served to another.
func extractorName(kind string, keywords []string) string {
	if len(keywords) == 0 {
		keywords = DefaultTypeKeywords
	}
	sorted := append([]string(nil), keywords...)
	slices.Sort(sorted)
	return kind + ":" + strings.Join(slices.Compact(sorted), ",")
}

func typeDeclarationPattern(keywords []string) string {
	if len(keywords) == 0 {
		keywords = DefaultTypeKeywords
	}
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	// name, optional generic parameters, optional ": parents", then the opening brace
	return fmt.Sprintf(`\b(?:%s)\s+(\w+)(?:\s*<[^<>{}]*>)?(?:\s*:\s*([\w\s,<>]+))?\s*\{`, strings.Join(quoted, "|"))
}

func (e *PatternExtractor) Name() string {
	return e.name
}

// ExtractDeclarations returns the declarations of source in order of appearance.
// A name already seen in the same text is skipped without scanning its body.
func (e *PatternExtractor) ExtractDeclarations(source string) []models.Declaration {
	var declarations []models.Declaration
	seen := make(map[string]struct{})

	for _, loc := range e.typeRegex.FindAllStringSubmatchIndex(source, -1) {
		name := source[loc[2]:loc[3]]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		decl := models.Declaration{
			Name:       name,
			Offset:     loc[0],
			Interfaces: []string{},
			Fields:     []string{},
			Methods:    []string{},
		}
		if loc[4] >= 0 {
			decl.BaseType, decl.Interfaces = SplitParents(source[loc[4]:loc[5]])
		}

		// the match always ends on the opening brace
		bodyStart := loc[1] - 1
		bodyEnd := FindMatchingBrace(source, bodyStart)
		if bodyEnd > bodyStart {
			body := source[bodyStart+1 : bodyEnd]
			decl.Fields = ExtractFields(body)
			decl.Methods = ExtractMethods(body)
		} else {
			decl.Unterminated = true
		}

		declarations = append(declarations, decl)
	}

	return declarations
}

// FindMatchingBrace returns the index of the brace closing the one at startIndex,
// or -1 when the text ends first.
func FindMatchingBrace(text string, startIndex int) int {
	if startIndex < 0 {
		return -1
	}
	depth := 0
	for i := startIndex; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth == 0 {
			return i
		}
	}
	return -1
}

// SplitParents splits an inheritance list into the base type and the interfaces.
func SplitParents(list string) (string, []string) {
	var tokens []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tokens = append(tokens, part)
		}
	}
	if len(tokens) == 0 {
		return "", []string{}
	}
	interfaces := make([]string, 0, len(tokens)-1)
	interfaces = append(interfaces, tokens[1:]...)
	return tokens[0], interfaces
}

// ExtractFields returns "type name" for every field-like declaration in text.
func ExtractFields(text string) []string {
	fields := newOrderedSet()
	for _, m := range fieldRegex.FindAllStringSubmatch(text, -1) {
		fields.Add(m[1] + " " + m[2])
	}
	return fields.Items()
}

// ExtractMethods returns "returnType name(params)" for every method-like
// declaration in text.
func ExtractMethods(text string) []string {
	methods := newOrderedSet()
	for _, m := range methodRegex.FindAllStringSubmatch(text, -1) {
		// parameter lists spanning lines collapse to one line
		params := strings.Join(strings.Fields(m[3]), " ")
		methods.Add(fmt.Sprintf("%s %s(%s)", m[1], m[2], params))
	}
	return methods.Items()
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) Add(item string) bool {
	if _, ok := s.seen[item]; ok {
		return false
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

func (s *orderedSet) Items() []string {
	return s.items
}
