package code_analyzer

import (
	"context"
	"slices"
	"strings"

	"github.com/meysamhadeli/scriptindex/code_analyzer/contracts"
	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

var visibilityModifiers = map[string]struct{}{
	"public":    {},
	"private":   {},
	"protected": {},
	"internal":  {},
}

// TreeSitterExtractor produces the same declarations as PatternExtractor from
// a real C# syntax tree. Members are taken from the type's own body only, so
// members of nested types are not attributed to the enclosing type.
type TreeSitterExtractor struct {
	name      string
	nodeTypes map[string]struct{}
	// recovery finds declarations inside regions the parser could not build
	recovery contracts.IDeclarationExtractor
}

// NewTreeSitterExtractor builds an extractor for the given declaration keywords.
func NewTreeSitterExtractor(keywords []string) contracts.IDeclarationExtractor {
	if len(keywords) == 0 {
		keywords = DefaultTypeKeywords
	}
	nodeTypes := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		nodeTypes[k+"_declaration"] = struct{}{}
	}
	return &TreeSitterExtractor{
		name:      extractorName("treesitter", keywords),
		nodeTypes: nodeTypes,
		recovery:  NewPatternExtractor(keywords),
	}
}

func (e *TreeSitterExtractor) Name() string {
	return e.name
}

func (e *TreeSitterExtractor) ExtractDeclarations(source string) []models.Declaration {
	src := []byte(source)

	// parsers are not safe for concurrent use
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(csharp.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	var declarations []models.Declaration
	seen := make(map[string]struct{})

	add := func(decl models.Declaration) {
		if _, dup := seen[decl.Name]; !dup {
			seen[decl.Name] = struct{}{}
			declarations = append(declarations, decl)
		}
	}

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "ERROR" {
			for _, decl := range e.recoverDeclarations(node, source) {
				add(decl)
			}
		} else if _, ok := e.nodeTypes[node.Type()]; ok {
			if decl, ok := e.declaration(node, src); ok {
				add(decl)
			}
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	root := tree.RootNode()
	walk(root)

	// a type left open at the end of the file may not be inside any ERROR node
	if root.HasError() {
		for _, decl := range e.recovery.ExtractDeclarations(source) {
			if decl.Unterminated {
				add(decl)
			}
		}
		slices.SortStableFunc(declarations, func(a, b models.Declaration) int {
			return a.Offset - b.Offset
		})
	}

	return declarations
}

// recoverDeclarations runs the pattern rules over the rest of the file and keeps the
// declarations that start inside the ERROR node. A type whose closing brace
// is missing comes back with Unterminated set.
func (e *TreeSitterExtractor) recoverDeclarations(node *sitter.Node, source string) []models.Declaration {
	start, end := int(node.StartByte()), int(node.EndByte())
	if start >= len(source) {
		return nil
	}

	var recovered []models.Declaration
	for _, decl := range e.recovery.ExtractDeclarations(source[start:]) {
		decl.Offset += start
		if decl.Offset >= end {
			break
		}
		recovered = append(recovered, decl)
	}
	return recovered
}

func (e *TreeSitterExtractor) declaration(node *sitter.Node, src []byte) (models.Declaration, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return models.Declaration{}, false
	}

	decl := models.Declaration{
		Name:       nameNode.Content(src),
		Offset:     int(node.StartByte()),
		Interfaces: []string{},
		Fields:     []string{},
		Methods:    []string{},
	}

	if bases := childOfType(node, "base_list"); bases != nil {
		var parents []string
		for i := 0; i < int(bases.NamedChildCount()); i++ {
			parents = append(parents, bases.NamedChild(i).Content(src))
		}
		decl.BaseType, decl.Interfaces = SplitParents(strings.Join(parents, ","))
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		body = childOfType(node, "declaration_list")
	}
	if body == nil || !closed(body) {
		decl.Unterminated = true
		return decl, true
	}

	fields := newOrderedSet()
	methods := newOrderedSet()
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if !hasVisibility(member, src) {
			continue
		}
		switch member.Type() {
		case "field_declaration":
			for _, f := range fieldDescriptors(member, src) {
				fields.Add(f)
			}
		case "method_declaration":
			if m, ok := methodDescriptor(member, src); ok {
				methods.Add(m)
			}
		}
	}
	decl.Fields = fields.Items()
	decl.Methods = methods.Items()

	return decl, true
}

func fieldDescriptors(member *sitter.Node, src []byte) []string {
	variables := childOfType(member, "variable_declaration")
	if variables == nil {
		return nil
	}
	typeNode := variables.ChildByFieldName("type")
	if typeNode == nil {
		return nil
	}
	typeName := typeNode.Content(src)

	var descriptors []string
	for i := 0; i < int(variables.NamedChildCount()); i++ {
		declarator := variables.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}
		name := declarator.ChildByFieldName("name")
		if name == nil {
			name = childOfType(declarator, "identifier")
		}
		if name != nil {
			descriptors = append(descriptors, typeName+" "+name.Content(src))
		}
	}
	return descriptors
}

func methodDescriptor(member *sitter.Node, src []byte) (string, bool) {
	returns := member.ChildByFieldName("returns")
	if returns == nil {
		returns = member.ChildByFieldName("type")
	}
	name := member.ChildByFieldName("name")
	params := member.ChildByFieldName("parameters")
	if returns == nil || name == nil || params == nil {
		return "", false
	}
	list := strings.TrimSuffix(strings.TrimPrefix(params.Content(src), "("), ")")
	list = strings.Join(strings.Fields(list), " ")
	return returns.Content(src) + " " + name.Content(src) + "(" + list + ")", true
}

func hasVisibility(node *sitter.Node, src []byte) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "modifier" {
			continue
		}
		if _, ok := visibilityModifiers[child.Content(src)]; ok {
			return true
		}
	}
	return false
}

// closed reports whether a declaration list ends with a real closing brace.
func closed(body *sitter.Node) bool {
	count := int(body.ChildCount())
	if count == 0 {
		return false
	}
	last := body.Child(count - 1)
	return last.Type() == "}" && !last.IsMissing()
}

func childOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == nodeType {
			return child
		}
	}
	return nil
}
