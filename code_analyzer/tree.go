package code_analyzer

import (
	"path"
	"strings"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/zeebo/xxh3"
)

// InsertFile places a file under root, creating every missing folder of
// relativePath on the way. relativePath is relative to the scan root and
// slash separated; logicalPath is what the FileNode records.
func InsertFile(root *models.FolderNode, relativePath string, logicalPath string, declarations []models.Declaration) *models.FileNode {
	current := root
	segments := strings.Split(relativePath, "/")
	for _, segment := range segments[:len(segments)-1] {
		if segment == "" || segment == "." {
			continue
		}
		next := current.Subfolder(segment)
		if next == nil {
			next = models.NewFolderNode(segment)
			current.Subfolders = append(current.Subfolders, next)
		}
		current = next
	}

	fileNode := &models.FileNode{
		RelativePath: logicalPath,
		Classes:      TypeNodes(declarations),
	}
	current.Files = append(current.Files, fileNode)
	return fileNode
}

// TypeNodes converts declarations into type nodes, keeping the first
// declaration of each name.
func TypeNodes(declarations []models.Declaration) []*models.TypeNode {
	nodes := make([]*models.TypeNode, 0, len(declarations))
	seen := make(map[string]struct{}, len(declarations))
	for _, decl := range declarations {
		if _, dup := seen[decl.Name]; dup {
			continue
		}
		seen[decl.Name] = struct{}{}
		nodes = append(nodes, &models.TypeNode{
			Name:       decl.Name,
			BaseType:   decl.BaseType,
			Interfaces: uniqueStrings(decl.Interfaces),
			Fields:     uniqueStrings(decl.Fields),
			Methods:    uniqueStrings(decl.Methods),
		})
	}
	return nodes
}

// LogicalPath joins the logical prefix and a scan-root relative path.
func LogicalPath(prefix string, relativePath string) string {
	prefix = strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/")
	if prefix == "" {
		return relativePath
	}
	return path.Join(prefix, relativePath)
}

// Fingerprint hashes the content of a tree and a flat index. Equal content
// gives equal fingerprints regardless of node identity.
func Fingerprint(root *models.FolderNode, flat []string) uint64 {
	h := xxh3.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.WriteString(p)
			_, _ = h.Write([]byte{0})
		}
	}

	var walkFolder func(folder *models.FolderNode)
	walkFolder = func(folder *models.FolderNode) {
		write("d", folder.Name)
		for _, file := range folder.Files {
			write("f", file.RelativePath)
			for _, cls := range file.Classes {
				write("t", cls.Name, cls.BaseType)
				write(cls.Interfaces...)
				write("|")
				write(cls.Fields...)
				write("|")
				write(cls.Methods...)
			}
		}
		for _, sub := range folder.Subfolders {
			walkFolder(sub)
		}
		write("/d")
	}
	if root != nil {
		walkFolder(root)
	}
	write("flat")
	write(flat...)

	return h.Sum64()
}

func uniqueStrings(items []string) []string {
	set := newOrderedSet()
	for _, item := range items {
		set.Add(item)
	}
	return set.Items()
}
