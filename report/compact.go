// Package report renders and persists the results of a refresh.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
)

const (
	FlatFileName    = "ProjectIndex.txt"
	JSONFileName    = "ProjectCodeHierarchyIndex.json"
	CompactFileName = "ProjectCodeHierarchy.compact.txt"
	SQLiteFileName  = "ProjectCodeHierarchy.db"
)

// RenderCompact flattens a hierarchy into the indented text report. For each
// file: its path, then per distinct type a header line followed by its fields
// and methods, then a blank line. Folders list their files before their
// subfolders.
//
// Example output:
//
//	Assets/Scripts/A/Foo.cs
//	  Foo : Base | IA | IB
//	    int x
//	    void Bar()
func RenderCompact(root *models.FolderNode) string {
	var b strings.Builder
	if root == nil {
		return ""
	}
	root.Walk(func(_ *models.FolderNode, file *models.FileNode) {
		writeCompactFile(&b, file)
	})
	return b.String()
}

func writeCompactFile(b *strings.Builder, file *models.FileNode) {
	b.WriteString(file.RelativePath)
	b.WriteByte('\n')

	emitted := make(map[string]struct{}, len(file.Classes))
	for _, cls := range file.Classes {
		if _, dup := emitted[cls.Name]; dup {
			continue
		}
		emitted[cls.Name] = struct{}{}

		b.WriteString("  ")
		b.WriteString(typeHeader(cls))
		b.WriteByte('\n')

		for _, field := range cls.Fields {
			fmt.Fprintf(b, "    %s\n", field)
		}
		for _, method := range cls.Methods {
			fmt.Fprintf(b, "    %s\n", method)
		}
	}

	b.WriteByte('\n')
}

func typeHeader(cls *models.TypeNode) string {
	parents := make([]string, 0, len(cls.Interfaces)+1)
	if cls.BaseType != "" {
		parents = append(parents, cls.BaseType)
	}
	parents = append(parents, cls.Interfaces...)
	if len(parents) == 0 {
		return cls.Name
	}
	return cls.Name + " : " + strings.Join(parents, " | ")
}

// WriteCompact writes the compact report to w.
func WriteCompact(w io.Writer, root *models.FolderNode) error {
	if _, err := io.WriteString(w, RenderCompact(root)); err != nil {
		return fmt.Errorf("failed to write compact report: %w", err)
	}
	return nil
}

// SaveCompact writes the compact report to path.
func SaveCompact(path string, root *models.FolderNode) error {
	return writeFile(path, RenderCompact(root))
}

func writeFile(path string, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
