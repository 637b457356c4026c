package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
)

// WriteJSON writes the hierarchy as indented JSON.
func WriteJSON(w io.Writer, root *models.FolderNode) error {
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode hierarchy: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write hierarchy: %w", err)
	}
	return nil
}

// ReadJSON decodes a hierarchy written by WriteJSON. Missing lists decode as
// empty lists.
func ReadJSON(r io.Reader) (*models.FolderNode, error) {
	var root models.FolderNode
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to decode hierarchy: %w", err)
	}
	normalize(&root)
	return &root, nil
}

// SaveJSON writes the hierarchy to path.
func SaveJSON(path string, root *models.FolderNode) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteJSON(f, root); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a hierarchy from path.
func LoadJSON(path string) (*models.FolderNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

func normalize(folder *models.FolderNode) {
	if folder.Subfolders == nil {
		folder.Subfolders = []*models.FolderNode{}
	}
	if folder.Files == nil {
		folder.Files = []*models.FileNode{}
	}
	for _, file := range folder.Files {
		if file.Classes == nil {
			file.Classes = []*models.TypeNode{}
		}
		for _, cls := range file.Classes {
			if cls.Interfaces == nil {
				cls.Interfaces = []string{}
			}
			if cls.Fields == nil {
				cls.Fields = []string{}
			}
			if cls.Methods == nil {
				cls.Methods = []string{}
			}
		}
	}
	for _, sub := range folder.Subfolders {
		normalize(sub)
	}
}
