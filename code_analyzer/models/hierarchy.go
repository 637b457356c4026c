package models

// FolderNode is a folder of the scanned tree. Subfolder names are unique per parent.
type FolderNode struct {
	Name       string        `json:"name"`
	Subfolders []*FolderNode `json:"subfolders"`
	Files      []*FileNode   `json:"files"`
}

// FileNode is one source file with the types declared in it.
type FileNode struct {
	RelativePath string      `json:"relativePath"`
	Classes      []*TypeNode `json:"classes"`
}

// TypeNode is a declared type. Fields and Methods hold unique descriptors
// in order of first appearance.
type TypeNode struct {
	Name       string   `json:"name"`
	BaseType   string   `json:"baseType,omitempty"`
	Interfaces []string `json:"interfaces"`
	Fields     []string `json:"fields"`
	Methods    []string `json:"methods"`
}

// NewFolderNode returns an empty folder with non-nil child slices.
func NewFolderNode(name string) *FolderNode {
	return &FolderNode{
		Name:       name,
		Subfolders: []*FolderNode{},
		Files:      []*FileNode{},
	}
}

// Subfolder returns the direct child folder with the given name, or nil.
func (f *FolderNode) Subfolder(name string) *FolderNode {
	for _, sub := range f.Subfolders {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

// Walk visits the folder and its descendants depth first, a folder's files
// before its subfolders.
func (f *FolderNode) Walk(visit func(folder *FolderNode, file *FileNode)) {
	for _, file := range f.Files {
		visit(f, file)
	}
	for _, sub := range f.Subfolders {
		sub.Walk(visit)
	}
}

// Counts returns the number of files and types below the folder.
func (f *FolderNode) Counts() (files int, types int) {
	f.Walk(func(_ *FolderNode, file *FileNode) {
		files++
		types += len(file.Classes)
	})
	return files, types
}

// Class returns the type with the given name, or nil.
func (n *FileNode) Class(name string) *TypeNode {
	for _, cls := range n.Classes {
		if cls.Name == name {
			return cls
		}
	}
	return nil
}
