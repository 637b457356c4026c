package models

// SourceFile is one file found by the walker.
type SourceFile struct {
	// AbsPath is the path on disk.
	AbsPath string
	// RelativePath is slash-normalized and relative to the scan root.
	RelativePath string
	Size         int64
}

// Declaration is a single type declaration found in one file's text.
type Declaration struct {
	Name       string
	BaseType   string
	Interfaces []string
	Fields     []string
	Methods    []string
	// Offset is the byte offset of the declaration in the source text.
	Offset int
	// Unterminated is set when no matching closing brace was found.
	Unterminated bool
}

// FileResult is the per-file output of the map phase of a refresh.
type FileResult struct {
	File         SourceFile
	Declarations []Declaration
	FlatEntries  []string
	Err          error
}
