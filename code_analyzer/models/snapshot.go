package models

import "time"

// DiagnosticKind classifies non-fatal refresh problems.
type DiagnosticKind string

const (
	MissingRoot          DiagnosticKind = "missing_root"
	FileReadFailure      DiagnosticKind = "file_read_failure"
	MalformedDeclaration DiagnosticKind = "malformed_declaration"
)

// Diagnostic is a problem recorded during a refresh that did not stop it.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Path    string         `json:"path"`
	Message string         `json:"message"`
}

// Snapshot is the result of one full refresh. It is never mutated after
// it has been published.
type Snapshot struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	Root        *FolderNode  `json:"root"`
	Flat        []string     `json:"flat"`
	FileCount   int          `json:"file_count"`
	TypeCount   int          `json:"type_count"`
	Fingerprint uint64       `json:"fingerprint"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Warnings returns the messages of all diagnostics of the given kind.
func (s *Snapshot) Warnings(kind DiagnosticKind) []string {
	var messages []string
	for _, d := range s.Diagnostics {
		if d.Kind == kind {
			messages = append(messages, d.Message)
		}
	}
	return messages
}
