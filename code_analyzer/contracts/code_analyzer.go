package contracts

import (
	"context"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
)

// IDeclarationExtractor finds type declarations and their members in one file's text.
type IDeclarationExtractor interface {
	Name() string
	ExtractDeclarations(source string) []models.Declaration
}

type ICodeAnalyzer interface {
	Refresh(ctx context.Context) (*models.Snapshot, error)
	Snapshot() *models.Snapshot
	FlatIndex() []string
	Hierarchy() *models.FolderNode
	GetCacheStats() (map[string]interface{}, error)
	ClearCache() error
}
