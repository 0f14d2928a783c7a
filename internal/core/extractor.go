package core

import (
	"context"

	"github.com/markdave123-py/Docsift/internal/models"
)

// LayoutAnalyzer turns a binary document into pages, positioned lines and tables.
type LayoutAnalyzer interface {
	// Analyze parses data. The contentType and fileName hints select the parsing strategy.
	Analyze(ctx context.Context, data []byte, contentType, fileName string) (*models.AnalyzedDocument, error)
}
