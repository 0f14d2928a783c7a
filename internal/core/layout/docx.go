package layout

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/markdave123-py/Docsift/internal/models"
)

// DOCXAnalyzer emits paragraphs as lines and Word tables as formal tables.
// Heading-styled paragraphs keep their text; the segmenter classifies them.
type DOCXAnalyzer struct{}

func (a *DOCXAnalyzer) Analyze(ctx context.Context, data []byte, _, _ string) (*models.AnalyzedDocument, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var b pageBuilder
	for _, item := range doc.Document.Body.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch it := item.(type) {
		case *docx.Paragraph:
			b.addText(paragraphText(it))
		case *docx.Table:
			b.addTable(tableRows(it))
		}
	}
	return b.document(), nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func tableRows(t *docx.Table) [][]string {
	var rows [][]string
	for _, row := range t.TableRows {
		if row == nil {
			continue
		}
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			var parts []string
			if cell != nil {
				for _, p := range cell.Paragraphs {
					if s := paragraphText(p); s != "" {
						parts = append(parts, s)
					}
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		rows = append(rows, cells)
	}
	return rows
}
