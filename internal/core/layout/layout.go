// Package layout turns uploaded files into pages of positioned lines and
// tables for the segmenter. PDF keeps real geometry; DOCX, Markdown, HTML and
// the docconv fallback produce geometry-free pages.
package layout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/models"
)

var ErrEmptyDocument = errors.New("layout: no text found")

// Router picks an analyzer from the content type, then from the file extension.
type Router struct {
	pdf      core.LayoutAnalyzer
	docx     core.LayoutAnalyzer
	markdown core.LayoutAnalyzer
	html     core.LayoutAnalyzer
	fallback core.LayoutAnalyzer
	log      *slog.Logger
}

func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		pdf:      &PDFAnalyzer{},
		docx:     &DOCXAnalyzer{},
		markdown: &MarkdownAnalyzer{},
		html:     &HTMLAnalyzer{},
		fallback: NewDocconvAnalyzer(false),
		log:      log,
	}
}

var _ core.LayoutAnalyzer = (*Router)(nil)

func (r *Router) Analyze(ctx context.Context, data []byte, contentType, fileName string) (*models.AnalyzedDocument, error) {
	a, kind := r.pick(contentType, fileName)
	r.log.Debug("analyzing document", "file", fileName, "content_type", contentType, "analyzer", kind)

	doc, err := a.Analyze(ctx, data, contentType, fileName)
	if err != nil {
		return nil, fmt.Errorf("%s analyzer: %w", kind, err)
	}
	if lineCount(doc) == 0 && len(doc.Tables) == 0 {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

func (r *Router) pick(contentType, fileName string) (core.LayoutAnalyzer, string) {
	ct := strings.ToLower(contentType)
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case strings.Contains(ct, "pdf") || ext == ".pdf":
		return r.pdf, "pdf"
	case strings.Contains(ct, "wordprocessingml") || ext == ".docx":
		return r.docx, "docx"
	case strings.Contains(ct, "markdown") || ext == ".md" || ext == ".markdown":
		return r.markdown, "markdown"
	case strings.Contains(ct, "html") || ext == ".html" || ext == ".htm":
		return r.html, "html"
	default:
		return r.fallback, "docconv"
	}
}

// ContentTypeFor guesses a content type from a file name.
func ContentTypeFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".md", ".markdown":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func lineCount(doc *models.AnalyzedDocument) int {
	if doc == nil {
		return 0
	}
	n := 0
	for _, p := range doc.Pages {
		n += len(p.Lines)
	}
	return n
}

// pageBuilder accumulates geometry-free lines and tables for text formats.
type pageBuilder struct {
	pages  []models.Page
	tables []models.Table
}

func (b *pageBuilder) current() *models.Page {
	if len(b.pages) == 0 {
		b.newPage()
	}
	return &b.pages[len(b.pages)-1]
}

func (b *pageBuilder) newPage() {
	b.pages = append(b.pages, models.Page{Number: len(b.pages) + 1})
}

func (b *pageBuilder) addText(text string) {
	for _, l := range strings.Split(text, "\n") {
		if strings.Contains(l, "\f") {
			parts := strings.Split(l, "\f")
			for i, part := range parts {
				if i > 0 {
					b.newPage()
				}
				b.addLine(part)
			}
			continue
		}
		b.addLine(l)
	}
}

func (b *pageBuilder) addLine(l string) {
	l = strings.TrimSpace(l)
	if l == "" {
		return
	}
	p := b.current()
	p.Lines = append(p.Lines, models.Line{Content: l, PageNumber: p.Number})
}

// addTable anchors rows (first row as header cells) before the next line of the current page.
func (b *pageBuilder) addTable(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	p := b.current()
	t := models.Table{
		RowCount: len(rows),
		Regions:  []models.BoundingRegion{{PageNumber: p.Number}},
		Anchor:   len(p.Lines),
	}
	for r, cells := range rows {
		t.ColumnCount = max(t.ColumnCount, len(cells))
		for c, text := range cells {
			kind := models.CellData
			if r == 0 {
				kind = models.CellHeader
			}
			t.Cells = append(t.Cells, models.TableCell{RowIndex: r, ColumnIndex: c, Content: text, Kind: kind})
		}
	}
	b.tables = append(b.tables, t)
}

func (b *pageBuilder) document() *models.AnalyzedDocument {
	return &models.AnalyzedDocument{Pages: b.pages, Tables: b.tables}
}
