package layout

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/markdave123-py/Docsift/internal/models"
)

// letterBox is used when neither a page nor its ancestors carry a readable MediaBox.
var letterBox = pageBox{x0: 0, y0: 0, x1: 612, y1: 792}

// maxTreeDepth bounds the walk up the page tree.
const maxTreeDepth = 32

// PDFAnalyzer reads positioned text rows with ledongthuc/pdf. PDF coordinates
// grow upward, so rows are flipped into top-down page coordinates.
type PDFAnalyzer struct{}

func (a *PDFAnalyzer) Analyze(ctx context.Context, data []byte, _, _ string) (*models.AnalyzedDocument, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	doc := &models.AnalyzedDocument{}
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		box := mediaBox(page)

		rows, err := page.GetTextByRow()
		if err != nil {
			// Pages with broken content streams are skipped, not fatal.
			continue
		}
		p := models.Page{Number: i, Width: box.width(), Height: box.height()}
		for _, row := range rows {
			if l, ok := rowLine(row, i, box); ok {
				p.Lines = append(p.Lines, l)
			}
		}
		sort.SliceStable(p.Lines, func(x, y int) bool {
			tx, _ := p.Lines[x].Polygon.TopY()
			ty, _ := p.Lines[y].Polygon.TopY()
			return tx < ty
		})
		doc.Pages = append(doc.Pages, p)
	}
	return doc, nil
}

// rowLine joins a row's words and flips its baseline into top-down
// coordinates relative to the page box, clamped to the page.
func rowLine(row *pdflib.Row, page int, box pageBox) (models.Line, bool) {
	if row == nil || len(row.Content) == 0 {
		return models.Line{}, false
	}
	words := make([]pdflib.Text, len(row.Content))
	copy(words, row.Content)
	sort.SliceStable(words, func(i, j int) bool { return words[i].X < words[j].X })

	var b strings.Builder
	x0, x1 := words[0].X, words[0].X
	yBase, size := words[0].Y, words[0].FontSize
	prevEnd := words[0].X
	for i, w := range words {
		if i > 0 && w.X-prevEnd > w.FontSize*0.25 && !strings.HasSuffix(b.String(), " ") {
			b.WriteByte(' ')
		}
		b.WriteString(w.S)
		prevEnd = w.X + w.W
		x1 = max(x1, w.X+w.W)
		size = max(size, w.FontSize)
	}
	text := strings.Join(strings.Fields(b.String()), " ")
	if text == "" {
		return models.Line{}, false
	}
	if size <= 0 {
		size = 10
	}

	h := box.height()
	clamp := func(v float64) float64 { return min(max(v, 0), h) }
	bottom := clamp(box.y1 - yBase)
	top := clamp(box.y1 - yBase - size)
	return models.Line{
		Content:    text,
		PageNumber: page,
		Polygon:    models.Rect(x0-box.x0, top, x1-box.x0, bottom),
	}, true
}

// pageBox is a MediaBox in PDF user space: lower-left and upper-right corners.
type pageBox struct {
	x0, y0, x1, y1 float64
}

func newPageBox(llx, lly, urx, ury float64) pageBox {
	b := pageBox{x0: min(llx, urx), y0: min(lly, ury), x1: max(llx, urx), y1: max(lly, ury)}
	if b.width() <= 0 || b.height() <= 0 {
		return letterBox
	}
	return b
}

func (b pageBox) width() float64  { return b.x1 - b.x0 }
func (b pageBox) height() float64 { return b.y1 - b.y0 }

// mediaBox reads the page's MediaBox, inheriting it from the page tree when
// the page itself has none.
func mediaBox(p pdflib.Page) pageBox {
	v := p.V
	for depth := 0; depth < maxTreeDepth && !v.IsNull(); depth++ {
		if box := v.Key("MediaBox"); box.Len() >= 4 {
			return newPageBox(box.Index(0).Float64(), box.Index(1).Float64(), box.Index(2).Float64(), box.Index(3).Float64())
		}
		v = v.Key("Parent")
	}
	return letterBox
}
