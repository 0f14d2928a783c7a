package segmenter

import (
	"html"
	"sort"
	"strings"

	"github.com/markdave123-py/Docsift/internal/models"
)

// renderTable wraps a formal table as a tagged block. Header cells are <th>,
// data cells <td>. Returns "" when the table has no text.
func renderTable(t models.Table) string {
	rows, cols := t.RowCount, t.ColumnCount
	for _, c := range t.Cells {
		rows = max(rows, c.RowIndex+1)
		cols = max(cols, c.ColumnIndex+1)
	}
	if rows == 0 || cols == 0 {
		return ""
	}

	grid := make([][]*models.TableCell, rows)
	for i := range grid {
		grid[i] = make([]*models.TableCell, cols)
	}
	hasText := false
	for i := range t.Cells {
		c := &t.Cells[i]
		if c.RowIndex < 0 || c.ColumnIndex < 0 {
			continue
		}
		grid[c.RowIndex][c.ColumnIndex] = c
		if strings.TrimSpace(c.Content) != "" {
			hasText = true
		}
	}
	if !hasText {
		return ""
	}

	var b strings.Builder
	b.WriteString("<table>\n")
	for _, row := range grid {
		b.WriteString("<tr>")
		for _, c := range row {
			tag, text := "td", ""
			if c != nil {
				text = strings.TrimSpace(c.Content)
				if c.Kind == models.CellHeader {
					tag = "th"
				}
			}
			b.WriteString("<" + tag + ">" + html.EscapeString(text) + "</" + tag + ">")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>")
	return b.String()
}

// delimitedTable converts table-like rows into a Table; the first row is the header.
func delimitedTable(rows [][]string) models.Table {
	var t models.Table
	for r, cells := range rows {
		for c, text := range cells {
			kind := models.CellData
			if r == 0 {
				kind = models.CellHeader
			}
			t.Cells = append(t.Cells, models.TableCell{RowIndex: r, ColumnIndex: c, Content: text, Kind: kind})
		}
	}
	t.RowCount = len(rows)
	return t
}

// pageTable is a formal table scheduled for emission on one page.
type pageTable struct {
	table  models.Table
	top    float64
	hasTop bool
	box    [4]float64
}

// tablesOnPage returns the document tables whose bounding region lies on page
// n, ordered by vertical position when known.
func tablesOnPage(tables []models.Table, n int) []pageTable {
	var out []pageTable
	for _, t := range tables {
		region, ok := t.OnPage(n)
		if !ok {
			continue
		}
		pt := pageTable{table: t}
		if x0, y0, x1, y1, ok := region.Polygon.Bounds(); ok {
			pt.top, pt.hasTop = y0, true
			pt.box = [4]float64{x0, y0, x1, y1}
		}
		out = append(out, pt)
	}
	for _, pt := range out {
		if !pt.hasTop {
			return out
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].top < out[j].top })
	return out
}

// covers reports whether the centre of a line polygon falls inside the table box.
func (pt pageTable) covers(l models.Line) bool {
	if !pt.hasTop {
		return false
	}
	x0, y0, x1, y1, ok := l.Polygon.Bounds()
	if !ok {
		return false
	}
	cx, cy := (x0+x1)/2, (y0+y1)/2
	return cx >= pt.box[0] && cx <= pt.box[2] && cy >= pt.box[1] && cy <= pt.box[3]
}

// due reports whether the table should be emitted before the given line.
func (pt pageTable) due(l models.Line, pageIndex int) bool {
	if top, ok := l.Polygon.TopY(); ok && pt.hasTop {
		return pt.top <= top
	}
	return pt.table.Anchor <= pageIndex
}
