package models

// Point is a coordinate on a page. Y grows downward from the top edge.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is a bounding polygon in page coordinates. Empty when the analyzer has no geometry.
type Polygon []Point

// TopY returns the smallest Y of the polygon.
func (p Polygon) TopY() (float64, bool) {
	if len(p) == 0 {
		return 0, false
	}
	top := p[0].Y
	for _, pt := range p[1:] {
		if pt.Y < top {
			top = pt.Y
		}
	}
	return top, true
}

// Bounds returns the axis-aligned box of the polygon.
func (p Polygon) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if len(p) == 0 {
		return 0, 0, 0, 0, false
	}
	minX, minY, maxX, maxY = p[0].X, p[0].Y, p[0].X, p[0].Y
	for _, pt := range p[1:] {
		minX = min(minX, pt.X)
		minY = min(minY, pt.Y)
		maxX = max(maxX, pt.X)
		maxY = max(maxY, pt.Y)
	}
	return minX, minY, maxX, maxY, true
}

// Rect builds a four-point polygon from a box.
func Rect(x0, y0, x1, y1 float64) Polygon {
	return Polygon{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

// Line is one line of text as produced by layout analysis.
type Line struct {
	Content    string  `json:"content"`
	PageNumber int     `json:"page_number"`
	Polygon    Polygon `json:"polygon,omitempty"`
}

// Page is one analyzed page.
type Page struct {
	Number int     `json:"page_number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Lines  []Line  `json:"lines"`
}

// CellKind marks header cells apart from data cells.
type CellKind int

const (
	CellData CellKind = iota
	CellHeader
)

// TableCell is a single table cell.
type TableCell struct {
	RowIndex    int      `json:"row_index"`
	ColumnIndex int      `json:"column_index"`
	Content     string   `json:"content"`
	Kind        CellKind `json:"kind"`
}

// BoundingRegion places a table on a page.
type BoundingRegion struct {
	PageNumber int     `json:"page_number"`
	Polygon    Polygon `json:"polygon,omitempty"`
}

// Table is a formal table found by layout analysis.
type Table struct {
	RowCount    int              `json:"row_count"`
	ColumnCount int              `json:"column_count"`
	Cells       []TableCell      `json:"cells"`
	Regions     []BoundingRegion `json:"bounding_regions"`

	// Anchor is the index of the page line the table precedes. Used only when
	// the table or the lines carry no geometry.
	Anchor int `json:"anchor"`
}

// OnPage reports whether any bounding region of the table lies on page n.
func (t Table) OnPage(n int) (BoundingRegion, bool) {
	for _, r := range t.Regions {
		if r.PageNumber == n {
			return r, true
		}
	}
	return BoundingRegion{}, false
}

// AnalyzedDocument is the layout analyzer output consumed by the segmenter.
type AnalyzedDocument struct {
	Pages  []Page  `json:"pages"`
	Tables []Table `json:"tables"`
}
