package segmenter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/markdave123-py/Docsift/internal/core/heuristics"
	"github.com/markdave123-py/Docsift/internal/models"
)

const pageHeight = 800

func at(page int, text string, top float64) models.Line {
	return models.Line{Content: text, PageNumber: page, Polygon: models.Rect(40, top, 560, top+12)}
}

func plain(text string) models.Line {
	return models.Line{Content: text, PageNumber: 1}
}

func TestSegment_SectionThenFormalTable(t *testing.T) {
	doc := &models.AnalyzedDocument{
		Pages: []models.Page{{
			Number: 1,
			Height: pageHeight,
			Lines: []models.Line{
				at(1, "2.1 Overview", 300),
				at(1, "The lease covers residential units only.", 320),
				at(1, "Rent is payable monthly in advance.", 340),
				at(1, "Term 12", 420), // inside the table box
				at(1, "Further terms follow below.", 520),
			},
		}},
		Tables: []models.Table{{
			RowCount:    2,
			ColumnCount: 2,
			Cells: []models.TableCell{
				{RowIndex: 0, ColumnIndex: 0, Content: "Item", Kind: models.CellHeader},
				{RowIndex: 0, ColumnIndex: 1, Content: "Value", Kind: models.CellHeader},
				{RowIndex: 1, ColumnIndex: 0, Content: "Term"},
				{RowIndex: 1, ColumnIndex: 1, Content: "12 & more"},
			},
			Regions: []models.BoundingRegion{{PageNumber: 1, Polygon: models.Rect(40, 400, 560, 500)}},
		}},
	}

	res := New(DefaultConfig(), nil).Segment(doc)
	if len(res.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(res.Chunks), res.Chunks)
	}

	prose, table, tail := res.Chunks[0], res.Chunks[1], res.Chunks[2]
	if prose.IsTable {
		t.Error("expected prose chunk not to be a table")
	}
	if prose.Section.Label() != "2.1 Overview" || prose.Section.Number != "2.1" || prose.Section.Title != "Overview" {
		t.Errorf("unexpected section %+v", prose.Section)
	}
	if !strings.HasPrefix(prose.Content, "2.1 Overview\n") {
		t.Errorf("expected chunk to open with its header, got %q", prose.Content)
	}

	if !table.IsTable {
		t.Fatal("expected table chunk to be flagged")
	}
	want := "<table>\n<tr><th>Item</th><th>Value</th></tr>\n<tr><td>Term</td><td>12 &amp; more</td></tr>\n</table>"
	if table.Content != want {
		t.Errorf("unexpected table block:\n%s", table.Content)
	}
	if strings.Contains(tail.Content, "Term 12") || strings.Contains(prose.Content, "Term 12") {
		t.Error("expected lines inside the table region to be skipped")
	}
	if tail.Content != "Further terms follow below." || tail.IsTable {
		t.Errorf("unexpected trailing chunk %+v", tail)
	}

	for i, c := range res.Chunks {
		if c.Position != i {
			t.Errorf("chunk %d: expected position %d, got %d", i, i, c.Position)
		}
		if c.PageNumber != 1 {
			t.Errorf("chunk %d: expected page 1, got %d", i, c.PageNumber)
		}
	}
}

func TestSegment_TokenBudgetOverlap(t *testing.T) {
	var lines []models.Line
	for i := range 10 {
		// 30 runes, 10 estimated tokens each
		lines = append(lines, plain(fmt.Sprintf("line %02d with some filler text.", i)))
	}
	doc := &models.AnalyzedDocument{Pages: []models.Page{{Number: 1, Lines: lines}}}

	cfg := DefaultConfig()
	cfg.TokenBudget = 30
	cfg.OverlapTokens = 10
	res := New(cfg, nil).Segment(doc)

	if len(res.Chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(res.Chunks))
	}
	for i, c := range res.Chunks {
		if got := heuristics.EstimateTokens(strings.ReplaceAll(c.Content, "\n", "")); got > cfg.TokenBudget {
			t.Errorf("chunk %d: %d tokens exceeds budget", i, got)
		}
		if i == 0 {
			continue
		}
		prev := res.Chunks[i-1].Content
		first := strings.SplitN(c.Content, "\n", 2)[0]
		if !strings.HasSuffix(prev, first) {
			t.Errorf("chunk %d: expected %q to be carried over from %q", i, first, prev)
		}
	}
	if !strings.HasSuffix(res.Chunks[len(res.Chunks)-1].Content, "line 09 with some filler text.") {
		t.Error("expected the last line to end the last chunk")
	}
}

func TestSegment_OversizedLineIsSplit(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("lorem ipsum ", 40))
	doc := &models.AnalyzedDocument{Pages: []models.Page{{Number: 1, Lines: []models.Line{plain(long)}}}}

	cfg := DefaultConfig()
	cfg.TokenBudget = 20
	res := New(cfg, nil).Segment(doc)

	if len(res.Chunks) < 2 {
		t.Fatalf("expected the line to be split, got %d chunks", len(res.Chunks))
	}
	var words []string
	for i, c := range res.Chunks {
		if c.SubChunkIndex != i {
			t.Errorf("chunk %d: expected sub-chunk index %d, got %d", i, i, c.SubChunkIndex)
		}
		if len([]rune(c.Content)) > cfg.TokenBudget*3 {
			t.Errorf("chunk %d is longer than the budget allows", i)
		}
		words = append(words, strings.Fields(c.Content)...)
	}
	if strings.Join(words, " ") != long {
		t.Error("expected split pieces to reassemble the original line")
	}
}

func TestSegment_ArtifactsAndRunningHeaders(t *testing.T) {
	page := func(n int, body string) models.Page {
		return models.Page{
			Number: n,
			Height: pageHeight,
			Lines: []models.Line{
				at(n, "Acme Lease Agreement", 20),
				at(n, body, 400),
				at(n, fmt.Sprintf("Page %d", n), 780),
				at(n, "<!-- PageBreak -->", 790),
			},
		}
	}
	doc := &models.AnalyzedDocument{Pages: []models.Page{
		page(1, "the tenant pays rent on the first day."),
		page(2, "the landlord repairs the roof."),
	}}

	res := New(DefaultConfig(), nil).Segment(doc)
	if res.PageHeaders[1] != "Acme Lease Agreement" || res.PageHeaders[2] != "Acme Lease Agreement" {
		t.Errorf("unexpected page headers %v", res.PageHeaders)
	}
	if len(res.Chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, c := range res.Chunks {
		if strings.TrimSpace(c.Content) == "" {
			t.Errorf("chunk %d is empty", i)
		}
		for _, noise := range []string{"Acme Lease Agreement", "Page 1", "Page 2", "PageBreak"} {
			if strings.Contains(c.Content, noise) {
				t.Errorf("chunk %d: expected %q to be filtered, got %q", i, noise, c.Content)
			}
		}
		if c.ContextualHeader != "Acme Lease Agreement" {
			t.Errorf("chunk %d: unexpected contextual header %q", i, c.ContextualHeader)
		}
	}
}

func TestSegment_ArtifactOnlyDocument(t *testing.T) {
	doc := &models.AnalyzedDocument{Pages: []models.Page{{
		Number: 1,
		Lines:  []models.Line{plain("12"), plain("<!-- PageBreak -->"), plain("  ")},
	}}}
	res := New(DefaultConfig(), nil).Segment(doc)
	if len(res.Chunks) != 0 {
		t.Errorf("expected no chunks, got %+v", res.Chunks)
	}
}

func TestSegment_ContextWindows(t *testing.T) {
	var lines []models.Line
	for i := range 8 {
		lines = append(lines, plain(fmt.Sprintf("clause %d applies.", i)))
	}
	lines = append(lines, plain("3 Payment Terms"))
	for i := 9; i < 16; i++ {
		lines = append(lines, plain(fmt.Sprintf("clause %d applies.", i)))
	}
	doc := &models.AnalyzedDocument{Pages: []models.Page{{Number: 1, Lines: lines}}}

	res := New(DefaultConfig(), nil).Segment(doc)
	if len(res.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(res.Chunks))
	}

	join := func(from, to int) string {
		var parts []string
		for i := from; i <= to; i++ {
			parts = append(parts, fmt.Sprintf("clause %d applies.", i))
		}
		return strings.Join(parts, "\n")
	}

	first, second := res.Chunks[0], res.Chunks[1]
	if first.PrecedingContext != join(3, 7) {
		t.Errorf("unexpected preceding context %q", first.PrecedingContext)
	}
	if first.FollowingContext != join(9, 13) {
		t.Errorf("unexpected following context %q", first.FollowingContext)
	}
	if !first.Section.IsZero() {
		t.Errorf("expected no section before the first header, got %+v", first.Section)
	}

	if second.Section.Number != "3" || second.Section.Title != "Payment Terms" || second.Section.Kind != models.SectionMain {
		t.Errorf("unexpected section %+v", second.Section)
	}
	if second.PrecedingContext != join(10, 14) || second.FollowingContext != "" {
		t.Errorf("unexpected end-of-document context %q / %q", second.PrecedingContext, second.FollowingContext)
	}
	if !HasNumberedSections(res.Chunks) {
		t.Error("expected numbered sections to be detected")
	}
}

func TestSegment_SubsectionAndHeadingContext(t *testing.T) {
	doc := &models.AnalyzedDocument{Pages: []models.Page{
		{
			Number: 1,
			Height: pageHeight,
			Lines: []models.Line{
				at(1, "6 Obligations", 300),
				at(1, "the parties agree as follows.", 320),
				at(1, "6.2.1 Repairs", 360),
				at(1, "the landlord repairs the roof.", 380),
			},
		},
		{
			Number: 2,
			Height: pageHeight,
			Lines: []models.Line{
				at(2, "Schedule of payments", 150),
				at(2, "the schedule is attached.", 400),
			},
		},
	}}

	res := New(DefaultConfig(), nil).Segment(doc)
	if len(res.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(res.Chunks))
	}
	if c := res.Chunks[1]; c.Section.Number != "6" || c.Subsection.Number != "6.2.1" || c.Subsection.Title != "Repairs" {
		t.Errorf("unexpected section pair %+v / %+v", c.Section, c.Subsection)
	}
	c := res.Chunks[2]
	if c.Section.Kind != models.SectionHeading || c.Section.Title != "Schedule of payments" {
		t.Errorf("expected generic heading section, got %+v", c.Section)
	}
	if c.Subsection.Number != "6.2.1" {
		t.Errorf("expected generic heading to leave the subsection alone, got %+v", c.Subsection)
	}
	if c.PageNumber != 2 || c.Anchor == nil || c.Anchor.PageHeight != pageHeight {
		t.Errorf("unexpected page or anchor on %+v", c)
	}
}

func TestSegment_DelimitedTableRun(t *testing.T) {
	doc := &models.AnalyzedDocument{Pages: []models.Page{{
		Number: 1,
		Lines: []models.Line{
			plain("the fees are listed here."),
			plain("| name | amount | due |"),
			plain("| deposit | 500 | march |"),
			plain("| rent | 900 | monthly |"),
			plain("payment by transfer only."),
		},
	}}}

	res := New(DefaultConfig(), nil).Segment(doc)
	if len(res.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(res.Chunks), res.Chunks)
	}
	table := res.Chunks[1]
	if !table.IsTable {
		t.Fatal("expected the delimited run to become a table chunk")
	}
	if !strings.Contains(table.Content, "<tr><th>name</th><th>amount</th><th>due</th></tr>") {
		t.Errorf("expected header row, got %q", table.Content)
	}
	if !strings.Contains(table.Content, "<tr><td>rent</td><td>900</td><td>monthly</td></tr>") {
		t.Errorf("expected data row, got %q", table.Content)
	}
	if res.Chunks[0].IsTable || res.Chunks[2].IsTable {
		t.Error("expected surrounding prose to stay out of the table")
	}
}

func TestSegment_TableWithoutGeometryUsesAnchor(t *testing.T) {
	doc := &models.AnalyzedDocument{
		Pages: []models.Page{{
			Number: 1,
			Lines:  []models.Line{plain("before the table."), plain("after the table.")},
		}},
		Tables: []models.Table{{
			Cells:   []models.TableCell{{Content: "only cell", Kind: models.CellHeader}},
			Regions: []models.BoundingRegion{{PageNumber: 1}},
			Anchor:  1,
		}},
	}
	res := New(DefaultConfig(), nil).Segment(doc)
	if len(res.Chunks) != 3 || !res.Chunks[1].IsTable {
		t.Fatalf("expected table between the two lines, got %+v", res.Chunks)
	}
	if res.Chunks[0].Content != "before the table." || res.Chunks[2].Content != "after the table." {
		t.Errorf("unexpected ordering %+v", res.Chunks)
	}
}

func TestSegment_TableOnlyPageKeepsLocalContext(t *testing.T) {
	table := func(page int) models.Table {
		return models.Table{
			RowCount:    2,
			ColumnCount: 2,
			Cells: []models.TableCell{
				{RowIndex: 0, ColumnIndex: 0, Content: "Item", Kind: models.CellHeader},
				{RowIndex: 0, ColumnIndex: 1, Content: "Value", Kind: models.CellHeader},
				{RowIndex: 1, ColumnIndex: 0, Content: "Term"},
				{RowIndex: 1, ColumnIndex: 1, Content: "12"},
			},
			Regions: []models.BoundingRegion{{PageNumber: page, Polygon: models.Rect(40, 400, 560, 500)}},
		}
	}

	t.Run("middle page", func(t *testing.T) {
		doc := &models.AnalyzedDocument{
			Pages: []models.Page{
				{Number: 1, Height: pageHeight, Lines: []models.Line{
					at(1, "alpha intro paragraph.", 300),
					at(1, "beta intro paragraph.", 320),
				}},
				{Number: 2, Height: pageHeight, Lines: []models.Line{at(2, "Term 12", 420)}},
				{Number: 3, Height: pageHeight, Lines: []models.Line{at(3, "omega closing paragraph.", 300)}},
			},
			Tables: []models.Table{table(2)},
		}
		res := New(DefaultConfig(), nil).Segment(doc)
		if len(res.Chunks) != 3 {
			t.Fatalf("expected 3 chunks, got %d: %+v", len(res.Chunks), res.Chunks)
		}
		tbl := res.Chunks[1]
		if !tbl.IsTable || tbl.PageNumber != 2 {
			t.Fatalf("expected the table chunk on page 2, got %+v", tbl)
		}
		if tbl.PrecedingContext != "alpha intro paragraph." {
			t.Errorf("unexpected preceding context %q", tbl.PrecedingContext)
		}
		if tbl.FollowingContext != "omega closing paragraph." {
			t.Errorf("unexpected following context %q", tbl.FollowingContext)
		}
		if res.Chunks[0].FollowingContext != "omega closing paragraph." {
			t.Errorf("expected the prose before the table to see page 3, got %q", res.Chunks[0].FollowingContext)
		}
	})

	t.Run("first page", func(t *testing.T) {
		doc := &models.AnalyzedDocument{
			Pages: []models.Page{
				{Number: 1, Height: pageHeight, Lines: []models.Line{at(1, "Term 12", 420)}},
				{Number: 2, Height: pageHeight, Lines: []models.Line{
					at(2, "alpha body paragraph.", 300),
					at(2, "beta body paragraph.", 320),
				}},
			},
			Tables: []models.Table{table(1)},
		}
		res := New(DefaultConfig(), nil).Segment(doc)
		if len(res.Chunks) != 2 || !res.Chunks[0].IsTable {
			t.Fatalf("expected table then prose, got %+v", res.Chunks)
		}
		tbl := res.Chunks[0]
		if tbl.PrecedingContext != "" || tbl.FollowingContext != "alpha body paragraph.\nbeta body paragraph." {
			t.Errorf("unexpected contexts %q / %q", tbl.PrecedingContext, tbl.FollowingContext)
		}
	})
}
