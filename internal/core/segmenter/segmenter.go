// Package segmenter turns a layout-analyzed document into bounded,
// context-aware chunks.
package segmenter

import (
	"log/slog"
	"strings"

	"github.com/markdave123-py/Docsift/internal/core/heuristics"
	"github.com/markdave123-py/Docsift/internal/models"
)

// Config tunes the segmenter.
//
// TokenBudget:   maximum estimated tokens per chunk (e.g., 4000).
// OverlapTokens: tokens carried from the end of a budget-flushed chunk into the next (e.g., 400).
// ContextLines:  lines captured before and after the line that triggered a flush.
type Config struct {
	TokenBudget   int                   `yaml:"token_budget"`
	OverlapTokens int                   `yaml:"overlap_tokens"`
	ContextLines  int                   `yaml:"context_lines"`
	Thresholds    heuristics.Thresholds `yaml:"thresholds"`
}

// DefaultConfig returns the production values.
func DefaultConfig() Config {
	return Config{
		TokenBudget:   4000,
		OverlapTokens: 400,
		ContextLines:  5,
		Thresholds:    heuristics.DefaultThresholds(),
	}
}

// Segmenter is stateless between calls; every Segment call owns its own running state.
type Segmenter struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Segmenter {
	d := DefaultConfig()
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = d.TokenBudget
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}
	if cfg.ContextLines <= 0 {
		cfg.ContextLines = d.ContextLines
	}
	cfg.Thresholds = cfg.Thresholds.WithDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Segmenter{cfg: cfg, log: log}
}

// Result is the segmenter output: chunks in document order and the detected page headers.
type Result struct {
	Chunks      []models.Chunk
	PageHeaders map[int]string
}

type indexedLine struct {
	line models.Line
	flat int // position in the flattened line sequence
	orig int // position in the page's original line list
}

type preparedPage struct {
	page   models.Page
	lines  []indexedLine
	tables []pageTable
}

// run holds the read-only inputs of one Segment call plus the output slice.
type run struct {
	cfg     Config
	flat    []models.Line
	headers map[int]string
	out     []models.Chunk
}

// Segment walks pages and lines in order and produces chunks.
func (s *Segmenter) Segment(doc *models.AnalyzedDocument) Result {
	if doc == nil {
		return Result{PageHeaders: map[int]string{}}
	}
	th := s.cfg.Thresholds
	headers := PageHeaders(doc.Pages, th)
	pages, flat := prepare(doc, th)

	r := &run{cfg: s.cfg, flat: flat, headers: headers}
	st := &state{}
	last := -1 // flat index of the last line seen so far

	for _, pp := range pages {
		pending := pp.tables
		for i := 0; i < len(pp.lines); i++ {
			il := pp.lines[i]
			pending = r.emitDueTables(st, pending, il, pp.page)

			if n, delim := tableRun(pp.lines[i:], th); n > 0 {
				r.flush(st, il.flat)
				r.emitDelimited(st, pp.lines[i:i+n], delim, pp.page.Number)
				i += n - 1
				continue
			}

			bl := bufLine{
				flat:   il.flat,
				text:   strings.TrimSpace(il.line.Content),
				tokens: heuristics.EstimateTokens(strings.TrimSpace(il.line.Content)),
				page:   pp.page.Number,
				anchor: models.AnchorLine{Line: il.line, PageHeight: pp.page.Height},
			}

			cls := heuristics.ClassifyLine(il.line, pp.page.Height, th)
			if cls.IsHeader() {
				r.flush(st, il.flat)
				st.applyHeader(sectionKind(cls.Kind), cls.Number, cls.Title, pp.page.Number)
				st.add(bl)
				continue
			}

			if bl.tokens > s.cfg.TokenBudget {
				r.flush(st, il.flat)
				r.emitOversized(st, bl)
				continue
			}

			if !st.empty() && st.tokens+bl.tokens > s.cfg.TokenBudget {
				flushed, flushedTokens := st.buf, st.tokens
				r.flush(st, il.flat)
				target := min(s.cfg.OverlapTokens, flushedTokens/3)
				for _, l := range overlapTail(flushed, target, s.cfg.TokenBudget, bl.tokens) {
					st.add(l)
				}
			}
			st.add(bl)
		}

		// Tables left over sit after the page's last line. A page whose
		// lines were all filtered out falls back to the previous page.
		if len(pp.lines) > 0 {
			last = pp.lines[len(pp.lines)-1].flat
		}
		for _, pt := range pending {
			r.flush(st, last)
			r.emitTable(st, pt.table, pp.page.Number, last)
		}
	}
	r.flush(st, len(flat)-1)

	s.log.Debug("segmented document",
		"pages", len(doc.Pages),
		"lines", len(flat),
		"tables", len(doc.Tables),
		"chunks", len(r.out),
	)
	return Result{Chunks: r.out, PageHeaders: headers}
}

// HasNumberedSections reports whether any chunk sits under a numbered section or subsection.
func HasNumberedSections(chunks []models.Chunk) bool {
	for _, c := range chunks {
		if c.Section.Number != "" || c.Subsection.Number != "" {
			return true
		}
	}
	return false
}

// PageHeaders concatenates, per page, the lines lying in the top header band.
func PageHeaders(pages []models.Page, th heuristics.Thresholds) map[int]string {
	out := make(map[int]string, len(pages))
	for _, p := range pages {
		var parts []string
		for _, l := range p.Lines {
			if heuristics.IsArtifact(l.Content) || !heuristics.InPageHeaderBand(l, p.Height, th) {
				continue
			}
			parts = append(parts, strings.TrimSpace(l.Content))
		}
		if len(parts) > 0 {
			out[p.Number] = strings.Join(parts, " ")
		}
	}
	return out
}

// prepare filters artifacts, running-header echoes and lines covered by formal
// tables, and builds the flattened line sequence used for context windows.
func prepare(doc *models.AnalyzedDocument, th heuristics.Thresholds) ([]preparedPage, []models.Line) {
	echoes := runningHeaders(doc.Pages, th)

	var flat []models.Line
	pages := make([]preparedPage, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		pp := preparedPage{page: p, tables: tablesOnPage(doc.Tables, p.Number)}
		for li, l := range p.Lines {
			if heuristics.IsArtifact(l.Content) {
				continue
			}
			if heuristics.InPageHeaderBand(l, p.Height, th) && echoes[normalize(l.Content)] {
				continue
			}
			if coveredByTable(pp.tables, l) {
				continue
			}
			pp.lines = append(pp.lines, indexedLine{line: l, flat: len(flat), orig: li})
			flat = append(flat, l)
		}
		pages = append(pages, pp)
	}
	return pages, flat
}

// runningHeaders finds header-band lines repeated on more than one page.
func runningHeaders(pages []models.Page, th heuristics.Thresholds) map[string]bool {
	seen := make(map[string]map[int]struct{})
	for _, p := range pages {
		for _, l := range p.Lines {
			if !heuristics.InPageHeaderBand(l, p.Height, th) {
				continue
			}
			key := normalize(l.Content)
			if key == "" {
				continue
			}
			if seen[key] == nil {
				seen[key] = make(map[int]struct{})
			}
			seen[key][p.Number] = struct{}{}
		}
	}
	out := make(map[string]bool)
	for k, onPages := range seen {
		if len(onPages) > 1 {
			out[k] = true
		}
	}
	return out
}

func coveredByTable(tables []pageTable, l models.Line) bool {
	for _, pt := range tables {
		if pt.covers(l) {
			return true
		}
	}
	return false
}

// tableRun returns the length of the table-like run starting at lines[0] and
// its delimiter. A run is at least two consecutive lines carrying the same
// number of one delimiter, and no fewer than th.MinDelimiters of it.
func tableRun(lines []indexedLine, th heuristics.Thresholds) (int, rune) {
	if len(lines) < 2 {
		return 0, 0
	}
	sample := make([]string, 0, th.TableSampleLines)
	for _, il := range lines[:min(len(lines), th.TableSampleLines)] {
		sample = append(sample, il.line.Content)
	}
	for _, d := range heuristics.Delimiters {
		count := strings.Count(sample[0], string(d))
		if count < th.MinDelimiters {
			continue
		}
		n := 0
		for _, il := range lines {
			if strings.Count(il.line.Content, string(d)) != count {
				break
			}
			n++
		}
		if n >= 2 && heuristics.IsTableLike(sample[:min(n, len(sample))], th) {
			return n, d
		}
	}
	return 0, 0
}

func (r *run) emitDueTables(st *state, pending []pageTable, il indexedLine, page models.Page) []pageTable {
	if len(pending) == 0 {
		return pending
	}
	var keep []pageTable
	for _, pt := range pending {
		if !pt.due(il.line, il.orig) {
			keep = append(keep, pt)
			continue
		}
		r.flush(st, il.flat)
		r.emitTable(st, pt.table, page.Number, il.flat)
	}
	return keep
}

func (r *run) emitTable(st *state, t models.Table, page, trigger int) {
	r.emit(st, renderTable(t), page, true, nil, trigger, 0)
}

func (r *run) emitDelimited(st *state, lines []indexedLine, delim rune, page int) {
	rows := make([][]string, 0, len(lines))
	for _, il := range lines {
		rows = append(rows, heuristics.SplitCells(il.line.Content, delim))
	}
	r.emit(st, renderTable(delimitedTable(rows)), page, true, nil, lines[0].flat, 0)
}

// emitOversized splits a single line longer than the budget by words into sub-chunks.
func (r *run) emitOversized(st *state, bl bufLine) {
	anchor := bl.anchor
	for i, piece := range splitWords(bl.text, r.cfg.TokenBudget) {
		r.emit(st, piece, bl.page, false, &anchor, bl.flat, i)
	}
}

// flush emits the in-progress chunk, if any, and clears the buffer.
func (r *run) flush(st *state, trigger int) {
	if st.empty() {
		return
	}
	first := st.buf[0]
	anchor := first.anchor
	r.emit(st, joinLines(st.buf), first.page, false, &anchor, trigger, 0)
	st.reset()
}

func (r *run) emit(st *state, content string, page int, isTable bool, anchor *models.AnchorLine, trigger, sub int) {
	if strings.TrimSpace(content) == "" {
		return
	}
	pre, post := r.contexts(trigger)
	r.out = append(r.out, models.Chunk{
		Position:         len(r.out),
		SubChunkIndex:    sub,
		Content:          content,
		Section:          st.section,
		Subsection:       st.subsection,
		PageNumber:       page,
		IsTable:          isTable,
		ContextualHeader: r.headers[page],
		PrecedingContext: pre,
		FollowingContext: post,
		SemanticType:     models.TypeBodyText,
		Scores:           models.DefaultScores(),
		Anchor:           anchor,
	})
}

// contexts returns the lines around trigger in the flattened sequence. A
// trigger of -1 sits before the first line.
func (r *run) contexts(trigger int) (string, string) {
	if len(r.flat) == 0 {
		return "", ""
	}
	trigger = min(max(trigger, -1), len(r.flat)-1)
	n := r.cfg.ContextLines
	lo := max(0, trigger-n)
	hi := min(len(r.flat), trigger+1+n)
	return joinContent(r.flat[lo:max(trigger, 0)]), joinContent(r.flat[trigger+1 : hi])
}

func joinContent(lines []models.Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, strings.TrimSpace(l.Content))
	}
	return strings.Join(parts, "\n")
}

// splitWords breaks text into pieces of at most budget estimated tokens.
func splitWords(text string, budget int) []string {
	maxRunes := budget * 3
	var pieces []string
	var cur []string
	curLen := 0
	for _, w := range strings.Fields(text) {
		for len([]rune(w)) > maxRunes {
			rw := []rune(w)
			if len(cur) > 0 {
				pieces = append(pieces, strings.Join(cur, " "))
				cur, curLen = nil, 0
			}
			pieces = append(pieces, string(rw[:maxRunes]))
			w = string(rw[maxRunes:])
		}
		wl := len([]rune(w))
		if len(cur) > 0 && curLen+1+wl > maxRunes {
			pieces = append(pieces, strings.Join(cur, " "))
			cur, curLen = nil, 0
		}
		if len(cur) > 0 {
			curLen++
		}
		cur = append(cur, w)
		curLen += wl
	}
	if len(cur) > 0 {
		pieces = append(pieces, strings.Join(cur, " "))
	}
	return pieces
}

func sectionKind(k heuristics.LineKind) models.SectionKind {
	switch k {
	case heuristics.LineSection:
		return models.SectionMain
	case heuristics.LineSubsection:
		return models.SectionSub
	case heuristics.LineHeading:
		return models.SectionHeading
	default:
		return models.SectionNone
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
