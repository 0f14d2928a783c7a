package segmenter

import (
	"strings"

	"github.com/markdave123-py/Docsift/internal/models"
)

// bufLine is one line accumulated into the in-progress chunk.
type bufLine struct {
	flat   int // index into the flattened line sequence
	text   string
	tokens int
	page   int
	anchor models.AnchorLine
}

// state is the running context threaded through the line loop: the current
// section pair and the chunk being accumulated.
type state struct {
	section    models.Section
	subsection models.Section
	buf        []bufLine
	tokens     int
}

func (st *state) empty() bool {
	return len(st.buf) == 0
}

func (st *state) add(l bufLine) {
	st.buf = append(st.buf, l)
	st.tokens += l.tokens
}

func (st *state) reset() {
	st.buf = nil
	st.tokens = 0
}

// applyHeader updates the section context. A main section supersedes the
// current subsection; generic headings replace the section only.
func (st *state) applyHeader(kind models.SectionKind, number, title string, page int) {
	s := models.Section{Title: title, Number: number, Kind: kind, PageNumber: page}
	switch kind {
	case models.SectionMain:
		st.section = s
		st.subsection = models.Section{}
	case models.SectionSub:
		st.subsection = s
	case models.SectionHeading:
		st.section = s
	case models.SectionNone:
	}
}

// overlapTail returns the trailing lines of buf whose tokens reach target,
// keeping the tail small enough that next still fits within budget.
func overlapTail(buf []bufLine, target, budget, next int) []bufLine {
	if target <= 0 || len(buf) == 0 {
		return nil
	}
	start := len(buf)
	remain := target
	for j := len(buf) - 1; j >= 0 && remain > 0; j-- {
		start = j
		remain -= buf[j].tokens
	}
	tail := append([]bufLine(nil), buf[start:]...)

	sum := 0
	for _, l := range tail {
		sum += l.tokens
	}
	for len(tail) > 0 && sum+next > budget {
		sum -= tail[0].tokens
		tail = tail[1:]
	}
	return tail
}

func joinLines(buf []bufLine) string {
	parts := make([]string, 0, len(buf))
	for _, l := range buf {
		parts = append(parts, l.text)
	}
	return strings.Join(parts, "\n")
}
