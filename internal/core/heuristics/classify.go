package heuristics

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/markdave123-py/Docsift/internal/models"
)

// LineKind is the structural label of a single line.
type LineKind int

const (
	LineText LineKind = iota
	LineSection
	LineSubsection
	LineHeading
)

// Classification is the outcome of ClassifyLine. Number and Title are set for
// header kinds; Title never carries the leading numeral.
type Classification struct {
	Kind   LineKind
	Number string
	Title  string
}

// IsHeader reports whether the line opens a new section, subsection or heading.
func (c Classification) IsHeader() bool {
	return c.Kind != LineText
}

var (
	subsectionRe = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3}){2,})\.?\s+([A-Z].*)$`)
	sectionRe    = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3})?)\.?\s+([A-Z].*)$`)

	pageNumberRe = regexp.MustCompile(`(?i)^(?:page\s+)?\d{1,4}(?:\s*(?:of|/)\s*\d{1,4})?$`)
	dashNumberRe = regexp.MustCompile(`^[-–—]\s*\d{1,4}\s*[-–—]$`)
	markerRe     = regexp.MustCompile(`(?i)^<!--\s*page(?:break|number|header|footer)\b.*-->$`)
)

var minorWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "as": {}, "at": {}, "by": {}, "for": {}, "in": {},
	"of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "with": {}, "vs": {}, "via": {},
}

// MatchSubsection matches "6.8.1 Details" style headers (three or more levels).
func MatchSubsection(text string, th Thresholds) (number, title string, ok bool) {
	text = strings.TrimSpace(text)
	m := subsectionRe.FindStringSubmatch(text)
	if m == nil || !headerShaped(text, th) {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// MatchSection matches "6.8 Scope", "1 Introduction" and unnumbered title-case
// lines such as "Terms and Conditions".
func MatchSection(text string, th Thresholds) (number, title string, ok bool) {
	text = strings.TrimSpace(text)
	if !headerShaped(text, th) {
		return "", "", false
	}
	if m := sectionRe.FindStringSubmatch(text); m != nil {
		return m[1], strings.TrimSpace(m[2]), true
	}
	if isTitleCase(text, th.TitleMaxWords) {
		return "", text, true
	}
	return "", "", false
}

// IsHeading is the geometry-based heading heuristic: a short line without a
// trailing period or double spaces, starting uppercase, in the top part of the page.
// Lines without geometry or pages without a height are never headings.
func IsHeading(line models.Line, pageHeight float64, th Thresholds) bool {
	text := strings.TrimSpace(line.Content)
	if !headerShaped(text, th) || strings.Contains(line.Content, "  ") {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text)
	if !unicode.IsUpper(r) {
		return false
	}
	frac, ok := verticalFraction(line, pageHeight)
	return ok && frac < th.HeadingFraction
}

// HeadingLevel maps a line to 0, 1 or 2 from its vertical position. Only lines
// the classifier accepted as headers get a non-zero level.
func HeadingLevel(line models.Line, pageHeight float64, isHeader bool, th Thresholds) int {
	if !isHeader {
		return 0
	}
	frac, ok := verticalFraction(line, pageHeight)
	if !ok {
		return 0
	}
	switch {
	case frac < th.Level1Fraction:
		return 1
	case frac < th.Level2Fraction:
		return 2
	default:
		return 0
	}
}

// InPageHeaderBand reports whether the line sits in the top band used for page headers.
func InPageHeaderBand(line models.Line, pageHeight float64, th Thresholds) bool {
	frac, ok := verticalFraction(line, pageHeight)
	return ok && frac < th.PageHeaderFraction
}

// ClassifyLine labels a line. Precedence: subsection, section, generic heading.
func ClassifyLine(line models.Line, pageHeight float64, th Thresholds) Classification {
	if n, t, ok := MatchSubsection(line.Content, th); ok {
		return Classification{Kind: LineSubsection, Number: n, Title: t}
	}
	if n, t, ok := MatchSection(line.Content, th); ok {
		return Classification{Kind: LineSection, Number: n, Title: t}
	}
	if IsHeading(line, pageHeight, th) {
		return Classification{Kind: LineHeading, Title: strings.TrimSpace(line.Content)}
	}
	return Classification{Kind: LineText}
}

// IsArtifact reports layout noise: page numbers, page-break and page-furniture markers.
func IsArtifact(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || t == "\f" {
		return true
	}
	return pageNumberRe.MatchString(t) || dashNumberRe.MatchString(t) || markerRe.MatchString(t)
}

func verticalFraction(line models.Line, pageHeight float64) (float64, bool) {
	if pageHeight <= 0 {
		return 0, false
	}
	top, ok := line.Polygon.TopY()
	if !ok {
		return 0, false
	}
	return top / pageHeight, true
}

func headerShaped(text string, th Thresholds) bool {
	if text == "" || utf8.RuneCountInString(text) > th.HeadingMaxLength {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	return last != '.' && last != ',' && last != ';' && last != ':'
}

func isTitleCase(text string, maxWords int) bool {
	words := strings.Fields(text)
	if len(words) == 0 || len(words) > maxWords {
		return false
	}
	hasLetter := false
	for i, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsDigit(r) || r == '&' || r == '(' {
			continue
		}
		if _, minor := minorWords[strings.ToLower(w)]; minor && i > 0 {
			continue
		}
		return false
	}
	return hasLetter
}
