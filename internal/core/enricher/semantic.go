package enricher

import (
	"regexp"
	"strings"

	"github.com/markdave123-py/Docsift/internal/core/heuristics"
	"github.com/markdave123-py/Docsift/internal/models"
)

var (
	numberedRe   = regexp.MustCompile(`^\s*\d+\.\s`)
	definitionRe = regexp.MustCompile(`^\s*[A-Z][A-Za-z]*:`)
)

// SemanticType labels a chunk. Checks run in order: known page header, table,
// numbered list, definition, body text.
func SemanticType(c models.Chunk, pageHeaders map[string]struct{}, th heuristics.Thresholds) models.SemanticType {
	if _, ok := pageHeaders[normalize(c.Content)]; ok {
		return models.TypeHeader
	}
	if c.IsTable || heuristics.IsTableLike(strings.Split(c.Content, "\n"), th) {
		return models.TypeTable
	}
	if numberedRe.MatchString(c.Content) {
		return models.TypeNumberedList
	}
	if definitionRe.MatchString(c.Content) {
		return models.TypeDefinition
	}
	return models.TypeBodyText
}

// HeadingLevel derives 0, 1 or 2 from the chunk's first line.
func HeadingLevel(c models.Chunk, th heuristics.Thresholds) int {
	if c.Anchor == nil {
		return 0
	}
	cls := heuristics.ClassifyLine(c.Anchor.Line, c.Anchor.PageHeight, th)
	return heuristics.HeadingLevel(c.Anchor.Line, c.Anchor.PageHeight, cls.IsHeader(), th)
}

// Scores computes the stored heuristic boosts.
func Scores(t models.SemanticType, headingLevel, keywords int) models.SemanticScores {
	s := models.DefaultScores()
	switch t {
	case models.TypeHeader:
		s.Type = 1.5
	case models.TypeDefinition:
		s.Type = 1.3
	case models.TypeTable:
		s.Type = 1.2
	case models.TypeNumberedList:
		s.Type = 1.1
	case models.TypeBodyText:
	}
	switch headingLevel {
	case 1:
		s.Heading = 1.5
	case 2:
		s.Heading = 1.3
	}
	s.Keyword = float64(keywords) / float64(heuristics.MaxKeywords)
	return s
}

func headerSet(pageHeaders map[int]string) map[string]struct{} {
	out := make(map[string]struct{}, len(pageHeaders))
	for _, h := range pageHeaders {
		if k := normalize(h); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
