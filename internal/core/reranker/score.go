package reranker

import (
	"errors"
	"math"
	"strings"

	"github.com/markdave123-py/Docsift/internal/models"
)

var ErrInvalidScore = errors.New("non-finite relevance score")

// ContextBoost adds perTerm for every query term found in the preceding
// context and again for every term found in the following context.
func ContextBoost(c models.Chunk, terms []string, perTerm float64) float64 {
	pre := strings.ToLower(c.PrecedingContext)
	post := strings.ToLower(c.FollowingContext)
	boost := 0.0
	for _, t := range terms {
		t = strings.ToLower(t)
		if strings.Contains(pre, t) {
			boost += perTerm
		}
		if strings.Contains(post, t) {
			boost += perTerm
		}
	}
	return boost
}

// StructuralBoost rewards chunks that sit under a detected header. The
// subsection takes precedence over the section when both are set.
func StructuralBoost(c models.Chunk) float64 {
	kind := c.Section.Kind
	if !c.Subsection.IsZero() {
		kind = c.Subsection.Kind
	}
	switch kind {
	case models.SectionMain:
		return 1.3
	case models.SectionSub:
		return 1.2
	case models.SectionHeading:
		return 1.1
	case models.SectionNone:
		return 1.0
	default:
		return 1.0
	}
}

// CompositeScore fuses the base relevance with the stored heuristic scores:
//
//	base × type × heading × (1 + keyword) × (1 + contextBoost) × structuralBoost
//
// The result is not clamped.
func CompositeScore(r models.SearchResult, terms []string, perTerm float64) (float64, error) {
	s := r.Scores
	for _, f := range []float64{r.BaseScore, s.Type, s.Heading, s.Keyword} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, ErrInvalidScore
		}
	}
	score := r.BaseScore *
		s.Type *
		s.Heading *
		(1 + s.Keyword) *
		(1 + ContextBoost(r.Chunk, terms, perTerm)) *
		StructuralBoost(r.Chunk)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, ErrInvalidScore
	}
	return score, nil
}
