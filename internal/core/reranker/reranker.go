// Package reranker re-scores hybrid search candidates with structural and
// contextual boosts, filters them against the best base score and formats
// the context block handed to the chat model.
package reranker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/core/citation"
	"github.com/markdave123-py/Docsift/internal/core/heuristics"
	"github.com/markdave123-py/Docsift/internal/models"
)

var ErrEmptyQuery = errors.New("empty query")

// DefaultRelevance asks Rerank for the configured minimum relevance. Any m
// within [0, 1], zero included, is used as given.
const DefaultRelevance = -1.0

type Config struct {
	DefaultK            int     `yaml:"default_k"`
	MaxK                int     `yaml:"max_k"`
	MinRelevance        float64 `yaml:"min_relevance"`
	ContextBoostPerTerm float64 `yaml:"context_boost_per_term"`
	HighlightRunes      int     `yaml:"highlight_runes"` // content highlight length when no header is known
}

func DefaultConfig() Config {
	return Config{
		DefaultK:            5,
		MaxK:                50,
		MinRelevance:        0.7,
		ContextBoostPerTerm: 0.05,
		HighlightRunes:      120,
	}
}

// Result is a surviving candidate with its composite score and citation URL.
type Result struct {
	models.SearchResult
	Score float64 `json:"score"`
	URL   string  `json:"url"`
}

// Outcome is the reranked answer context for one query. NoResults is set when
// nothing survived the threshold; Results is then empty.
type Outcome struct {
	Query        string
	Profile      core.RankingProfile
	Results      []Result
	ContextBlock string
	Structured   bool
	NoResults    bool
}

type Reranker struct {
	embedder core.EmbeddingProvider
	store    core.SearchStore
	urls     citation.URLBuilder
	cfg      Config
	log      *slog.Logger
}

func New(embedder core.EmbeddingProvider, store core.SearchStore, urls citation.URLBuilder, cfg Config, log *slog.Logger) *Reranker {
	d := DefaultConfig()
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = d.DefaultK
	}
	if cfg.MaxK <= 0 {
		cfg.MaxK = d.MaxK
	}
	if cfg.MinRelevance <= 0 {
		cfg.MinRelevance = d.MinRelevance
	}
	if cfg.ContextBoostPerTerm <= 0 {
		cfg.ContextBoostPerTerm = d.ContextBoostPerTerm
	}
	if cfg.HighlightRunes <= 0 {
		cfg.HighlightRunes = d.HighlightRunes
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reranker{embedder: embedder, store: store, urls: urls, cfg: cfg, log: log}
}

// Rerank embeds the query, fetches 2k hybrid candidates, scores them and keeps
// the top k whose composite score beats m × the best base score. k <= 0 and
// m < 0 fall back to the configured defaults. Embedding and search errors are
// returned as is.
func (r *Reranker) Rerank(ctx context.Context, query string, k int, m float64, documentIDs []string) (*Outcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = r.cfg.DefaultK
	}
	k = min(k, r.cfg.MaxK)
	if m < 0 {
		m = r.cfg.MinRelevance
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	profile, err := r.store.RankingProfile(ctx, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("ranking profile: %w", err)
	}
	candidates, err := r.store.HybridQuery(ctx, core.HybridQuery{
		Text:        query,
		Vector:      vec,
		Top:         2 * k,
		Profile:     profile,
		DocumentIDs: documentIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid query: %w", err)
	}

	out := &Outcome{Query: query, Profile: profile}
	survivors := r.Select(candidates, heuristics.QueryTerms(query), k, m)
	if len(survivors) == 0 {
		out.NoResults = true
		r.log.Info("no relevant results", "candidates", len(candidates), "k", k, "min_relevance", m)
		return out, nil
	}

	for i := range survivors {
		survivors[i].URL = r.citationURL(ctx, survivors[i].SearchResult)
	}
	out.Results = survivors
	out.Structured = Structured(survivors)
	out.ContextBlock = ContextBlock(survivors)

	r.log.Debug("reranked",
		"candidates", len(candidates),
		"kept", len(survivors),
		"profile", string(profile),
	)
	return out, nil
}

// Select scores candidates, sorts them by composite score, keeps the top k
// and drops those at or below m × the highest base score of the full
// candidate set. A candidate whose score cannot be computed keeps its base score.
func (r *Reranker) Select(candidates []models.SearchResult, terms []string, k int, m float64) []Result {
	if len(candidates) == 0 {
		return nil
	}

	topBase := math.Inf(-1)
	scored := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if finite(c.BaseScore) {
			topBase = max(topBase, c.BaseScore)
		}
		score, err := CompositeScore(c, terms, r.cfg.ContextBoostPerTerm)
		if err != nil {
			r.log.Warn("scoring failed, using base score", "chunk_id", c.ID, "error", err)
			score = c.BaseScore
			if !finite(score) {
				score = 0
			}
		}
		scored = append(scored, Result{SearchResult: c, Score: score})
	}
	if math.IsInf(topBase, -1) {
		topBase = 0
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}

	threshold := m * topBase
	kept := scored[:0]
	for _, s := range scored {
		if s.Score > threshold {
			kept = append(kept, s)
		}
	}
	return kept
}

// Structured reports whether most of the results sit under numbered sections.
func Structured(results []Result) bool {
	numbered := 0
	for _, res := range results {
		if res.Section.Number != "" || res.Subsection.Number != "" {
			numbered++
		}
	}
	return numbered*2 > len(results)
}

// ContextBlock renders one entry per result: document title, section labels
// or the contextual header, page, citation URL and content.
func ContextBlock(results []Result) string {
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		title := res.DocumentTitle
		if title == "" {
			title = res.DocumentName
		}
		fmt.Fprintf(&b, "[%d] Document: %s\n", i+1, title)

		var labels []string
		if l := res.Section.Label(); l != "" {
			labels = append(labels, "Section: "+l)
		}
		if l := res.Subsection.Label(); l != "" {
			labels = append(labels, "Subsection: "+l)
		}
		if len(labels) > 0 {
			b.WriteString(strings.Join(labels, " | ") + "\n")
		} else if res.ContextualHeader != "" {
			b.WriteString("Header: " + res.ContextualHeader + "\n")
		}

		b.WriteString("Page: " + strconv.Itoa(res.PageNumber) + "\n")
		if res.URL != "" {
			b.WriteString("URL: " + res.URL + "\n")
		}
		b.WriteString("Content:\n" + res.Content)
	}
	return b.String()
}

func (r *Reranker) citationURL(ctx context.Context, res models.SearchResult) string {
	if r.urls == nil {
		return ""
	}
	u, err := r.urls.BuildURL(ctx, r.Target(res))
	if err != nil {
		r.log.Warn("citation url failed", "document_id", res.DocumentID, "error", err)
		return ""
	}
	return u
}

// Target picks the viewer highlight: the innermost section title, else the
// page header, else the start of the content.
func (r *Reranker) Target(res models.SearchResult) citation.Target {
	t := citation.Target{
		DocumentID:   res.DocumentID,
		DocumentName: res.DocumentName,
		Page:         res.PageNumber,
	}
	sec := res.Section
	if !res.Subsection.IsZero() {
		sec = res.Subsection
	}
	t.SectionNumber = sec.Number

	switch {
	case sec.Title != "":
		t.Highlight, t.HighlightSource = sec.Title, citation.SourceSection
	case res.ContextualHeader != "":
		t.Highlight, t.HighlightSource = res.ContextualHeader, citation.SourceHeader
	default:
		t.Highlight, t.HighlightSource = truncate(res.Content, r.cfg.HighlightRunes), citation.SourceContent
	}
	return t
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
