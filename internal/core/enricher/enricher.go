// Package enricher annotates segmented chunks with keywords, semantic type,
// heading level, heuristic scores and an embedding.
package enricher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/core/heuristics"
	"github.com/markdave123-py/Docsift/internal/models"
)

type Config struct {
	SplitTokens   int                   `yaml:"split_tokens"`    // piece budget after a context-length error
	MaxSplitDepth int                   `yaml:"max_split_depth"` // halving rounds before a piece is given up
	Thresholds    heuristics.Thresholds `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		SplitTokens:   2000,
		MaxSplitDepth: 8,
		Thresholds:    heuristics.DefaultThresholds(),
	}
}

type Enricher struct {
	embedder core.EmbeddingProvider
	cfg      Config
	log      *slog.Logger
}

func New(embedder core.EmbeddingProvider, cfg Config, log *slog.Logger) *Enricher {
	d := DefaultConfig()
	if cfg.SplitTokens <= 0 {
		cfg.SplitTokens = d.SplitTokens
	}
	if cfg.MaxSplitDepth <= 0 {
		cfg.MaxSplitDepth = d.MaxSplitDepth
	}
	cfg.Thresholds = cfg.Thresholds.WithDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Enricher{embedder: embedder, cfg: cfg, log: log}
}

// Enrich annotates chunks one at a time, in order. A chunk whose embedding
// fails keeps its keywords and type but gets no vector and default scores.
// Empty chunks are dropped. The document fails only when no chunk could be
// embedded or ctx is done.
func (e *Enricher) Enrich(ctx context.Context, chunks []models.Chunk, pageHeaders map[int]string) ([]models.Chunk, error) {
	headers := headerSet(pageHeaders)
	th := e.cfg.Thresholds

	out := make([]models.Chunk, 0, len(chunks))
	embedded := 0
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			e.log.Warn("skipping empty chunk", "position", c.Position)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c.Keywords = heuristics.ExtractKeywords(c.Content)
		c.SemanticType = SemanticType(c, headers, th)
		c.HeadingLevel = HeadingLevel(c, th)
		c.Scores = Scores(c.SemanticType, c.HeadingLevel, len(c.Keywords))

		vec, err := e.Embed(ctx, c.Content)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.log.Warn("chunk enrichment failed, using defaults",
				"position", c.Position,
				"page", c.PageNumber,
				"error", err,
			)
			c.Embedding = nil
			c.Scores = models.DefaultScores()
		} else {
			c.Embedding = vec
			embedded++
		}
		out = append(out, c)
	}

	if embedded == 0 {
		return out, fmt.Errorf("%w: none of %d chunks embedded", ErrNoEmbeddableContent, len(out))
	}
	e.log.Debug("enriched chunks", "chunks", len(out), "embedded", embedded)
	return out, nil
}
