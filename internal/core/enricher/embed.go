package enricher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/core/heuristics"
)

var (
	ErrNoEmbeddableContent = errors.New("no embeddable content")
	ErrDimensionMismatch   = errors.New("embedding dimensions differ")
	ErrSplitDepthExceeded  = errors.New("embedding split depth exceeded")
)

type piece struct {
	words []string
	depth int
}

// Embed returns one vector for text. When the provider rejects the text as too
// long, the words are packed into pieces of at most SplitTokens estimated
// tokens, pieces still too long are halved, and the piece vectors are averaged.
func (e *Enricher) Embed(ctx context.Context, text string) ([]float32, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, ErrNoEmbeddableContent
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	if !errors.Is(err, core.ErrContextLength) {
		return nil, err
	}

	queue := pack(words, e.cfg.SplitTokens)
	e.log.Debug("context length exceeded, splitting", "pieces", len(queue), "tokens", heuristics.EstimateTokens(text))

	var vectors [][]float32
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		v, err := e.embedder.Embed(ctx, strings.Join(p.words, " "))
		switch {
		case err == nil:
			if len(v) > 0 {
				vectors = append(vectors, v)
			}
		case errors.Is(err, core.ErrContextLength):
			if p.depth >= e.cfg.MaxSplitDepth || len(p.words) < 2 {
				return nil, fmt.Errorf("%w: %d words at depth %d", ErrSplitDepthExceeded, len(p.words), p.depth)
			}
			mid := len(p.words) / 2
			queue = append([]piece{
				{words: p.words[:mid], depth: p.depth + 1},
				{words: p.words[mid:], depth: p.depth + 1},
			}, queue...)
		default:
			return nil, err
		}
	}
	if len(vectors) == 0 {
		return nil, ErrNoEmbeddableContent
	}
	return Average(vectors)
}

// Average is the element-wise arithmetic mean of equally sized vectors.
func Average(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, ErrNoEmbeddableContent
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(v), dim)
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	n := float64(len(vectors))
	for i, s := range sum {
		out[i] = float32(s / n)
	}
	return out, nil
}

// pack groups words into pieces of at most budget estimated tokens. A single
// word over the budget becomes its own piece.
func pack(words []string, budget int) []piece {
	var out []piece
	var cur []string
	runes := 0
	for _, w := range words {
		n := len([]rune(w))
		next := runes + n
		if len(cur) > 0 {
			next++
		}
		if len(cur) > 0 && (next+2)/3 > budget {
			out = append(out, piece{words: cur, depth: 1})
			cur, runes = nil, 0
			next = n
		}
		cur = append(cur, w)
		runes = next
	}
	if len(cur) > 0 {
		out = append(out, piece{words: cur, depth: 1})
	}
	return out
}
