package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/markdave123-py/Docsift/internal/core/reranker"
)

var ErrInvalidQuery = errors.New("invalid query")

// QueryRequest is the body of a chat query. K and MinRelevance are optional;
// an explicit min_relevance of 0 keeps every scored candidate.
type QueryRequest struct {
	Query        string   `json:"query"`
	K            int      `json:"k,omitempty"`
	MinRelevance *float64 `json:"min_relevance,omitempty"`
	DocumentIDs  []string `json:"document_ids,omitempty"`
}

func (q QueryRequest) Validate() error {
	switch {
	case strings.TrimSpace(q.Query) == "":
		return fmt.Errorf("%w: query is required", ErrInvalidQuery)
	case q.K < 0:
		return fmt.Errorf("%w: k must not be negative", ErrInvalidQuery)
	case q.MinRelevance != nil && (*q.MinRelevance < 0 || *q.MinRelevance > 1):
		return fmt.Errorf("%w: min_relevance must be within [0, 1]", ErrInvalidQuery)
	}
	return nil
}

// relevance is the threshold handed to the reranker.
func (q QueryRequest) relevance() float64 {
	if q.MinRelevance == nil {
		return reranker.DefaultRelevance
	}
	return *q.MinRelevance
}

// QueryService answers questions over the indexed documents.
type QueryService struct {
	reranker *reranker.Reranker
	composer *reranker.Composer
	log      *slog.Logger
}

func NewQueryService(rr *reranker.Reranker, composer *reranker.Composer, log *slog.Logger) *QueryService {
	return &QueryService{reranker: rr, composer: composer, log: log}
}

func (s *QueryService) Ask(ctx context.Context, req QueryRequest) (*reranker.Answer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	out, err := s.reranker.Rerank(ctx, req.Query, req.K, req.relevance(), req.DocumentIDs)
	if err != nil {
		if errors.Is(err, reranker.ErrEmptyQuery) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		return nil, err
	}
	s.log.Debug("query reranked", "profile", out.Profile, "results", len(out.Results), "structured", out.Structured)
	return s.composer.Compose(ctx, out)
}
