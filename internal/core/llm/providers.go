package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/markdave123-py/Docsift/internal/config"
	"github.com/markdave123-py/Docsift/internal/core"
)

// Providers is the embedder and chat model selected by AI_PROVIDER.
type Providers struct {
	Embedder core.EmbeddingProvider
	LLM      core.LLMProvider
	closers  []func() error
}

func NewProviders(ctx context.Context, cfg *config.Config) (*Providers, error) {
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		return &Providers{
			Embedder: NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbedModel, cfg.EmbedDim),
			LLM:      NewOpenAILLM(cfg.OpenAIAPIKey, cfg.GenModel),
		}, nil
	case config.ProviderGemini, "":
		emb, err := NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDim)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
		}
		gen, err := NewGeminiLLM(ctx, cfg.GeminiAPIKey, cfg.GenModel)
		if err != nil {
			_ = emb.Close()
			return nil, fmt.Errorf("couldn't initialize the llm, %w", err)
		}
		return &Providers{Embedder: emb, LLM: gen, closers: []func() error{emb.Close, gen.Close}}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}

func (p *Providers) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
