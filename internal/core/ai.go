package core

import (
	"context"
	"errors"
)

// ErrContextLength is wrapped by embedding providers when the input is longer
// than the model accepts. It is the only embedding failure the enricher retries.
var ErrContextLength = errors.New("input exceeds model context length")

type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
