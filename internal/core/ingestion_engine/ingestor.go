package ingestion_engine

import "context"

// Ingestor is what the HTTP layer needs from the background ingestor.
type Ingestor interface {
	Run(ctx context.Context) error
	Enqueue(ctx context.Context, docID string) error
	ProcessOne(ctx context.Context, docID string) error
}

var _ Ingestor = (*DocumentIngestor)(nil)
