package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Docsift/internal/core"
	objectclient "github.com/markdave123-py/Docsift/internal/core/object-client"
	"github.com/markdave123-py/Docsift/internal/models"
)

// NewDocumentIngestor constructs the ingestor with a bounded job queue.
func NewDocumentIngestor(db core.DbClient, obj core.ObjectClient, pipeline *Pipeline, cfg IngestConfig, log *slog.Logger) *DocumentIngestor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &DocumentIngestor{
		db: db, obj: obj, pipeline: pipeline, cfg: cfg, log: log,
		jobs: make(chan string, cfg.QueueSize),
	}
}

// Run starts the workers and blocks until ctx is done. A failing document is
// logged and marked failed; it never stops the pool.
func (i *DocumentIngestor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for w := 1; w <= i.cfg.Workers; w++ {
		log := i.log.With("worker", w)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					log.Debug("ingest worker shutting down")
					return nil
				case docID := <-i.jobs:
					log.Info("processing document", "document_id", docID)
					if err := i.ProcessOne(gctx, docID); err != nil {
						log.Error("document ingest failed", "document_id", docID, "error", err)
					}
				}
			}
		})
	}
	return g.Wait()
}

// Enqueue schedules a document ID for ingestion. It blocks while the queue is
// full, until ctx is done.
func (i *DocumentIngestor) Enqueue(ctx context.Context, docID string) error {
	select {
	case i.jobs <- docID:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", docID, ctx.Err())
	}
}

// ProcessOne fetches, ingests and publishes a single document. Any failure
// leaves the document in the failed state.
func (i *DocumentIngestor) ProcessOne(ctx context.Context, docID string) error {
	doc, err := i.db.GetDocumentByID(ctx, docID)
	if err != nil {
		return &IngestError{Document: docID, Stage: StageFetch, Err: err}
	}
	if doc == nil {
		return &IngestError{Document: docID, Stage: StageFetch, Err: errors.New("document not found")}
	}

	if err := i.db.UpdateDocumentStatus(ctx, docID, models.StatusProcessing); err != nil {
		return &IngestError{Document: doc.FileName, Stage: StageStatus, Err: err}
	}

	rep, err := i.ingest(ctx, doc)
	if err != nil {
		i.markFailed(ctx, docID)
		return err
	}

	if err := i.db.MarkDocumentReady(ctx, docID, rep.Structured); err != nil {
		i.markFailed(ctx, docID)
		return &IngestError{Document: doc.FileName, Stage: StageStatus, Err: err}
	}
	return nil
}

func (i *DocumentIngestor) ingest(ctx context.Context, doc *models.Document) (Report, error) {
	key, err := objectclient.KeyFromURL(doc.StorageURL)
	if err != nil {
		return Report{}, &IngestError{Document: doc.FileName, Stage: StageFetch, Err: err}
	}
	data, err := i.obj.GetFile(ctx, i.cfg.Bucket, key)
	if err != nil {
		return Report{}, &IngestError{Document: doc.FileName, Stage: StageFetch, Err: err}
	}
	return i.pipeline.Run(ctx, doc, data)
}

// markFailed runs even when ctx is already canceled so the document does not
// stay in processing.
func (i *DocumentIngestor) markFailed(ctx context.Context, docID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := i.db.UpdateDocumentStatus(ctx, docID, models.StatusFailed); err != nil {
		i.log.Error("could not mark document failed", "document_id", docID, "error", err)
	}
}
