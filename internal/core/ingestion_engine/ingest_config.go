package ingestion_engine

import (
	"fmt"
	"log/slog"

	"github.com/markdave123-py/Docsift/internal/core"
)

// IngestConfig tunes the background ingestor.
//
// Workers:   documents processed concurrently, one document per worker.
// QueueSize: pending document IDs held before Enqueue blocks.
// Bucket:    object storage bucket holding the uploads.
type IngestConfig struct {
	Workers   int
	QueueSize int
	Bucket    string
}

// Stage names the ingest step that failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageAnalyze Stage = "analyze"
	StageSegment Stage = "segment"
	StageEnrich  Stage = "enrich"
	StageIndex   Stage = "index"
	StageStatus  Stage = "status"
)

// IngestError is the per-document failure reported by the pipeline. Document is
// the file name when known, else the document ID.
type IngestError struct {
	Document string
	Stage    Stage
	Err      error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %q failed at %s: %v", e.Document, e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// DocumentIngestor runs the ingest pipeline for uploaded documents:
//
// db:       document bookkeeping.
// obj:      object storage holding the uploaded bytes.
// pipeline: analyze, segment, enrich and index.
// jobs:     in-memory queue of document IDs to process.
type DocumentIngestor struct {
	db       core.DbClient
	obj      core.ObjectClient
	pipeline *Pipeline
	cfg      IngestConfig
	jobs     chan string
	log      *slog.Logger
}
