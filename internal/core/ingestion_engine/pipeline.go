package ingestion_engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/core/enricher"
	"github.com/markdave123-py/Docsift/internal/core/segmenter"
	"github.com/markdave123-py/Docsift/internal/models"
)

// Pipeline turns the bytes of one document into indexed chunks. It holds no
// per-document state, so one Pipeline serves every worker.
type Pipeline struct {
	analyzer  core.LayoutAnalyzer
	segmenter *segmenter.Segmenter
	enricher  *enricher.Enricher
	indexer   *Indexer
	log       *slog.Logger
}

func NewPipeline(analyzer core.LayoutAnalyzer, seg *segmenter.Segmenter, enr *enricher.Enricher, idx *Indexer, log *slog.Logger) *Pipeline {
	return &Pipeline{analyzer: analyzer, segmenter: seg, enricher: enr, indexer: idx, log: log}
}

// Report summarizes a successful run.
type Report struct {
	Chunks     int
	Embedded   int
	Structured bool
}

// Run analyzes, segments, enriches and indexes doc. Failures come back as *IngestError.
func (p *Pipeline) Run(ctx context.Context, doc *models.Document, data []byte) (Report, error) {
	name := doc.FileName
	if name == "" {
		name = doc.ID
	}
	log := p.log.With("document_id", doc.ID, "file_name", doc.FileName)
	fail := func(stage Stage, err error) (Report, error) {
		return Report{}, &IngestError{Document: name, Stage: stage, Err: err}
	}

	analyzed, err := p.analyzer.Analyze(ctx, data, doc.ContentType, doc.FileName)
	if err != nil {
		return fail(StageAnalyze, err)
	}
	log.Debug("layout analyzed", "pages", len(analyzed.Pages), "tables", len(analyzed.Tables))

	seg := p.segmenter.Segment(analyzed)
	if len(seg.Chunks) == 0 {
		return fail(StageSegment, fmt.Errorf("no content left after filtering"))
	}
	log.Debug("document segmented", "chunks", len(seg.Chunks))

	enriched, err := p.enricher.Enrich(ctx, seg.Chunks, seg.PageHeaders)
	if err != nil {
		return fail(StageEnrich, err)
	}

	written, err := p.indexer.Index(ctx, doc.ID, enriched)
	if err != nil {
		return fail(StageIndex, err)
	}

	rep := Report{
		Chunks:     written,
		Embedded:   countEmbedded(enriched),
		Structured: segmenter.HasNumberedSections(enriched),
	}
	log.Info("document indexed", "chunks", rep.Chunks, "embedded", rep.Embedded, "structured", rep.Structured)
	return rep, nil
}

func countEmbedded(chunks []models.Chunk) int {
	n := 0
	for _, c := range chunks {
		if len(c.Embedding) > 0 {
			n++
		}
	}
	return n
}
