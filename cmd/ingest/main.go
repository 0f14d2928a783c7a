// Command ingest runs the ingest pipeline over local files and publishes them
// as ready documents, bypassing object storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/markdave123-py/Docsift/internal/app"
	"github.com/markdave123-py/Docsift/internal/config"
	db "github.com/markdave123-py/Docsift/internal/core/database"
	"github.com/markdave123-py/Docsift/internal/core/ingestion_engine"
	"github.com/markdave123-py/Docsift/internal/core/layout"
	"github.com/markdave123-py/Docsift/internal/core/llm"
	"github.com/markdave123-py/Docsift/internal/models"
	"github.com/markdave123-py/Docsift/internal/services"
)

func main() {
	docID := flag.String("id", "", "document id to (re)ingest; only valid with a single file")
	flag.Parse()
	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: ingest [--id=<uuid>] file1.pdf [file2.docx ...]")
		os.Exit(2)
	}
	if *docID != "" && len(files) > 1 {
		fmt.Fprintln(os.Stderr, "--id needs exactly one file")
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	log := cfg.NewLogger(os.Stdout)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	tuning, err := config.LoadTuning(cfg.HeuristicsFile)
	if err != nil {
		log.Error("invalid tuning file", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.NewDatabaseClient(ctx, cfg, log)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	providers, err := llm.NewProviders(ctx, cfg)
	if err != nil {
		log.Error("ai provider unavailable", "error", err)
		os.Exit(1)
	}
	defer providers.Close()

	pipeline := app.NewPipeline(cfg, tuning, store, providers.Embedder, log)

	failed := 0
	for _, path := range files {
		id := *docID
		if id == "" {
			id = uuid.NewString()
		}
		if err := ingestFile(ctx, store, pipeline, id, path); err != nil {
			failed++
			var ie *ingestion_engine.IngestError
			if errors.As(err, &ie) {
				log.Error("ingest failed", "file", path, "stage", ie.Stage, "error", ie.Err)
			} else {
				log.Error("ingest failed", "file", path, "error", err)
			}
			continue
		}
		fmt.Println(id, path)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func ingestFile(ctx context.Context, store *db.DatabaseClient, pipeline *ingestion_engine.Pipeline, id, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	doc, err := store.GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		name := filepath.Base(path)
		doc = &models.Document{
			ID:          id,
			FileName:    name,
			Title:       services.Title(name),
			StorageURL:  "file://" + abs,
			ContentType: layout.ContentTypeFor(name),
			Status:      models.StatusProcessing,
		}
		if err := store.CreateDocument(ctx, doc); err != nil {
			return err
		}
	} else if err := store.UpdateDocumentStatus(ctx, id, models.StatusProcessing); err != nil {
		return err
	}

	rep, err := pipeline.Run(ctx, doc, data)
	if err != nil {
		_ = store.UpdateDocumentStatus(context.WithoutCancel(ctx), id, models.StatusFailed)
		return err
	}
	return store.MarkDocumentReady(ctx, id, rep.Structured)
}
