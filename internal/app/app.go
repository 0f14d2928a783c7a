package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Docsift/internal/api/handlers"
	viewer "github.com/markdave123-py/Docsift/internal/api/middlewares"
	"github.com/markdave123-py/Docsift/internal/config"
	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/core/citation"
	db "github.com/markdave123-py/Docsift/internal/core/database"
	"github.com/markdave123-py/Docsift/internal/core/enricher"
	"github.com/markdave123-py/Docsift/internal/core/ingestion_engine"
	"github.com/markdave123-py/Docsift/internal/core/layout"
	"github.com/markdave123-py/Docsift/internal/core/llm"
	objectclient "github.com/markdave123-py/Docsift/internal/core/object-client"
	"github.com/markdave123-py/Docsift/internal/core/reranker"
	"github.com/markdave123-py/Docsift/internal/core/segmenter"
	"github.com/markdave123-py/Docsift/internal/services"
)

type App struct {
	DBClient     *db.DatabaseClient
	ObjectClient *objectclient.S3Client
	Providers    *llm.Providers
	DocProcessor *ingestion_engine.DocumentIngestor
	Server       *Server
	log          *slog.Logger
}

// NewPipeline wires the ingest pipeline over store and embedder.
func NewPipeline(cfg *config.Config, tuning *config.Tuning, store core.ChunkStore, emb core.EmbeddingProvider, log *slog.Logger) *ingestion_engine.Pipeline {
	return ingestion_engine.NewPipeline(
		layout.NewRouter(log.With("component", "layout")),
		segmenter.New(tuning.Segmenter, log.With("component", "segmenter")),
		enricher.New(emb, tuning.Enricher, log.With("component", "enricher")),
		ingestion_engine.NewIndexer(store, cfg.IndexBatchSize, log.With("component", "indexer")),
		log.With("component", "pipeline"),
	)
}

func NewApp(ctx context.Context, cfg *config.Config, tuning *config.Tuning, log *slog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg, log.With("component", "database"))
	if err != nil {
		return nil, err
	}

	objClient, err := objectclient.NewS3Client(appCtx, cfg, log.With("component", "s3"))
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	providers, err := llm.NewProviders(ctx, cfg)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}
	log.Info("ai provider ready", "provider", cfg.AIProvider, "embed_model", cfg.EmbedModel, "gen_model", cfg.GenModel)

	pipeline := NewPipeline(cfg, tuning, dbClient, providers.Embedder, log)
	docIngestor := ingestion_engine.NewDocumentIngestor(dbClient, objClient, pipeline, ingestion_engine.IngestConfig{
		Workers:   cfg.IngestWorkers,
		QueueSize: cfg.IngestQueue,
		Bucket:    cfg.BucketName,
	}, log.With("component", "ingestor"))

	secret := []byte(cfg.ViewerTokenSecret)
	urls := citation.NewViewerURLBuilder(cfg.ViewerBaseURL, secret, cfg.ViewerTokenTTL)
	rr := reranker.New(providers.Embedder, dbClient, urls, tuning.Reranker, log.With("component", "reranker"))
	composer := reranker.NewComposer(providers.LLM, log.With("component", "composer"))

	docService := services.NewDocumentService(dbClient, objClient, docIngestor, cfg.BucketName, log)
	queryService := services.NewQueryService(rr, composer, log)

	routes := Routes(
		handlers.NewDocumentHandler(docService, cfg.MaxUploadBytes, log),
		handlers.NewChatHandler(queryService, log),
		viewer.ViewerToken(secret, log),
		cfg.AllowedOrigins,
	)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Providers:    providers,
		DocProcessor: docIngestor,
		Server:       NewServer(cfg.Port, routes, log),
		log:          log,
	}, nil
}

// Run serves HTTP and runs the ingest workers until ctx is done or either fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.DocProcessor.Run(gctx) })
	g.Go(a.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 15*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("docsift stopped: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.Providers != nil {
		if err := a.Providers.Close(); err != nil {
			a.log.Warn("closing ai providers", "error", err)
		}
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
