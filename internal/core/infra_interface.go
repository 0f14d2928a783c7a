package core

import (
	"context"
	"io"
	"time"

	"github.com/markdave123-py/Docsift/internal/models"
)

// DbClient defines the document bookkeeping operations.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status string) error
	MarkDocumentReady(ctx context.Context, id string, structured bool) error

	ChunkStore
	SearchStore

	Close() error
}

// ChunkStore is the write side of the search store.
type ChunkStore interface {
	// UpsertChunks writes one batch atomically. Batches hold at most 1000 chunks.
	UpsertChunks(ctx context.Context, chunks []models.Chunk) error
	DeleteChunksByDocument(ctx context.Context, documentID string) error
}

// RankingProfile names one of the two ranking configurations of the hybrid query.
type RankingProfile string

const (
	ProfileStructured   RankingProfile = "structured"
	ProfileUnstructured RankingProfile = "unstructured"
)

// HybridQuery is a combined vector + lexical request.
type HybridQuery struct {
	Text        string
	Vector      []float32
	Top         int
	Profile     RankingProfile
	DocumentIDs []string // empty means all ready documents
}

// SearchStore is the read side of the search store.
type SearchStore interface {
	HybridQuery(ctx context.Context, q HybridQuery) ([]models.SearchResult, error)
	// RankingProfile decides whether the documents in scope are mostly structured.
	RankingProfile(ctx context.Context, documentIDs []string) (RankingProfile, error)
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
