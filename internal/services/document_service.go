package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/core/ingestion_engine"
	"github.com/markdave123-py/Docsift/internal/core/layout"
	objectclient "github.com/markdave123-py/Docsift/internal/core/object-client"
	"github.com/markdave123-py/Docsift/internal/models"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentNotReady = errors.New("document is not ready")
)

// presignTTL bounds how long a redirected viewer may read the blob.
const presignTTL = 15 * time.Minute

const cleanupTimeout = 10 * time.Second

type DocumentService struct {
	db       core.DbClient
	storage  core.ObjectClient
	ingestor ingestion_engine.Ingestor
	bucket   string
	log      *slog.Logger
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, ing ingestion_engine.Ingestor, bucket string, log *slog.Logger) *DocumentService {
	return &DocumentService{db: db, storage: storage, ingestor: ing, bucket: bucket, log: log}
}

// Upload stores the file, records the document and queues it for ingestion.
func (s *DocumentService) Upload(ctx context.Context, fileName, contentType string, data io.Reader) (*models.Document, error) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "." || fileName == "/" || fileName == "" {
		return nil, fmt.Errorf("invalid file name")
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = layout.ContentTypeFor(fileName)
	}

	docID := uuid.NewString()
	key := objectKey(docID, fileName)
	url, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:          docID,
		FileName:    fileName,
		Title:       Title(fileName),
		StorageURL:  url,
		ContentType: contentType,
		Status:      models.StatusUploaded,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		s.discardBlob(ctx, docID, key)
		return nil, fmt.Errorf("store document metadata: %w", err)
	}

	if err := s.ingestor.Enqueue(ctx, doc.ID); err != nil {
		s.markFailed(ctx, doc)
		return nil, fmt.Errorf("queue document for ingest: %w", err)
	}
	s.log.Info("document queued for ingest", "document_id", doc.ID, "file_name", fileName, "content_type", contentType)
	return doc, nil
}

// discardBlob removes an upload whose document row was never written.
func (s *DocumentService) discardBlob(ctx context.Context, docID, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.storage.DeleteFile(ctx, s.bucket, key); err != nil {
		s.log.Error("could not remove orphaned upload", "document_id", docID, "key", key, "error", err)
	}
}

// markFailed keeps a document that could not be queued from staying in uploaded.
func (s *DocumentService) markFailed(ctx context.Context, doc *models.Document) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.db.UpdateDocumentStatus(ctx, doc.ID, models.StatusFailed); err != nil {
		s.log.Error("could not mark unqueued document failed", "document_id", doc.ID, "error", err)
		return
	}
	doc.Status = models.StatusFailed
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	docs, err := s.db.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// BlobURL returns a short-lived read URL for a ready document's original file.
func (s *DocumentService) BlobURL(ctx context.Context, id string) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.Status != models.StatusReady {
		return "", fmt.Errorf("%w: %s is %s", ErrDocumentNotReady, id, doc.Status)
	}
	key, err := objectclient.KeyFromURL(doc.StorageURL)
	if err != nil {
		return "", err
	}
	return s.storage.PresignGet(ctx, s.bucket, key, presignTTL)
}

// Title derives a display title from a file name: "master_lease-2024.pdf"
// becomes "master lease 2024".
func Title(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

// objectKey creates a consistent S3 key layout.
func objectKey(docID, fileName string) string {
	fileName = strings.ReplaceAll(fileName, " ", "_")
	return path.Join("documents", docID, fileName)
}
