package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Docsift/internal/config"
	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/models"
)

// DatabaseClient is the Postgres implementation of core.DbClient. Chunks live
// next to their documents; the search side uses pgvector and full text.
type DatabaseClient struct {
	db  *sql.DB
	log *slog.Logger
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config, log *slog.Logger) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn, err := buildDSN(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	log.Info("connected to postgres")
	return &DatabaseClient{db: db, log: log}, nil
}

// buildDSN appends the CA verification parameters when a certificate is configured.
func buildDSN(databaseURL, certPath string) (string, error) {
	if certPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(certPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", certPath, err)
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", certPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// ErrDocumentNotFound is returned by status updates on an unknown id.
var ErrDocumentNotFound = errors.New("document not found")

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, file_name, title, storage_url, content_type, status, structured)
		VALUES
			($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	return c.db.QueryRowContext(ctx, q,
		doc.ID, doc.FileName, doc.Title, doc.StorageURL, doc.ContentType, doc.Status, doc.Structured,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
}

const documentColumns = `id, file_name, title, storage_url, content_type, status, structured, created_at, updated_at`

func scanDocument(s interface{ Scan(...any) error }, d *models.Document) error {
	return s.Scan(&d.ID, &d.FileName, &d.Title, &d.StorageURL, &d.ContentType, &d.Status, &d.Structured, &d.CreatedAt, &d.UpdatedAt)
}

// GetDocumentByID returns nil, nil when no document has the id.
func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var d models.Document
	err := scanDocument(c.db.QueryRowContext(ctx, q, id), &d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocuments(ctx context.Context) ([]models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, status string) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	return c.execOne(ctx, id, q, id, status)
}

// MarkDocumentReady flips the document to ready and records whether numbered
// sections were found in it.
func (c *DatabaseClient) MarkDocumentReady(ctx context.Context, id string, structured bool) error {
	const q = `
		UPDATE documents
		SET status = 'ready', structured = $2, updated_at = now()
		WHERE id = $1
	`
	return c.execOne(ctx, id, q, id, structured)
}

func (c *DatabaseClient) execOne(ctx context.Context, id, q string, args ...any) error {
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return nil
}
