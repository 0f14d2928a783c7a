package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const schemaVersion = 1

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

// ErrEmbedDimMismatch is returned when the database was bootstrapped for a
// different embedding size than the one configured.
var ErrEmbedDimMismatch = errors.New("embedding dimension does not match the database")

// EnsureBootstrapped creates the schema on first start and checks that an
// existing schema matches the configured embedding dimension.
func EnsureBootstrapped(ctx context.Context, db *sql.DB, embedDim int, log *slog.Logger) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	var exists bool
	err := db.QueryRowContext(ctxBoot, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'docsift_meta'
		)`).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("meta table check failed: %w", err)
	}
	if !exists {
		log.Info("bootstrapping database schema", "version", schemaVersion, "embed_dim", embedDim)
		return runBootstrap(ctxBoot, db, embedDim)
	}

	var dim int
	err = db.QueryRowContext(ctxBoot, `SELECT embed_dim FROM docsift_meta WHERE version = $1`, schemaVersion).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		log.Info("schema version missing, re-running bootstrap", "version", schemaVersion)
		return runBootstrap(ctxBoot, db, embedDim)
	}
	if err != nil {
		return fmt.Errorf("meta version check failed: %w", err)
	}
	if dim != embedDim {
		return fmt.Errorf("%w: database has %d, EMBED_DIM is %d", ErrEmbedDimMismatch, dim, embedDim)
	}
	log.Debug("database schema up to date", "version", schemaVersion)
	return nil
}

func bootstrapScript(embedDim int) (string, error) {
	sqlBytes, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return "", fmt.Errorf("read initdb.sql: %w", err)
	}
	return strings.ReplaceAll(string(sqlBytes), "{{EMBED_DIM}}", strconv.Itoa(embedDim)), nil
}

func runBootstrap(ctx context.Context, db *sql.DB, embedDim int) error {
	script, err := bootstrapScript(embedDim)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	return nil
}
