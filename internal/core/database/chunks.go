package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/Docsift/internal/models"
)

// MaxUpsertBatch is the largest batch UpsertChunks accepts.
const MaxUpsertBatch = 1000

var ErrBatchTooLarge = errors.New("chunk batch too large")

const upsertChunkSQL = `
	INSERT INTO document_chunks (
		id, document_id, position, sub_chunk_index, content,
		section_number, section_title, section_kind,
		subsection_number, subsection_title, subsection_kind,
		page_number, is_table, contextual_header, preceding_context, following_context,
		keywords, keywords_text, heading_level, semantic_type,
		type_score, heading_score, keyword_score, embedding
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8,
		$9, $10, $11,
		$12, $13, $14, $15, $16,
		$17, $18, $19, $20,
		$21, $22, $23, $24
	)
	ON CONFLICT (id) DO UPDATE SET
		position = EXCLUDED.position,
		sub_chunk_index = EXCLUDED.sub_chunk_index,
		content = EXCLUDED.content,
		section_number = EXCLUDED.section_number,
		section_title = EXCLUDED.section_title,
		section_kind = EXCLUDED.section_kind,
		subsection_number = EXCLUDED.subsection_number,
		subsection_title = EXCLUDED.subsection_title,
		subsection_kind = EXCLUDED.subsection_kind,
		page_number = EXCLUDED.page_number,
		is_table = EXCLUDED.is_table,
		contextual_header = EXCLUDED.contextual_header,
		preceding_context = EXCLUDED.preceding_context,
		following_context = EXCLUDED.following_context,
		keywords = EXCLUDED.keywords,
		keywords_text = EXCLUDED.keywords_text,
		heading_level = EXCLUDED.heading_level,
		semantic_type = EXCLUDED.semantic_type,
		type_score = EXCLUDED.type_score,
		heading_score = EXCLUDED.heading_score,
		keyword_score = EXCLUDED.keyword_score,
		embedding = EXCLUDED.embedding,
		updated_at = now()
`

// UpsertChunks writes one batch in a single transaction. Either every chunk of
// the batch is stored or none is.
func (c *DatabaseClient) UpsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) > MaxUpsertBatch {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(chunks), MaxUpsertBatch)
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertChunkSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		if _, err := stmt.ExecContext(ctx, chunkArgs(&chunks[i])...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert chunk %s: %w", chunks[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}
	return nil
}

// chunkArgs lays a chunk out in upsertChunkSQL parameter order.
func chunkArgs(ch *models.Chunk) []any {
	keywords := ch.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	var embedding any
	if len(ch.Embedding) > 0 {
		embedding = pgvector.NewVector(ch.Embedding)
	}
	return []any{
		ch.ID, ch.DocumentID, ch.Position, ch.SubChunkIndex, ch.Content,
		ch.Section.Number, ch.Section.Title, ch.Section.Kind.String(),
		ch.Subsection.Number, ch.Subsection.Title, ch.Subsection.Kind.String(),
		ch.PageNumber, ch.IsTable, ch.ContextualHeader, ch.PrecedingContext, ch.FollowingContext,
		keywords, strings.Join(keywords, " "), ch.HeadingLevel, string(ch.SemanticType),
		ch.Scores.Type, ch.Scores.Heading, ch.Scores.Keyword, embedding,
	}
}

func (c *DatabaseClient) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete chunks of %s: %w", documentID, err)
	}
	return nil
}
