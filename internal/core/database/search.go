package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/models"
)

// rrfK is the rank offset of reciprocal rank fusion.
const rrfK = 60

var ErrUnknownProfile = errors.New("unknown ranking profile")

// tsvColumn maps a ranking profile to the full-text column it ranks on.
func tsvColumn(p core.RankingProfile) (string, error) {
	switch p {
	case core.ProfileStructured:
		return "tsv_structured", nil
	case core.ProfileUnstructured:
		return "tsv_unstructured", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProfile, p)
	}
}

// hybridSQL fuses the cosine ranking and the full-text ranking of ready
// documents. $1 vector, $2 query text, $3 document scope, $4 limit.
func hybridSQL(column string) string {
	return fmt.Sprintf(`
	WITH vec AS (
		SELECT c.id, row_number() OVER (ORDER BY c.embedding <=> $1) AS rnk
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = 'ready'
		  AND c.embedding IS NOT NULL
		  AND (cardinality($3::text[]) = 0 OR c.document_id::text = ANY($3::text[]))
		ORDER BY c.embedding <=> $1
		LIMIT $4
	),
	lex AS (
		SELECT c.id, row_number() OVER (ORDER BY ts_rank_cd(c.%[1]s, q) DESC) AS rnk
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id,
		     websearch_to_tsquery('english', $2) q
		WHERE d.status = 'ready'
		  AND c.%[1]s @@ q
		  AND (cardinality($3::text[]) = 0 OR c.document_id::text = ANY($3::text[]))
		ORDER BY ts_rank_cd(c.%[1]s, q) DESC
		LIMIT $4
	),
	fused AS (
		SELECT COALESCE(v.id, l.id) AS id,
		       COALESCE(1.0 / (%[2]d + v.rnk), 0) + COALESCE(1.0 / (%[2]d + l.rnk), 0) AS score
		FROM vec v
		FULL OUTER JOIN lex l ON l.id = v.id
	)
	SELECT c.id, c.document_id, c.position, c.sub_chunk_index, c.content,
	       c.section_number, c.section_title, c.section_kind,
	       c.subsection_number, c.subsection_title, c.subsection_kind,
	       c.page_number, c.is_table, c.contextual_header, c.preceding_context, c.following_context,
	       c.keywords, c.heading_level, c.semantic_type,
	       c.type_score, c.heading_score, c.keyword_score,
	       d.title, d.file_name, f.score
	FROM fused f
	JOIN document_chunks c ON c.id = f.id
	JOIN documents d ON d.id = c.document_id
	ORDER BY f.score DESC, c.document_id, c.position, c.sub_chunk_index
	LIMIT $4
	`, column, rrfK)
}

// scope never returns nil so the array parameter is '{}' rather than NULL.
func scope(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// HybridQuery returns up to q.Top chunks ordered by fused score, highest first.
func (c *DatabaseClient) HybridQuery(ctx context.Context, q core.HybridQuery) ([]models.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, errors.New("hybrid query without a vector")
	}
	if q.Top <= 0 {
		return nil, nil
	}
	column, err := tsvColumn(q.Profile)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, hybridSQL(column),
		pgvector.NewVector(q.Vector), q.Text, scope(q.DocumentIDs), q.Top)
	if err != nil {
		return nil, fmt.Errorf("hybrid query: %w", err)
	}
	defer rows.Close()

	types := pgtype.NewMap()
	var out []models.SearchResult
	for rows.Next() {
		var (
			r                    models.SearchResult
			sectionKind, subKind string
			semanticType         string
		)
		err := rows.Scan(
			&r.ID, &r.DocumentID, &r.Position, &r.SubChunkIndex, &r.Content,
			&r.Section.Number, &r.Section.Title, &sectionKind,
			&r.Subsection.Number, &r.Subsection.Title, &subKind,
			&r.PageNumber, &r.IsTable, &r.ContextualHeader, &r.PrecedingContext, &r.FollowingContext,
			types.SQLScanner(&r.Keywords), &r.HeadingLevel, &semanticType,
			&r.Scores.Type, &r.Scores.Heading, &r.Scores.Keyword,
			&r.DocumentTitle, &r.DocumentName, &r.BaseScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.Section.Kind = models.ParseSectionKind(sectionKind)
		r.Subsection.Kind = models.ParseSectionKind(subKind)
		r.Section.PageNumber = r.PageNumber
		r.Subsection.PageNumber = r.PageNumber
		r.SemanticType = models.SemanticType(semanticType)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hybrid query rows: %w", err)
	}
	return out, nil
}

// RankingProfile picks the structured profile when most ready documents in
// scope have numbered sections.
func (c *DatabaseClient) RankingProfile(ctx context.Context, documentIDs []string) (core.RankingProfile, error) {
	const q = `
		SELECT count(*) FILTER (WHERE structured), count(*)
		FROM documents
		WHERE status = 'ready'
		  AND (cardinality($1::text[]) = 0 OR id::text = ANY($1::text[]))
	`
	var structured, total int
	if err := c.db.QueryRowContext(ctx, q, scope(documentIDs)).Scan(&structured, &total); err != nil {
		return "", fmt.Errorf("ranking profile: %w", err)
	}
	return pickProfile(structured, total), nil
}

func pickProfile(structured, total int) core.RankingProfile {
	if total > 0 && structured*2 > total {
		return core.ProfileStructured
	}
	return core.ProfileUnstructured
}
