package models

import (
	"time"
)

// Document statuses.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Document represents an uploaded document and its ingest state.
type Document struct {
	ID          string    `db:"id" json:"id"`
	FileName    string    `db:"file_name" json:"file_name"`
	Title       string    `db:"title" json:"title"`
	StorageURL  string    `db:"storage_url" json:"storage_url"`   // S3 URL of the original upload
	ContentType string    `db:"content_type" json:"content_type"` // MIME type reported at upload
	Status      string    `db:"status" json:"status"`             // uploaded | processing | ready | failed
	Structured  bool      `db:"structured" json:"structured"`     // true when numbered sections were detected
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SectionKind is the structural role of a Section.
type SectionKind int

const (
	SectionNone SectionKind = iota
	SectionMain
	SectionSub
	SectionHeading
)

func (k SectionKind) String() string {
	switch k {
	case SectionMain:
		return "main_section"
	case SectionSub:
		return "subsection"
	case SectionHeading:
		return "heading"
	default:
		return "none"
	}
}

// ParseSectionKind is the inverse of SectionKind.String. Unknown values map to SectionNone.
func ParseSectionKind(s string) SectionKind {
	switch s {
	case "main_section":
		return SectionMain
	case "subsection":
		return SectionSub
	case "heading":
		return SectionHeading
	default:
		return SectionNone
	}
}

// Section is a header detected in the document. The zero value is "no section".
type Section struct {
	Title      string      `json:"title"`
	Number     string      `json:"number"`
	Kind       SectionKind `json:"kind"`
	PageNumber int         `json:"page_number"`
}

// IsZero reports whether no header has been seen.
func (s Section) IsZero() bool {
	return s.Kind == SectionNone
}

// Label renders "2.1 Overview", "Overview" or "".
func (s Section) Label() string {
	switch {
	case s.Number != "" && s.Title != "":
		return s.Number + " " + s.Title
	case s.Number != "":
		return s.Number
	default:
		return s.Title
	}
}

// SemanticType is a coarse content-role label used for scoring.
type SemanticType string

const (
	TypeHeader       SemanticType = "header"
	TypeTable        SemanticType = "table"
	TypeNumberedList SemanticType = "numbered-list"
	TypeDefinition   SemanticType = "definition"
	TypeBodyText     SemanticType = "body-text"
)

// SemanticScores are the heuristic boosts stored with each chunk.
type SemanticScores struct {
	Type    float64 `json:"type_score"`
	Heading float64 `json:"heading_score"`
	Keyword float64 `json:"keyword_score"`
}

// DefaultScores is what a chunk carries when enrichment fails.
func DefaultScores() SemanticScores {
	return SemanticScores{Type: 1.0, Heading: 1.0, Keyword: 0.0}
}

// Chunk is the unit of retrieval.
type Chunk struct {
	ID               string         `json:"id"`
	DocumentID       string         `json:"document_id"`
	Position         int            `json:"position"`
	SubChunkIndex    int            `json:"sub_chunk_index"`
	Content          string         `json:"content"`
	Section          Section        `json:"section"`
	Subsection       Section        `json:"subsection"`
	PageNumber       int            `json:"page_number"`
	IsTable          bool           `json:"is_table"`
	ContextualHeader string         `json:"contextual_header"`
	PrecedingContext string         `json:"preceding_context"`
	FollowingContext string         `json:"following_context"`
	Keywords         []string       `json:"keywords"`
	HeadingLevel     int            `json:"heading_level"`
	SemanticType     SemanticType   `json:"semantic_type"`
	Scores           SemanticScores `json:"semantic_scores"`
	Embedding        []float32      `json:"embedding,omitempty"`

	// Anchor is the first line of the chunk and its page height, used by the
	// enricher for the heading level. Not persisted.
	Anchor *AnchorLine `json:"-"`
}

// AnchorLine pairs a line with the height of the page it sits on.
type AnchorLine struct {
	Line       Line
	PageHeight float64
}

// SearchResult is a chunk materialized from the search store with its base score.
type SearchResult struct {
	Chunk
	DocumentTitle string  `json:"document_title"`
	DocumentName  string  `json:"document_name"`
	BaseScore     float64 `json:"base_score"`
}
