package reranker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/markdave123-py/Docsift/internal/core"
)

// NoResultsAnswer is returned verbatim when nothing relevant was retrieved.
const NoResultsAnswer = "I could not find relevant information in the indexed documents to answer this question."

const baseInstruction = "You are an assistant answering questions using only the numbered context passages provided. " +
	"If the passages do not contain the answer, say that you cannot find it in the documents. " +
	"Do not invent facts, sections or pages."

const sectionCitation = "Cite every statement with the section number and title it comes from and link the passage URL, " +
	"for example: ([Section 6.8 Scope](URL), page 4)."

const pageCitation = "Cite every statement with the document title and page number and link the passage URL, " +
	"for example: ([Lease Agreement, page 4](URL))."

// Citation is one source backing an answer.
type Citation struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	Section       string  `json:"section,omitempty"`
	Subsection    string  `json:"subsection,omitempty"`
	Page          int     `json:"page"`
	URL           string  `json:"url,omitempty"`
	Score         float64 `json:"score"`
}

type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
	NoResults bool       `json:"no_results"`
}

// Composer turns a reranked outcome into a cited answer.
type Composer struct {
	llm core.LLMProvider
	log *slog.Logger
}

func NewComposer(llm core.LLMProvider, log *slog.Logger) *Composer {
	if log == nil {
		log = slog.Default()
	}
	return &Composer{llm: llm, log: log}
}

// Instruction returns the system prompt for structured or unstructured results.
func Instruction(structured bool) string {
	if structured {
		return baseInstruction + " " + sectionCitation
	}
	return baseInstruction + " " + pageCitation
}

// Compose calls the chat model with the context block. The model is not
// called when the outcome has no results.
func (c *Composer) Compose(ctx context.Context, out *Outcome) (*Answer, error) {
	if out == nil || out.NoResults || len(out.Results) == 0 {
		return &Answer{Text: NoResultsAnswer, Citations: []Citation{}, NoResults: true}, nil
	}

	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", out.ContextBlock, out.Query)
	text, err := c.llm.Generate(ctx, Instruction(out.Structured), user)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		c.log.Warn("chat model returned an empty answer", "results", len(out.Results))
	}

	cites := make([]Citation, 0, len(out.Results))
	for _, r := range out.Results {
		title := r.DocumentTitle
		if title == "" {
			title = r.DocumentName
		}
		cites = append(cites, Citation{
			DocumentID:    r.DocumentID,
			DocumentTitle: title,
			Section:       r.Section.Label(),
			Subsection:    r.Subsection.Label(),
			Page:          r.PageNumber,
			URL:           r.URL,
			Score:         r.Score,
		})
	}
	return &Answer{Text: text, Citations: cites}, nil
}
