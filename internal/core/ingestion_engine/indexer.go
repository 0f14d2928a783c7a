package ingestion_engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/Docsift/internal/core"
	"github.com/markdave123-py/Docsift/internal/models"
)

// MaxBatchSize caps the chunks written per store call.
const MaxBatchSize = 1000

// chunkNamespace scopes deterministic chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://docsift.dev/chunk"))

// ChunkID is stable for a (document, position, sub-chunk) triple so that
// re-ingesting a document overwrites its chunks instead of duplicating them.
func ChunkID(documentID string, position, sub int) string {
	name := documentID + "/" + strconv.Itoa(position) + "/" + strconv.Itoa(sub)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// Indexer validates enriched chunks and writes them to the store in batches.
type Indexer struct {
	store     core.ChunkStore
	batchSize int
	log       *slog.Logger
}

func NewIndexer(store core.ChunkStore, batchSize int, log *slog.Logger) *Indexer {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &Indexer{store: store, batchSize: batchSize, log: log}
}

// Index replaces the stored chunks of documentID with chunks. Chunks with
// empty content are skipped. The first failed batch aborts the rest and is
// returned; batches already written stay written.
func (x *Indexer) Index(ctx context.Context, documentID string, chunks []models.Chunk) (int, error) {
	valid := make([]models.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if err := validate(c); err != nil {
			x.log.Warn("dropping invalid chunk", "position", c.Position, "sub_chunk", c.SubChunkIndex, "error", err)
			continue
		}
		c.DocumentID = documentID
		c.ID = ChunkID(documentID, c.Position, c.SubChunkIndex)
		valid = append(valid, c)
	}

	if err := x.store.DeleteChunksByDocument(ctx, documentID); err != nil {
		return 0, fmt.Errorf("clear previous chunks: %w", err)
	}

	written := 0
	for start := 0; start < len(valid); start += x.batchSize {
		end := min(start+x.batchSize, len(valid))
		if err := x.store.UpsertChunks(ctx, valid[start:end]); err != nil {
			return written, fmt.Errorf("write batch %d-%d: %w", start, end, err)
		}
		written = end
		x.log.Debug("indexed batch", "from", start, "to", end)
	}
	return written, nil
}

func validate(c models.Chunk) error {
	switch {
	case strings.TrimSpace(c.Content) == "":
		return fmt.Errorf("empty content")
	case c.PageNumber < 1:
		return fmt.Errorf("page number %d", c.PageNumber)
	case len(c.Keywords) > 5:
		return fmt.Errorf("%d keywords", len(c.Keywords))
	case c.HeadingLevel < 0 || c.HeadingLevel > 2:
		return fmt.Errorf("heading level %d", c.HeadingLevel)
	}
	return nil
}
