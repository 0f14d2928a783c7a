package layout

import (
	"bytes"
	"context"
	"fmt"
	"mime"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/Docsift/internal/models"
)

// DocconvAnalyzer is the fallback for plain text, RTF, ODT and the other
// formats docconv understands. The output has no geometry; form feeds split pages.
type DocconvAnalyzer struct {
	useReadability bool
}

func NewDocconvAnalyzer(useReadability bool) *DocconvAnalyzer {
	return &DocconvAnalyzer{useReadability: useReadability}
}

func (a *DocconvAnalyzer) Analyze(ctx context.Context, data []byte, contentType, fileName string) (*models.AnalyzedDocument, error) {
	mimeType := docconvType(contentType, fileName)
	res, err := docconv.Convert(bytes.NewReader(data), mimeType, a.useReadability)
	if err != nil {
		return nil, fmt.Errorf("docconv %q: %w", mimeType, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var b pageBuilder
	b.addText(res.Body)
	return b.document(), nil
}

// docconvType strips parameters such as charset, which docconv does not
// match on, and falls back to the file extension for generic types.
func docconvType(contentType, fileName string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		return docconv.MimeTypeByExtension(fileName)
	}
	return mt
}
