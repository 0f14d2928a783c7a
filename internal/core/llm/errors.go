package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"

	"github.com/markdave123-py/Docsift/internal/core"
)

// Fragments providers use when an input is longer than the model accepts.
var contextLengthHints = []string{
	"context length",
	"context_length_exceeded",
	"maximum context length",
	"exceeds the maximum",
	"input token count",
	"too many tokens",
	"payload size exceeds",
	"input is too long",
}

// wrapEmbedError tags context-length failures with core.ErrContextLength so
// the enricher can split and retry; other errors are only prefixed.
func wrapEmbedError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if isContextLength(err) {
		return fmt.Errorf("%s embed: %w: %w", provider, core.ErrContextLength, err)
	}
	return fmt.Errorf("%s embed: %w", provider, err)
}

func isContextLength(err error) bool {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) && oaErr.Code == "context_length_exceeded" {
		return true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusBadRequest && hasHint(gErr.Message) {
		return true
	}
	return hasHint(err.Error())
}

func hasHint(msg string) bool {
	msg = strings.ToLower(msg)
	for _, h := range contextLengthHints {
		if strings.Contains(msg, h) {
			return true
		}
	}
	return false
}
