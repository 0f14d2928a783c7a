package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/markdave123-py/Docsift/internal/core/citation"
)

type ctxKey int

const documentIDKey ctxKey = iota

// DocumentID returns the document a verified viewer token grants access to.
func DocumentID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(documentIDKey).(string)
	return id, ok && id != ""
}

// ViewerToken verifies the read token carried by citation URLs, taken from the
// token query parameter or a Bearer Authorization header, and attaches the
// document id it grants to the request context. A doc_id parameter naming
// another document is refused.
func ViewerToken(secret []byte, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("token")
			if token == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					token = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if token == "" {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}

			docID, err := citation.ParseToken(secret, token)
			if err != nil {
				log.Debug("viewer token rejected", "error", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if want := r.URL.Query().Get("doc_id"); want != "" && want != docID {
				http.Error(w, "token does not grant this document", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), documentIDKey, docID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
