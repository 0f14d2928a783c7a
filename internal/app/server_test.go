package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/markdave123-py/Docsift/internal/api/handlers"
	viewer "github.com/markdave123-py/Docsift/internal/api/middlewares"
	"github.com/markdave123-py/Docsift/internal/core/reranker"
	"github.com/markdave123-py/Docsift/internal/models"
	"github.com/markdave123-py/Docsift/internal/services"
)

type stubDocs struct{}

func (stubDocs) Upload(context.Context, string, string, io.Reader) (*models.Document, error) {
	return &models.Document{}, nil
}
func (stubDocs) Get(context.Context, string) (*models.Document, error) {
	return &models.Document{}, nil
}
func (stubDocs) List(context.Context) ([]models.Document, error) {
	return []models.Document{{ID: "a"}}, nil
}
func (stubDocs) BlobURL(context.Context, string) (string, error) { return "https://example.test", nil }

type stubQueries struct{}

func (stubQueries) Ask(context.Context, services.QueryRequest) (*reranker.Answer, error) {
	return &reranker.Answer{Text: "ok", Citations: []reranker.Citation{}}, nil
}

func TestRoutes(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Routes(
		handlers.NewDocumentHandler(stubDocs{}, 0, quiet),
		handlers.NewChatHandler(stubQueries{}, quiet),
		viewer.ViewerToken([]byte("s"), quiet),
		[]string{"http://localhost:5173"},
	)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/documents", "", http.StatusOK},
		{http.MethodGet, "/api/documents/a", "", http.StatusOK},
		{http.MethodPost, "/api/chat/query", `{"query":"q"}`, http.StatusOK},
		{http.MethodGet, "/api/viewer/blob", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/viewer/blob?token=garbage", "", http.StatusUnauthorized},
		{http.MethodDelete, "/api/documents", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
		if rec.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, rec.Code)
		}
	}
}
