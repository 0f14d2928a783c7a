package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	viewer "github.com/markdave123-py/Docsift/internal/api/middlewares"
	"github.com/markdave123-py/Docsift/internal/core/citation"
	"github.com/markdave123-py/Docsift/internal/core/reranker"
	"github.com/markdave123-py/Docsift/internal/models"
	"github.com/markdave123-py/Docsift/internal/services"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeDocs struct {
	uploaded string
	docs     map[string]*models.Document
}

func (f *fakeDocs) Upload(_ context.Context, name, _ string, data io.Reader) (*models.Document, error) {
	b, _ := io.ReadAll(data)
	f.uploaded = string(b)
	return &models.Document{ID: "new", FileName: name, Status: models.StatusUploaded}, nil
}

func (f *fakeDocs) Get(_ context.Context, id string) (*models.Document, error) {
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, services.ErrDocumentNotFound
}

func (f *fakeDocs) List(context.Context) ([]models.Document, error) {
	return []models.Document{{ID: "a"}}, nil
}

func (f *fakeDocs) BlobURL(_ context.Context, id string) (string, error) {
	d, ok := f.docs[id]
	if !ok {
		return "", services.ErrDocumentNotFound
	}
	if d.Status != models.StatusReady {
		return "", services.ErrDocumentNotReady
	}
	return "https://bucket.s3.amazonaws.com/" + id + "?sig=1", nil
}

type fakeQueries struct {
	answer *reranker.Answer
	err    error
	got    services.QueryRequest
}

func (f *fakeQueries) Ask(_ context.Context, req services.QueryRequest) (*reranker.Answer, error) {
	f.got = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return f.answer, f.err
}

func TestUploadDocument(t *testing.T) {
	docs := &fakeDocs{}
	h := NewDocumentHandler(docs, 1<<20, quiet)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "lease.md")
	_, _ = fw.Write([]byte("# Lease"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.UploadDocument(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if docs.uploaded != "# Lease" {
		t.Errorf("unexpected upload %q", docs.uploaded)
	}
	var doc models.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil || doc.FileName != "lease.md" {
		t.Errorf("unexpected response %s", rec.Body.String())
	}
}

func TestUploadDocument_TooLarge(t *testing.T) {
	h := NewDocumentHandler(&fakeDocs{}, 64, quiet)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "big.txt")
	_, _ = fw.Write(bytes.Repeat([]byte("x"), 1024))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.UploadDocument(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestGetDocument(t *testing.T) {
	h := NewDocumentHandler(&fakeDocs{docs: map[string]*models.Document{"a": {ID: "a"}}}, 0, quiet)
	r := chi.NewRouter()
	r.Get("/api/documents/{id}", h.GetDocument)

	for path, want := range map[string]int{"/api/documents/a": http.StatusOK, "/api/documents/b": http.StatusNotFound} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("%s: expected %d, got %d", path, want, rec.Code)
		}
	}
}

func TestViewerBlob(t *testing.T) {
	secret := []byte("s")
	docs := &fakeDocs{docs: map[string]*models.Document{
		"ready":   {ID: "ready", Status: models.StatusReady},
		"pending": {ID: "pending", Status: models.StatusProcessing},
	}}
	h := NewDocumentHandler(docs, 0, quiet)
	blob := viewer.ViewerToken(secret, quiet)(http.HandlerFunc(h.ViewerBlob))

	for id, want := range map[string]int{"ready": http.StatusFound, "pending": http.StatusConflict, "gone": http.StatusNotFound} {
		token, err := citation.SignToken(secret, id, time.Minute, time.Now())
		if err != nil {
			t.Fatal(err)
		}
		rec := httptest.NewRecorder()
		blob.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/viewer/blob?token="+token, nil))
		if rec.Code != want {
			t.Errorf("%s: expected %d, got %d", id, want, rec.Code)
		}
		if want == http.StatusFound && !strings.Contains(rec.Header().Get("Location"), "/ready?sig=1") {
			t.Errorf("unexpected redirect %q", rec.Header().Get("Location"))
		}
	}
}

func TestQueryDocuments(t *testing.T) {
	answer := &reranker.Answer{
		Text:      "The term is 12 months ([Section 2.1 Overview](u), page 1).",
		Citations: []reranker.Citation{{DocumentID: "a", Section: "2.1 Overview", Page: 1, URL: "u", Score: 0.4}},
	}
	q := &fakeQueries{answer: answer}
	h := NewChatHandler(q, quiet)

	rec := httptest.NewRecorder()
	body := `{"query":"what is the term?","k":3,"min_relevance":0.5,"document_ids":["a"]}`
	h.QueryDocuments(rec, httptest.NewRequest(http.MethodPost, "/api/chat/query", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if q.got.K != 3 || q.got.MinRelevance == nil || *q.got.MinRelevance != 0.5 || len(q.got.DocumentIDs) != 1 {
		t.Errorf("unexpected request %+v", q.got)
	}
	var got reranker.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || len(got.Citations) != 1 || got.NoResults {
		t.Errorf("unexpected answer %s", rec.Body.String())
	}
}

func TestQueryDocuments_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"empty query", `{"query":" "}`, nil, http.StatusBadRequest},
		{"search failure", `{"query":"q"}`, errors.New("search store down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewChatHandler(&fakeQueries{err: tc.err, answer: &reranker.Answer{}}, quiet)
		rec := httptest.NewRecorder()
		h.QueryDocuments(rec, httptest.NewRequest(http.MethodPost, "/api/chat/query", strings.NewReader(tc.body)))
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "search store down") {
			t.Errorf("%s: internal error leaked to client", tc.name)
		}
	}
}

func TestQueryDocuments_NoResults(t *testing.T) {
	h := NewChatHandler(&fakeQueries{answer: &reranker.Answer{Text: reranker.NoResultsAnswer, Citations: []reranker.Citation{}, NoResults: true}}, quiet)
	rec := httptest.NewRecorder()
	h.QueryDocuments(rec, httptest.NewRequest(http.MethodPost, "/api/chat/query", strings.NewReader(`{"query":"unrelated"}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"no_results":true`) {
		t.Errorf("expected explicit empty answer, got %d %s", rec.Code, rec.Body.String())
	}
}
