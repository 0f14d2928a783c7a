package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	viewer "github.com/markdave123-py/Docsift/internal/api/middlewares"
	"github.com/markdave123-py/Docsift/internal/models"
	"github.com/markdave123-py/Docsift/internal/services"
)

// DocumentService is what the document routes need.
type DocumentService interface {
	Upload(ctx context.Context, fileName, contentType string, data io.Reader) (*models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context) ([]models.Document, error)
	BlobURL(ctx context.Context, id string) (string, error)
}

type DocumentHandler struct {
	docs     DocumentService
	maxBytes int64
	log      *slog.Logger
}

func NewDocumentHandler(docs DocumentService, maxUploadBytes int64, log *slog.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, maxBytes: maxUploadBytes, log: log}
}

// UploadDocument stores the multipart "file" field and queues it for ingest.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		if r.ContentLength > h.maxBytes {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	doc, err := h.docs.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.log.Error("upload failed", "file_name", header.Filename, "request_id", middleware.GetReqID(r.Context()), "error", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, http.StatusAccepted, doc)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.List(r.Context())
	if err != nil {
		h.log.Error("list documents failed", "error", err)
		http.Error(w, "could not list documents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, http.StatusOK, docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, services.ErrDocumentNotFound) {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("get document failed", "error", err)
		http.Error(w, "could not load document", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, http.StatusOK, doc)
}

// ViewerBlob redirects a verified viewer to a presigned URL of the original file.
func (h *DocumentHandler) ViewerBlob(w http.ResponseWriter, r *http.Request) {
	docID, ok := viewer.DocumentID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	u, err := h.docs.BlobURL(r.Context(), docID)
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		http.Error(w, "document not found", http.StatusNotFound)
		return
	case errors.Is(err, services.ErrDocumentNotReady):
		http.Error(w, "document is not ready", http.StatusConflict)
		return
	case err != nil:
		h.log.Error("presign failed", "document_id", docID, "error", err)
		http.Error(w, "could not open document", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}
