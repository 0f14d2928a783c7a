package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/markdave123-py/Docsift/internal/core/reranker"
	"github.com/markdave123-py/Docsift/internal/services"
)

type QueryService interface {
	Ask(ctx context.Context, req services.QueryRequest) (*reranker.Answer, error)
}

type ChatHandler struct {
	queries QueryService
	log     *slog.Logger
}

func NewChatHandler(queries QueryService, log *slog.Logger) *ChatHandler {
	return &ChatHandler{queries: queries, log: log}
}

// QueryDocuments answers a question over the ready documents. A question with
// no relevant passages is a normal 200 answer with no_results set.
func (h *ChatHandler) QueryDocuments(w http.ResponseWriter, r *http.Request) {
	var req services.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	answer, err := h.queries.Ask(r.Context(), req)
	if errors.Is(err, services.ErrInvalidQuery) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error("query failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, http.StatusOK, answer)
}
