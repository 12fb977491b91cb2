package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"kb/backend/internal/middleware"
	"kb/backend/internal/retrieval"
)

// Retriever answers queries.
type Retriever interface {
	Query(ctx context.Context, text string) ([]retrieval.Result, error)
}

// Deleter removes a document from the vector index and the object store.
type Deleter interface {
	DeleteDocument(ctx context.Context, docID string) error
}

type Handler struct {
	retriever Retriever
	deleter   Deleter
}

func NewHandler(retriever Retriever, deleter Deleter) *Handler {
	return &Handler{retriever: retriever, deleter: deleter}
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "text is required", http.StatusBadRequest)
		return
	}

	results, err := h.retriever.Query(r.Context(), req.Text)
	if err != nil {
		slog.ErrorContext(r.Context(), "query failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if results == nil {
		results = []retrieval.Result{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"results": results}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// DeleteDocument is idempotent: deleting an absent doc id reports the
// same success as the first delete.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("doc_id")
	if docID == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "doc_id is required", http.StatusBadRequest)
		return
	}

	if err := h.deleter.DeleteDocument(r.Context(), docID); err != nil {
		slog.ErrorContext(r.Context(), "delete failed", "doc_id", docID, "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("document %s removed from index and store", docID),
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
