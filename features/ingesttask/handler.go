package ingesttask

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"kb/backend/internal/config"
	"kb/backend/internal/middleware"
)

// TaskPublisher publishes messages to the ingest queue.
type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// Task is the queued ingestion request. Source is one of the configured
// fetcher names, or "all".
type Task struct {
	Source        string `json:"source"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type Handler struct {
	publisher TaskPublisher
	sources   map[string]bool
}

func NewHandler(publisher TaskPublisher, sourceNames []string) *Handler {
	sources := map[string]bool{"all": true}
	for _, name := range sourceNames {
		sources[name] = true
	}
	return &Handler{publisher: publisher, sources: sources}
}

// Trigger enqueues an ingestion run and returns 202; the ingest worker
// picks the task up from NSQ.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = "all"
	}
	if !h.sources[req.Source] {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "unknown source: "+req.Source, http.StatusBadRequest)
		return
	}

	task := Task{
		Source:        req.Source,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	}
	body, err := json.Marshal(task)
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.publisher.Publish(config.TopicIngestTask, body); err != nil {
		slog.ErrorContext(r.Context(), "failed to publish ingest task", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "queued", "source": req.Source}); err != nil {
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
