package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"kb/backend/features/ingesttask"
	"kb/backend/internal/ingest"
	"kb/backend/internal/middleware"
)

// IngestConsumer handles queued ingestion tasks. Invalid payloads are
// poison pills: logged and dropped so NSQ does not redeliver them.
// Runner failures are returned so the message is retried.
type IngestConsumer struct {
	orchestrator *ingest.Orchestrator
}

func NewIngestConsumer(orchestrator *ingest.Orchestrator) *IngestConsumer {
	return &IngestConsumer{orchestrator: orchestrator}
}

func (h *IngestConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var task ingesttask.Task
	if err := json.Unmarshal(m.Body, &task); err != nil {
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if task.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, task.CorrelationID)
	}

	if task.Source == "" || task.Source == "all" {
		slog.InfoContext(ctx, "running full ingestion")
		return h.orchestrator.Run(ctx)
	}

	fetcher, ok := h.orchestrator.FetcherByName(task.Source)
	if !ok {
		slog.ErrorContext(ctx, "unknown source in task, dropping", "source", task.Source)
		return nil
	}

	slog.InfoContext(ctx, "running source ingestion", "source", task.Source)
	return h.orchestrator.RunSource(ctx, fetcher)
}
