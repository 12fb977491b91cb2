package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"kb/backend/features/ingesttask"
	"kb/backend/features/query"
	"kb/backend/internal/config"
	"kb/backend/internal/ingest"
	"kb/backend/internal/middleware"
	"kb/backend/internal/retrieval"
	"kb/backend/internal/worker"
)

type App struct {
	Handler        http.Handler
	Orchestrator   *ingest.Orchestrator
	IngestConsumer *worker.IngestConsumer

	port int
}

func New(cfg *config.Config, deps *Dependencies) *App {
	orchestrator := ingest.NewOrchestrator(deps.Fetchers, deps.BlobStore, deps.VectorStore, deps.Embedder, ingest.Options{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		BatchSize:    cfg.BatchSize,
		FetchWorkers: cfg.FetchWorkers,
	})

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(deps.Embedder, deps.VectorStore, deps.Reranker, cfg.SearchTopK, queryLogger)

	queryHandler := query.NewHandler(retrievalService, orchestrator)

	var sourceNames []string
	for _, f := range deps.Fetchers {
		sourceNames = append(sourceNames, f.Name())
	}
	triggerHandler := ingesttask.NewHandler(deps.Producer, sourceNames)

	mux := http.NewServeMux()
	mux.Handle("POST /query", middleware.CorrelationID(http.HandlerFunc(queryHandler.Query)))
	mux.Handle("DELETE /document/{doc_id}", middleware.CorrelationID(http.HandlerFunc(queryHandler.DeleteDocument)))
	mux.Handle("POST /ingest", middleware.CorrelationID(http.HandlerFunc(triggerHandler.Trigger)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:        mux,
		Orchestrator:   orchestrator,
		IngestConsumer: worker.NewIngestConsumer(orchestrator),
		port:           cfg.ServerPort,
	}
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
