package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"kb/backend/internal/app"
	"kb/backend/internal/config"
	"kb/backend/internal/logger"
)

func main() {
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	a := app.New(cfg, deps)

	// Job-style deployments run one full ingestion at startup.
	if cfg.RunIngestion {
		slog.Info("running ingestion at startup")
		if err := a.Orchestrator.Run(ctx); err != nil {
			slog.Error("ingestion run failed", "error", err)
			os.Exit(1)
		}
		slog.Info("ingestion run finished")
		if !cfg.EnableAPI && !cfg.EnableIngestWorker {
			return
		}
	}

	if cfg.EnableIngestWorker {
		consumer, err := nsq.NewConsumer(config.TopicIngestTask, "backend", nsq.NewConfig())
		if err != nil {
			slog.Error("failed to create NSQ consumer", "error", err)
			os.Exit(1)
		}
		consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
			return a.IngestConsumer.HandleMessage(m)
		}))
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
			os.Exit(1)
		}
		defer consumer.Stop()
		slog.Info("ingest worker connected")
	}

	if cfg.EnableAPI {
		if err := a.Run(ctx); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Worker-only process: block until signalled.
	<-ctx.Done()
}
