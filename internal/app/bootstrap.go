package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"kb/backend/internal/adapter/confluence"
	"kb/backend/internal/adapter/embedding"
	"kb/backend/internal/adapter/jira"
	"kb/backend/internal/adapter/objectstore"
	"kb/backend/internal/adapter/reranker"
	wstore "kb/backend/internal/adapter/weaviate"
	"kb/backend/internal/config"
	"kb/backend/internal/ingest"
	"kb/backend/internal/vector"
)

// Dependencies holds every external client the app needs, constructed
// once at process start and passed in explicitly.
type Dependencies struct {
	VectorStore *wstore.Store
	BlobStore   *objectstore.Store
	Embedder    *embedding.Client
	Reranker    *reranker.Client
	Producer    *nsq.Producer
	Fetchers    []ingest.Fetcher
}

// Bootstrap builds all clients and ensures the collection and bucket
// exist, retrying while the backing services come up.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	// Weaviate
	wClient, err := weaviate.NewClient(weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme})
	if err != nil {
		return nil, fmt.Errorf("weaviate client error: %w", err)
	}
	schemaClient := vector.NewWeaviateClientAdapter(wClient)
	if err := retry(cfg.BootstrapRetryAttempts, retryDelay, func() error {
		return vector.EnsureSchema(ctx, schemaClient)
	}); err != nil {
		return nil, fmt.Errorf("weaviate schema error: %w", err)
	}
	slog.Info("weaviate schema ensured", "class", vector.ClassName)

	// MinIO
	mClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client error: %w", err)
	}
	blobStore := objectstore.NewStore(mClient, cfg.MinioBucket)
	if err := retry(cfg.BootstrapRetryAttempts, retryDelay, func() error {
		return blobStore.EnsureBucket(ctx)
	}); err != nil {
		return nil, fmt.Errorf("minio bucket error: %w", err)
	}
	slog.Info("object store bucket ensured", "bucket", cfg.MinioBucket)

	// NSQ producer
	producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("nsq producer error: %w", err)
	}
	createTopics(cfg.NSQDHTTP)

	// Fetchers
	var fetchers []ingest.Fetcher
	if cfg.JiraEnabled() {
		fetchers = append(fetchers, jira.NewClient(cfg.JiraURL, cfg.JiraUsername, cfg.JiraAPIToken, cfg.JiraJQL))
	}
	if cfg.ConfluenceEnabled() {
		fetchers = append(fetchers, confluence.NewClient(
			cfg.ConfluenceURL, cfg.ConfluenceUsername, cfg.ConfluenceAPIToken,
			cfg.ConfluenceCQL, cfg.ConfluenceSpaces))
	}

	return &Dependencies{
		VectorStore: wstore.NewStore(wClient),
		BlobStore:   blobStore,
		Embedder:    embedding.NewClient(cfg.EmbeddingURL, cfg.VectorDim),
		Reranker:    reranker.NewClient(cfg.RerankerURL),
		Producer:    producer,
		Fetchers:    fetchers,
	}, nil
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		slog.Warn("bootstrap step failed, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}

// createTopics pre-creates the ingest topic via the nsqd HTTP API.
// NSQ creates topics lazily on publish, but a consumer querying lookupd
// gets 404s until the topic exists.
func createTopics(nsqdHTTP string) {
	go func() {
		time.Sleep(2 * time.Second)
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, config.TopicIngestTask)
		resp, err := http.Post(url, "application/json", nil)
		if err != nil {
			slog.Warn("failed to pre-create NSQ topic", "topic", config.TopicIngestTask, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}()
}
