package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	// Sources. A source is enabled when its URL is set; its credentials
	// then become required.
	JiraURL      string `envconfig:"JIRA_URL"`
	JiraUsername string `envconfig:"JIRA_USERNAME"`
	JiraAPIToken string `envconfig:"JIRA_API_TOKEN"`
	JiraJQL      string `envconfig:"JIRA_JQL" default:"order by updated desc"`

	ConfluenceURL      string   `envconfig:"CONFLUENCE_URL"`
	ConfluenceUsername string   `envconfig:"CONFLUENCE_USERNAME"`
	ConfluenceAPIToken string   `envconfig:"CONFLUENCE_API_TOKEN"`
	ConfluenceCQL      string   `envconfig:"CONFLUENCE_CQL"`
	ConfluenceSpaces   []string `envconfig:"CONFLUENCE_SPACES"`

	// Object store
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"raw-data"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	// Vector index
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	// Model services
	EmbeddingURL string `envconfig:"EMBEDDING_URL" default:"http://embedding-service:8000"`
	RerankerURL  string `envconfig:"RERANKER_URL" default:"http://reranker-service:8000"`
	VectorDim    int    `envconfig:"VECTOR_DIM" default:"1024"`

	// Pipeline tuning
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"50"`
	BatchSize    int `envconfig:"BATCH_SIZE" default:"64"`
	FetchWorkers int `envconfig:"FETCH_WORKERS" default:"10"`
	SearchTopK   int `envconfig:"SEARCH_TOP_K" default:"10"`

	// Queue
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`

	// Process toggles
	EnableAPI          bool `envconfig:"ENABLE_API" default:"true"`
	EnableIngestWorker bool `envconfig:"ENABLE_INGEST_WORKER" default:"false"`
	RunIngestion       bool `envconfig:"RUN_INGESTION" default:"false"`

	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may also be set in the shell; a missing .env is not an error.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// JiraEnabled reports whether the Jira fetcher should run.
func (c *Config) JiraEnabled() bool { return c.JiraURL != "" }

// ConfluenceEnabled reports whether the Confluence fetcher should run.
func (c *Config) ConfluenceEnabled() bool { return c.ConfluenceURL != "" }

func (c *Config) Validate() error {
	if c.MinioEndpoint == "" {
		return fmt.Errorf("%w: MINIO_ENDPOINT", ErrMissingRequired)
	}
	if c.MinioAccessKey == "" {
		return fmt.Errorf("%w: MINIO_ACCESS_KEY", ErrMissingRequired)
	}
	if c.MinioSecretKey == "" {
		return fmt.Errorf("%w: MINIO_SECRET_KEY", ErrMissingRequired)
	}
	if c.WeaviateHost == "" {
		return fmt.Errorf("%w: WEAVIATE_HOST", ErrMissingRequired)
	}
	if c.EmbeddingURL == "" {
		return fmt.Errorf("%w: EMBEDDING_URL", ErrMissingRequired)
	}
	if c.RerankerURL == "" {
		return fmt.Errorf("%w: RERANKER_URL", ErrMissingRequired)
	}

	if c.JiraEnabled() {
		if c.JiraUsername == "" {
			return fmt.Errorf("%w: JIRA_USERNAME", ErrMissingRequired)
		}
		if c.JiraAPIToken == "" {
			return fmt.Errorf("%w: JIRA_API_TOKEN", ErrMissingRequired)
		}
	}
	if c.ConfluenceEnabled() {
		if c.ConfluenceUsername == "" {
			return fmt.Errorf("%w: CONFLUENCE_USERNAME", ErrMissingRequired)
		}
		if c.ConfluenceAPIToken == "" {
			return fmt.Errorf("%w: CONFLUENCE_API_TOKEN", ErrMissingRequired)
		}
		if c.ConfluenceCQL == "" && len(c.ConfluenceSpaces) == 0 {
			return fmt.Errorf("%w: CONFLUENCE_CQL or CONFLUENCE_SPACES", ErrMissingRequired)
		}
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}

	return nil
}
