package ingest

import (
	"context"

	"kb/backend/internal/document"
)

// Point is one chunk vector plus payload, ready for the vector index.
// Its index id is derived from (DocID, ChunkIndex) by the store.
type Point struct {
	DocID      string
	ChunkIndex int
	Text       string
	Vector     []float32
	Metadata   document.Metadata
}

// Fetcher pulls documents from one source system. Locators resolves
// everything the source should ingest; Fetch retrieves a single item.
// Fetch errors mean "skip this item", never "abort the run".
type Fetcher interface {
	Name() string
	Locators(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, locator string) (*document.Document, error)
}

// Embedder turns chunk texts into vectors, one per text, in order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the index side of the pipeline.
type VectorStore interface {
	UpsertBatch(ctx context.Context, points []Point) error
	DeleteByDocID(ctx context.Context, docID string) error
}

// BlobStore persists raw document records for audit and replay.
type BlobStore interface {
	PutDocument(ctx context.Context, doc *document.Document) error
	RemoveDocument(ctx context.Context, docID string) error
}
