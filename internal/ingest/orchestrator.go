package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"kb/backend/internal/document"
	"kb/backend/internal/text"
)

// Options tune the pipeline; zero values fall back to sane defaults.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	FetchWorkers int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 500
	}
	if o.ChunkOverlap < 0 {
		o.ChunkOverlap = 0
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.FetchWorkers <= 0 {
		o.FetchWorkers = 10
	}
	return o
}

// Orchestrator runs the fetch -> chunk -> embed -> upsert pipeline.
// Per-item failures are logged and skipped; a run completes after
// attempting every enabled source.
type Orchestrator struct {
	fetchers []Fetcher
	blobs    BlobStore
	vectors  VectorStore
	embedder Embedder
	opts     Options
}

func NewOrchestrator(fetchers []Fetcher, blobs BlobStore, vectors VectorStore, embedder Embedder, opts Options) *Orchestrator {
	return &Orchestrator{
		fetchers: fetchers,
		blobs:    blobs,
		vectors:  vectors,
		embedder: embedder,
		opts:     opts.withDefaults(),
	}
}

// Run ingests every enabled source. A source whose locators cannot be
// resolved is logged and skipped; the run itself still succeeds.
func (o *Orchestrator) Run(ctx context.Context) error {
	for _, f := range o.fetchers {
		if err := o.RunSource(ctx, f); err != nil {
			slog.ErrorContext(ctx, "source ingestion failed", "source", f.Name(), "error", err)
		}
	}
	return nil
}

// RunSource ingests a single source end to end.
func (o *Orchestrator) RunSource(ctx context.Context, f Fetcher) error {
	locators, err := f.Locators(ctx)
	if err != nil {
		return fmt.Errorf("resolving locators: %w", err)
	}
	slog.InfoContext(ctx, "resolved locators", "source", f.Name(), "count", len(locators))

	docs := o.fetchAll(ctx, f, locators)

	var pending []Point
	ingested := 0
	for _, doc := range docs {
		pts, ok := o.processDocument(ctx, doc)
		if !ok {
			continue
		}
		ingested++
		pending = append(pending, pts...)
		for len(pending) >= o.opts.BatchSize {
			o.flush(ctx, pending[:o.opts.BatchSize])
			pending = pending[o.opts.BatchSize:]
		}
	}
	if len(pending) > 0 {
		o.flush(ctx, pending)
	}

	slog.InfoContext(ctx, "source ingestion finished", "source", f.Name(),
		"fetched", len(docs), "ingested", ingested, "skipped", len(locators)-len(docs))
	return nil
}

// fetchAll fetches locators concurrently with a bounded worker pool.
// Each worker writes only its own slot, so collection is race-free by
// construction; failed fetches leave a nil slot that is dropped.
func (o *Orchestrator) fetchAll(ctx context.Context, f Fetcher, locators []string) []*document.Document {
	slots := make([]*document.Document, len(locators))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.FetchWorkers)
	for i, locator := range locators {
		g.Go(func() error {
			doc, err := f.Fetch(gCtx, locator)
			if err != nil {
				slog.WarnContext(gCtx, "fetch failed, skipping item",
					"source", f.Name(), "locator", locator, "error", err)
				return nil
			}
			slots[i] = doc
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are logged above

	docs := make([]*document.Document, 0, len(slots))
	for _, d := range slots {
		if d != nil {
			docs = append(docs, d)
		}
	}
	return docs
}

// processDocument writes the raw blob, chunks and embeds the text, and
// returns the document's vector points. A written blob is not rolled
// back when embedding fails; re-running ingestion overwrites it.
func (o *Orchestrator) processDocument(ctx context.Context, doc *document.Document) ([]Point, bool) {
	if err := o.blobs.PutDocument(ctx, doc); err != nil {
		slog.ErrorContext(ctx, "blob write failed", "doc_id", doc.DocID, "error", err)
	}

	chunks := text.Split(doc.Text, o.opts.ChunkSize, o.opts.ChunkOverlap)
	if len(chunks) == 0 {
		slog.InfoContext(ctx, "document has no text, skipping", "doc_id", doc.DocID)
		return nil, false
	}

	vectors, err := o.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed, skipping document vectors",
			"doc_id", doc.DocID, "chunks", len(chunks), "error", err)
		return nil, false
	}

	points := make([]Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = Point{
			DocID:      doc.DocID,
			ChunkIndex: i,
			Text:       chunk,
			Vector:     vectors[i],
			Metadata:   doc.Metadata,
		}
	}
	return points, true
}

func (o *Orchestrator) flush(ctx context.Context, points []Point) {
	if err := o.vectors.UpsertBatch(ctx, points); err != nil {
		slog.ErrorContext(ctx, "vector upsert failed", "points", len(points), "error", err)
	}
}

// DeleteDocument removes every vector point carrying the doc id and the
// raw blob. Deleting an already-absent document succeeds.
func (o *Orchestrator) DeleteDocument(ctx context.Context, docID string) error {
	if err := o.vectors.DeleteByDocID(ctx, docID); err != nil {
		return fmt.Errorf("deleting vectors for %s: %w", docID, err)
	}
	if err := o.blobs.RemoveDocument(ctx, docID); err != nil {
		return fmt.Errorf("removing blob for %s: %w", docID, err)
	}
	return nil
}

// FetcherByName finds a configured fetcher, for queue-triggered runs.
func (o *Orchestrator) FetcherByName(name string) (Fetcher, bool) {
	for _, f := range o.fetchers {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}
