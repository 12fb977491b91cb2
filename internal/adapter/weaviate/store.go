package weaviate

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"kb/backend/internal/ingest"
	"kb/backend/internal/retrieval"
	"kb/backend/internal/vector"
)

// Store implements the pipeline's vector index on Weaviate. Batch
// writes go through the objects batcher, which blocks until the server
// acknowledges the write, so a query issued right after an upsert
// observes it.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// UpsertBatch writes a batch of points. Ids are derived from
// (docId, chunkIndex), so re-writing the same chunk replaces the old
// object instead of duplicating it.
func (s *Store) UpsertBatch(ctx context.Context, points []ingest.Point) error {
	if len(points) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(points))
	for i, p := range points {
		objects[i] = &models.Object{
			Class:  vector.ClassName,
			ID:     strfmt.UUID(vector.PointID(p.DocID, p.ChunkIndex)),
			Vector: p.Vector,
			Properties: map[string]interface{}{
				"text":       p.Text,
				"docId":      p.DocID,
				"chunkIndex": p.ChunkIndex,
				"source":     p.Metadata.Source,
				"title":      p.Metadata.Title,
				"url":        p.Metadata.URL,
				"created":    p.Metadata.Created,
				"updated":    p.Metadata.Updated,
				"project":    p.Metadata.Project,
				"status":     p.Metadata.Status,
				"space":      p.Metadata.Space,
			},
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch upsert: %w", err)
	}

	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch upsert: object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// DeleteByDocID removes every object whose docId payload field equals
// the given id. Zero matches is success, which makes deletes idempotent.
func (s *Store) DeleteByDocID(ctx context.Context, docID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"docId"}).
			WithOperator(filters.Equal).
			WithValueString(docID)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("batch delete for %s: %w", docID, err)
	}
	return nil
}

// Search returns the limit nearest points to the query vector, most
// similar first, with their payload fields.
func (s *Store) Search(ctx context.Context, queryVector []float32, limit int) ([]retrieval.Candidate, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(queryVector)

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "docId"},
		{Name: "chunkIndex"},
		{Name: "source"},
		{Name: "title"},
		{Name: "url"},
		{Name: "created"},
		{Name: "updated"},
		{Name: "project"},
		{Name: "status"},
		{Name: "space"},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near-vector search: %w", err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var candidates []retrieval.Candidate
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return candidates, nil
	}
	hits, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return candidates, nil
	}

	for _, hit := range hits {
		props, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}

		candidate := retrieval.Candidate{Metadata: make(map[string]interface{})}
		if text, ok := props["text"].(string); ok {
			candidate.Text = text
		}
		for _, key := range []string{"docId", "source", "title", "url", "created", "updated", "project", "status", "space"} {
			if v, ok := props[key].(string); ok && v != "" {
				candidate.Metadata[key] = v
			}
		}
		if idx, ok := props["chunkIndex"].(float64); ok {
			candidate.Metadata["chunkIndex"] = int(idx)
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}
