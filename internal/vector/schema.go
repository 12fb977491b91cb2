package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// ClassName is the single collection holding every knowledge-base chunk.
const ClassName = "KnowledgeChunk"

// SchemaClient defines the Weaviate schema operations EnsureSchema needs.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema creates the KnowledgeChunk class if it is missing and
// backfills any properties added since the class was first created.
// Vector dimensionality is fixed by the first object written; distance
// is cosine and never changes after creation.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{Name: "text", DataType: []string{"text"}},
		{Name: "docId", DataType: []string{"string"}}, // exact match for filter deletes
		{Name: "chunkIndex", DataType: []string{"int"}},
		{Name: "source", DataType: []string{"string"}},
		{Name: "title", DataType: []string{"text"}},
		{Name: "url", DataType: []string{"string"}},
		{Name: "created", DataType: []string{"string"}},
		{Name: "updated", DataType: []string{"string"}},
		{Name: "project", DataType: []string{"string"}},
		{Name: "status", DataType: []string{"string"}},
		{Name: "space", DataType: []string{"string"}},
	}

	if !exists {
		class := &models.Class{
			Class:       ClassName,
			Description: "A chunk of an ingested knowledge-base document",
			Vectorizer:  "none",
			VectorIndexConfig: map[string]interface{}{
				"distance": "cosine",
			},
			Properties: properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	for _, p := range class.Properties {
		existing[p.Name] = true
	}
	for _, p := range properties {
		if !existing[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}

	return nil
}
