package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"

	"kb/backend/internal/document"
)

// ObjectKey is the bucket key of a document's raw blob.
func ObjectKey(docID string) string {
	return docID + ".json"
}

// Store persists raw document records in a MinIO bucket. Keys are
// deterministic per document, so re-ingestion overwrites the blob
// instead of duplicating it.
type Store struct {
	client *minio.Client
	bucket string
}

func NewStore(client *minio.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// EnsureBucket creates the bucket if it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

// PutDocument writes the full document record as JSON under
// {doc_id}.json.
func (s *Store) PutDocument(ctx context.Context, doc *document.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document %s: %w", doc.DocID, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, ObjectKey(doc.DocID),
		bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("putting object %s: %w", ObjectKey(doc.DocID), err)
	}
	return nil
}

// RemoveDocument deletes the blob. Removing an absent key succeeds, so
// deletion stays idempotent end to end.
func (s *Store) RemoveDocument(ctx context.Context, docID string) error {
	err := s.client.RemoveObject(ctx, s.bucket, ObjectKey(docID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("removing object %s: %w", ObjectKey(docID), err)
	}
	return nil
}
