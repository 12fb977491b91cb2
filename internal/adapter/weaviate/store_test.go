package weaviate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	adapter "kb/backend/internal/adapter/weaviate"
	"kb/backend/internal/document"
	"kb/backend/internal/ingest"
	"kb/backend/internal/vector"
)

func mockWeaviate(t *testing.T, handler http.HandlerFunc) (*weaviate.Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	cfg := weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"}
	client, err := weaviate.NewClient(cfg)
	require.NoError(t, err)
	return client, ts
}

func metaOr(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.Write([]byte(`{"version": "1.25.0"}`))
			return
		}
		handler(w, r)
	}
}

func TestUpsertBatch(t *testing.T) {
	t.Run("Writes Objects With Derived IDs", func(t *testing.T) {
		var body map[string]interface{}
		client, ts := mockWeaviate(t, metaOr(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/batch/objects", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": vector.PointID("jira-ABC-1", 0), "result": map[string]interface{}{"status": "SUCCESS"}},
			})
		}))
		defer ts.Close()

		store := adapter.NewStore(client)
		err := store.UpsertBatch(context.Background(), []ingest.Point{{
			DocID:      "jira-ABC-1",
			ChunkIndex: 0,
			Text:       "Login bug\n\nUsers cannot log in",
			Vector:     []float32{0.1, 0.2},
			Metadata:   document.Metadata{Source: "jira", Title: "Login bug", URL: "https://jira.example.com/browse/ABC-1"},
		}})
		require.NoError(t, err)

		objects := body["objects"].([]interface{})
		require.Len(t, objects, 1)
		obj := objects[0].(map[string]interface{})
		assert.Equal(t, vector.ClassName, obj["class"])
		assert.Equal(t, vector.PointID("jira-ABC-1", 0), obj["id"])

		props := obj["properties"].(map[string]interface{})
		assert.Equal(t, "jira-ABC-1", props["docId"])
		assert.Equal(t, float64(0), props["chunkIndex"])
		assert.Equal(t, "Login bug\n\nUsers cannot log in", props["text"])
		assert.Equal(t, "jira", props["source"])
	})

	t.Run("Empty Batch Makes No Call", func(t *testing.T) {
		client, ts := mockWeaviate(t, metaOr(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request to %s", r.URL.Path)
		}))
		defer ts.Close()

		assert.NoError(t, adapter.NewStore(client).UpsertBatch(context.Background(), nil))
	})

	t.Run("Per-Object Error Surfaces", func(t *testing.T) {
		client, ts := mockWeaviate(t, metaOr(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": vector.PointID("jira-ABC-1", 0), "result": map[string]interface{}{
					"errors": map[string]interface{}{
						"error": []map[string]string{{"message": "vector dimension mismatch"}},
					},
				}},
			})
		}))
		defer ts.Close()

		err := adapter.NewStore(client).UpsertBatch(context.Background(), []ingest.Point{{
			DocID: "jira-ABC-1", Text: "x", Vector: []float32{0.1},
		}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vector dimension mismatch")
	})
}

func TestDeleteByDocID(t *testing.T) {
	var body map[string]interface{}
	client, ts := mockWeaviate(t, metaOr(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/batch/objects", r.URL.Path)
		assert.Equal(t, http.MethodDelete, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer ts.Close()

	require.NoError(t, adapter.NewStore(client).DeleteByDocID(context.Background(), "jira-ABC-1"))

	match := body["match"].(map[string]interface{})
	assert.Equal(t, vector.ClassName, match["class"])
	where := match["where"].(map[string]interface{})
	assert.Equal(t, []interface{}{"docId"}, where["path"])
	assert.Equal(t, "Equal", where["operator"])
	assert.Equal(t, "jira-ABC-1", where["valueString"])
}

func TestSearch(t *testing.T) {
	t.Run("Parses Hits Into Candidates", func(t *testing.T) {
		client, ts := mockWeaviate(t, metaOr(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/graphql", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"Get": map[string]interface{}{
						vector.ClassName: []interface{}{
							map[string]interface{}{
								"text":       "Login bug",
								"docId":      "jira-ABC-1",
								"chunkIndex": 0.0,
								"source":     "jira",
								"title":      "Login bug",
								"url":        "https://jira.example.com/browse/ABC-1",
								"space":      "",
							},
							map[string]interface{}{
								"text":       "Runbook body",
								"docId":      "confluence-100",
								"chunkIndex": 1.0,
								"source":     "confluence",
								"space":      "DOCS",
							},
						},
					},
				},
			})
		}))
		defer ts.Close()

		candidates, err := adapter.NewStore(client).Search(context.Background(), []float32{0.1, 0.2}, 10)
		require.NoError(t, err)
		require.Len(t, candidates, 2)

		assert.Equal(t, "Login bug", candidates[0].Text)
		assert.Equal(t, "jira-ABC-1", candidates[0].Metadata["docId"])
		assert.Equal(t, 0, candidates[0].Metadata["chunkIndex"])
		// Empty string fields are dropped from metadata.
		_, present := candidates[0].Metadata["space"]
		assert.False(t, present)

		assert.Equal(t, "Runbook body", candidates[1].Text)
		assert.Equal(t, "DOCS", candidates[1].Metadata["space"])
	})

	t.Run("No Hits Returns Empty", func(t *testing.T) {
		client, ts := mockWeaviate(t, metaOr(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"Get": map[string]interface{}{vector.ClassName: []interface{}{}},
				},
			})
		}))
		defer ts.Close()

		candidates, err := adapter.NewStore(client).Search(context.Background(), []float32{0.1}, 10)
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("GraphQL Error Surfaces", func(t *testing.T) {
		client, ts := mockWeaviate(t, metaOr(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"errors": []map[string]interface{}{{"message": "class not found"}},
			})
		}))
		defer ts.Close()

		_, err := adapter.NewStore(client).Search(context.Background(), []float32{0.1}, 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "class not found")
	})
}
