package embedding_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kb/backend/internal/adapter/embedding"
)

func TestEmbedBatch(t *testing.T) {
	t.Run("Order And Length Preserved", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/embed", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var req struct {
				Texts     []string `json:"texts"`
				Normalize bool     `json:"normalize_embeddings"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"first", "second", "third"}, req.Texts)
			assert.True(t, req.Normalize)

			// Vector i encodes its input index so order is observable.
			embeddings := make([][]float32, len(req.Texts))
			for i := range req.Texts {
				embeddings[i] = []float32{float32(i), 0.5}
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"embeddings": embeddings,
				"model_used": "test-model",
			})
		}))
		defer ts.Close()

		client := embedding.NewClient(ts.URL, 2)
		vecs, err := client.EmbedBatch(context.Background(), []string{"first", "second", "third"})
		require.NoError(t, err)
		require.Len(t, vecs, 3)
		assert.Equal(t, []float32{0, 0.5}, vecs[0])
		assert.Equal(t, []float32{1, 0.5}, vecs[1])
		assert.Equal(t, []float32{2, 0.5}, vecs[2])
	})

	t.Run("Empty Input Makes No Call", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer ts.Close()

		client := embedding.NewClient(ts.URL, 0)
		vecs, err := client.EmbedBatch(context.Background(), nil)
		assert.NoError(t, err)
		assert.Nil(t, vecs)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("Non-2xx Wraps ErrService", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		client := embedding.NewClient(ts.URL, 0)
		_, err := client.EmbedBatch(context.Background(), []string{"x"})
		assert.ErrorIs(t, err, embedding.ErrService)
	})

	t.Run("Transport Error Wraps ErrService", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		ts.Close() // connection refused

		client := embedding.NewClient(ts.URL, 0)
		_, err := client.EmbedBatch(context.Background(), []string{"x"})
		assert.ErrorIs(t, err, embedding.ErrService)
	})

	t.Run("Length Mismatch Is An Error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"embeddings": [][]float32{{0.1}},
				"model_used": "test-model",
			})
		}))
		defer ts.Close()

		client := embedding.NewClient(ts.URL, 0)
		_, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
		assert.ErrorIs(t, err, embedding.ErrService)
	})

	t.Run("Dimension Mismatch Is An Error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"embeddings": [][]float32{{0.1, 0.2, 0.3}},
				"model_used": "test-model",
			})
		}))
		defer ts.Close()

		client := embedding.NewClient(ts.URL, 1024)
		_, err := client.EmbedBatch(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, embedding.ErrService)
	})
}

func TestEmbed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float32{{0.7, 0.3}},
			"model_used": "test-model",
		})
	}))
	defer ts.Close()

	client := embedding.NewClient(ts.URL, 2)
	vec, err := client.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.7, 0.3}, vec)
}

func TestHealth(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		}))
		defer ts.Close()

		assert.NoError(t, embedding.NewClient(ts.URL, 0).Health(context.Background()))
	})

	t.Run("Unhealthy", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		assert.ErrorIs(t, embedding.NewClient(ts.URL, 0).Health(context.Background()), embedding.ErrService)
	})
}
