package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrService marks any transport or non-2xx failure of the embedding
// service. Ingestion treats it as skip-this-document; retrieval treats
// it as request failure.
var ErrService = errors.New("embedding service error")

type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient builds a client for the embedding service at baseURL.
// When dim > 0, returned vectors are checked against it.
func NewClient(baseURL string, dim int) *Client {
	return &Client{
		baseURL: baseURL,
		dim:     dim,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// EmbedBatch returns one vector per input text, in input order.
// Empty input returns nil without a network call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]interface{}{
		"texts":                texts,
		"normalize_embeddings": true,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrService, resp.StatusCode)
	}

	var result struct {
		Embeddings [][]float32 `json:"embeddings"`
		ModelUsed  string      `json:"model_used"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrService, err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrService, len(result.Embeddings), len(texts))
	}
	if c.dim > 0 {
		for i, vec := range result.Embeddings {
			if len(vec) != c.dim {
				return nil, fmt.Errorf("%w: embedding %d has dimension %d, want %d", ErrService, i, len(vec), c.dim)
			}
		}
	}

	return result.Embeddings, nil
}

// Embed embeds a single text. Convenience for query-time callers.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Health checks the service's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrService, resp.StatusCode)
	}
	return nil
}
