package confluence_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kb/backend/internal/adapter/confluence"
)

func TestLocators(t *testing.T) {
	t.Run("CQL Takes Precedence", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/api/content/search", r.URL.Path)
			assert.Equal(t, "space = DOCS", r.URL.Query().Get("cql"))

			json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []map[string]string{{"id": "100"}, {"id": "101"}},
				"size":    2,
			})
		}))
		defer ts.Close()

		client := confluence.NewClient(ts.URL, "u", "t", "space = DOCS", []string{"IGNORED"})
		ids, err := client.Locators(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"100", "101"}, ids)
	})

	t.Run("Enumerates Spaces", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/api/content", r.URL.Path)
			assert.Equal(t, "page", r.URL.Query().Get("type"))

			var results []map[string]string
			switch r.URL.Query().Get("spaceKey") {
			case "DOCS":
				results = []map[string]string{{"id": "1"}}
			case "ENG":
				results = []map[string]string{{"id": "2"}, {"id": "3"}}
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
		}))
		defer ts.Close()

		client := confluence.NewClient(ts.URL, "u", "t", "", []string{"DOCS", "ENG"})
		ids, err := client.Locators(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3"}, ids)
	})
}

func TestFetchPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/content/100", r.URL.Path)
		user, token, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "secret", token)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "100",
			"title": "Runbook",
			"body": map[string]interface{}{
				"storage": map[string]string{
					"value": "<p>First paragraph.</p><p>Second <b>bold</b> paragraph.</p>",
				},
			},
			"version": map[string]string{"when": "2024-03-01T10:00:00.000Z"},
			"history": map[string]string{"createdDate": "2023-12-01T09:00:00.000Z"},
			"space":   map[string]string{"key": "DOCS"},
			"_links":  map[string]string{"webui": "/spaces/DOCS/pages/100"},
		})
	}))
	defer ts.Close()

	client := confluence.NewClient(ts.URL, "bot@example.com", "secret", "", []string{"DOCS"})
	doc, err := client.Fetch(context.Background(), "100")
	require.NoError(t, err)

	assert.Equal(t, "confluence-100", doc.DocID)
	assert.Equal(t, "Runbook\n\nFirst paragraph.\nSecond bold paragraph.", doc.Text)
	assert.Equal(t, "confluence", doc.Metadata.Source)
	assert.Equal(t, "Runbook", doc.Metadata.Title)
	assert.Equal(t, ts.URL+"/spaces/DOCS/pages/100", doc.Metadata.URL)
	assert.Equal(t, "2023-12-01T09:00:00.000Z", doc.Metadata.Created)
	assert.Equal(t, "2024-03-01T10:00:00.000Z", doc.Metadata.Updated)
	assert.Equal(t, "DOCS", doc.Metadata.Space)
}

func TestFetchPageError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	client := confluence.NewClient(ts.URL, "u", "t", "", []string{"DOCS"})
	_, err := client.Fetch(context.Background(), "100")
	assert.Error(t, err)
}
