package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kb/backend/internal/document"
)

const listPageSize = 50

// Client fetches pages from a Confluence instance over its REST API.
// Page ids are resolved either with an explicit CQL query or by
// enumerating every page of the configured spaces.
type Client struct {
	baseURL  string
	username string
	apiToken string
	cql      string
	spaces   []string
	client   *http.Client
}

func NewClient(baseURL, username, apiToken, cql string, spaces []string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		apiToken: apiToken,
		cql:      cql,
		spaces:   spaces,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string { return "confluence" }

func (c *Client) Locators(ctx context.Context) ([]string, error) {
	if c.cql != "" {
		return c.searchCQL(ctx)
	}

	var ids []string
	for _, space := range c.spaces {
		spaceIDs, err := c.listSpacePages(ctx, space)
		if err != nil {
			return nil, fmt.Errorf("listing space %s: %w", space, err)
		}
		ids = append(ids, spaceIDs...)
	}
	return ids, nil
}

func (c *Client) searchCQL(ctx context.Context) ([]string, error) {
	var ids []string
	start := 0

	for {
		q := url.Values{}
		q.Set("cql", c.cql)
		q.Set("start", strconv.Itoa(start))
		q.Set("limit", strconv.Itoa(listPageSize))

		var page struct {
			Results []struct {
				ID string `json:"id"`
			} `json:"results"`
			Size int `json:"size"`
		}
		if err := c.get(ctx, "/rest/api/content/search?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("cql search: %w", err)
		}

		for _, r := range page.Results {
			ids = append(ids, r.ID)
		}
		if len(page.Results) < listPageSize {
			return ids, nil
		}
		start += len(page.Results)
	}
}

func (c *Client) listSpacePages(ctx context.Context, space string) ([]string, error) {
	var ids []string
	start := 0

	for {
		q := url.Values{}
		q.Set("spaceKey", space)
		q.Set("type", "page")
		q.Set("start", strconv.Itoa(start))
		q.Set("limit", strconv.Itoa(listPageSize))

		var page struct {
			Results []struct {
				ID string `json:"id"`
			} `json:"results"`
		}
		if err := c.get(ctx, "/rest/api/content?"+q.Encode(), &page); err != nil {
			return nil, err
		}

		for _, r := range page.Results {
			ids = append(ids, r.ID)
		}
		if len(page.Results) < listPageSize {
			return ids, nil
		}
		start += len(page.Results)
	}
}

// Fetch retrieves one page and normalizes it into a Document. The
// storage-format body HTML is reduced to plain text with block-level
// separation preserved as newlines.
func (c *Client) Fetch(ctx context.Context, pageID string) (*document.Document, error) {
	path := fmt.Sprintf("/rest/api/content/%s?expand=body.storage,version,history,space", url.PathEscape(pageID))

	var page struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Body  struct {
			Storage struct {
				Value string `json:"value"`
			} `json:"storage"`
		} `json:"body"`
		Version struct {
			When string `json:"when"`
		} `json:"version"`
		History struct {
			CreatedDate string `json:"createdDate"`
		} `json:"history"`
		Space struct {
			Key string `json:"key"`
		} `json:"space"`
		Links struct {
			WebUI string `json:"webui"`
		} `json:"_links"`
	}
	if err := c.get(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("fetching page %s: %w", pageID, err)
	}

	body := HTMLToText(page.Body.Storage.Value)
	text := page.Title
	if body != "" {
		text = page.Title + "\n\n" + body
	}

	doc := &document.Document{
		DocID: document.ConfluenceDocID(pageID),
		Text:  text,
		Metadata: document.Metadata{
			Source:  "confluence",
			Title:   page.Title,
			URL:     c.baseURL + page.Links.WebUI,
			Created: page.History.CreatedDate,
			Updated: page.Version.When,
			Space:   page.Space.Key,
		},
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("confluence api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
