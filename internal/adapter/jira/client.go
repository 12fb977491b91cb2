package jira

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

const searchPageSize = 50

// Client fetches issues from a Jira instance over its REST API.
type Client struct {
	baseURL  string
	username string
	apiToken string
	jql      string
	client   *http.Client
}

func NewClient(baseURL, username, apiToken, jql string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		apiToken: apiToken,
		jql:      jql,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string { return "jira" }

// Locators resolves the configured JQL to the full set of issue keys,
// paginating until the server reports no more results.
func (c *Client) Locators(ctx context.Context) ([]string, error) {
	var keys []string
	startAt := 0

	for {
		q := url.Values{}
		q.Set("jql", c.jql)
		q.Set("fields", "key")
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(searchPageSize))

		var page struct {
			StartAt    int `json:"startAt"`
			MaxResults int `json:"maxResults"`
			Total      int `json:"total"`
			Issues     []struct {
				Key string `json:"key"`
			} `json:"issues"`
		}
		if err := c.get(ctx, "/rest/api/2/search?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("searching issues: %w", err)
		}

		for _, issue := range page.Issues {
			keys = append(keys, issue.Key)
		}

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			return keys, nil
		}
	}
}

// Fetch retrieves one issue and normalizes it into a Document. Text is
// summary, description and comment bodies joined with blank lines; an
// absent description is treated as empty, not an error.
func (c *Client) Fetch(ctx context.Context, issueKey string) (*document.Document, error) {
	path := fmt.Sprintf("/rest/api/2/issue/%s?fields=summary,description,comment,created,updated,project,status", url.PathEscape(issueKey))

	var issue struct {
		Key    string `json:"key"`
		Fields struct {
			Summary     string  `json:"summary"`
			Description *string `json:"description"`
			Created     string  `json:"created"`
			Updated     string  `json:"updated"`
			Project     struct {
				Key string `json:"key"`
			} `json:"project"`
			Status struct {
				Name string `json:"name"`
			} `json:"status"`
			Comment struct {
				Comments []struct {
					Body string `json:"body"`
				} `json:"comments"`
			} `json:"comment"`
		} `json:"fields"`
	}
	if err := c.get(ctx, path, &issue); err != nil {
		return nil, fmt.Errorf("fetching issue %s: %w", issueKey, err)
	}

	parts := []string{issue.Fields.Summary}
	if issue.Fields.Description != nil {
		parts = append(parts, *issue.Fields.Description)
	} else {
		parts = append(parts, "")
	}
	for _, comment := range issue.Fields.Comment.Comments {
		parts = append(parts, comment.Body)
	}

	doc := &document.Document{
		DocID: document.JiraDocID(issueKey),
		Text:  joinNonEmpty(parts),
		Metadata: document.Metadata{
			Source:  "jira",
			Title:   issue.Fields.Summary,
			URL:     c.baseURL + "/browse/" + issueKey,
			Created: issue.Fields.Created,
			Updated: issue.Fields.Updated,
			Project: issue.Fields.Project.Key,
			Status:  issue.Fields.Status.Name,
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
		return fmt.Errorf("jira api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func joinNonEmpty(parts []string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
