package document

import "fmt"

// Metadata carries the source-level attributes stored alongside every
// chunk of a document. Timestamps are kept verbatim as the source API
// returned them.
type Metadata struct {
	Source  string `json:"source"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Created string `json:"created"`
	Updated string `json:"updated"`
	Project string `json:"project,omitempty"`
	Status  string `json:"status,omitempty"`
	Space   string `json:"space,omitempty"`
}

// Document is one ingested unit from a source system. DocID is
// deterministic per source item, so re-ingesting the same item
// overwrites its object-store blob instead of duplicating it.
type Document struct {
	DocID    string   `json:"doc_id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// JiraDocID returns the doc id for a Jira issue key, e.g. "jira-ABC-1".
func JiraDocID(issueKey string) string {
	return fmt.Sprintf("jira-%s", issueKey)
}

// ConfluenceDocID returns the doc id for a Confluence page id.
func ConfluenceDocID(pageID string) string {
	return fmt.Sprintf("confluence-%s", pageID)
}
