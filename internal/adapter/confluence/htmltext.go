package confluence

import (
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "tr": true, "blockquote": true, "pre": true, "section": true,
}

// HTMLToText strips tags from Confluence storage-format HTML, keeping
// text content and turning block-level boundaries into newlines. Input
// that fails to parse degrades to whatever text was recovered; the
// tokenizer never returns an error other than EOF for in-memory input.
func HTMLToText(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(raw))

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return normalizeBlankLines(b.String())
		case html.TextToken:
			b.WriteString(string(tokenizer.Text()))
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if blockTags[string(name)] {
				b.WriteString("\n")
			}
		}
	}
}

// normalizeBlankLines trims each line and drops the blank ones, so
// tag-heavy markup reduces to one line per block of text.
func normalizeBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
