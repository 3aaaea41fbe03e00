package zosmf

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSnippetBytes = 512

// bodySnippet reduces an error response body to one short line. HTML pages, which
// z/OSMF and the web server in front of it return for auth and routing failures, are
// reduced to their title or visible text.
func bodySnippet(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}
	if strings.Contains(strings.ToLower(contentType), "html") || looksLikeHTML(body) {
		if text := htmlSummary(body); text != "" {
			return truncate(text)
		}
	}
	return truncate(strings.Join(strings.Fields(string(body)), " "))
}

func htmlSummary(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return firstNonEmpty(
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
		strings.Join(strings.Fields(doc.Find("body").Text()), " "),
	)
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 64 {
		head = head[:64]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func truncate(s string) string {
	if len(s) > maxSnippetBytes {
		s = s[:maxSnippetBytes]
	}
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
