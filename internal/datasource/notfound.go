package datasource

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SoftFailure detects "not found" pages served with HTTP 200. The phrase and
// marker lists are observed wording of the upstream site, not a contract,
// so they come from configuration.
type SoftFailure struct {
	Phrases    []string // matched case-insensitively against the page text
	URLMarkers []string // matched case-insensitively against the final URL
}

// DefaultSoftFailure returns the phrases Screener.in uses today.
func DefaultSoftFailure() SoftFailure {
	return SoftFailure{
		Phrases:    []string{"page not found", "does not exist"},
		URLMarkers: []string{"404", "not-found"},
	}
}

// LooksLikeNotFound reports whether body or finalURL indicates a missing page.
func (s SoftFailure) LooksLikeNotFound(body, finalURL string) bool {
	u := strings.ToLower(finalURL)
	for _, m := range s.URLMarkers {
		if m != "" && strings.Contains(u, strings.ToLower(m)) {
			return true
		}
	}
	return s.BodyLooksLikeNotFound(body)
}

// BodyLooksLikeNotFound checks only the page text. Script and style content
// is ignored.
func (s SoftFailure) BodyLooksLikeNotFound(body string) bool {
	text := strings.ToLower(pageText(body))
	for _, p := range s.Phrases {
		if p != "" && strings.Contains(text, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// pageText returns the visible text of an HTML document, or body unchanged
// when it cannot be parsed.
func pageText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text()
}
