package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeNotFound(t *testing.T) {
	s := DefaultSoftFailure()

	tests := []struct {
		name     string
		body     string
		finalURL string
		want     bool
	}{
		{"clean page", `<html><body><h1>Tata Consultancy</h1></body></html>`, "", false},
		{"phrase in text", `<html><body><h2>Page Not Found</h2></body></html>`, "", true},
		{"does not exist", `<p>The company you are looking for does not exist.</p>`, "", true},
		{"phrase only in script", `<html><body><script>var m="page not found";</script><p>ok</p></body></html>`, "", false},
		{"redirected to 404", `<p>ok</p>`, "https://www.screener.in/404/", true},
		{"redirected to not-found", `<p>ok</p>`, "https://www.screener.in/not-found/", true},
		{"no redirect", `<p>ok</p>`, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.LooksLikeNotFound(tc.body, tc.finalURL))
		})
	}
}

func TestSoftFailureConfigurable(t *testing.T) {
	s := SoftFailure{Phrases: []string{"no such company"}}
	assert.True(t, s.BodyLooksLikeNotFound("<p>No such company here</p>"))
	assert.False(t, s.BodyLooksLikeNotFound("<p>Page not found</p>"))
	assert.False(t, s.LooksLikeNotFound("<p>fine</p>", "https://x/404/"))
}

func TestRedirectedURL(t *testing.T) {
	assert.Equal(t, "", redirectedURL("https://a/company/540404/", "https://a/company/540404/"))
	assert.Equal(t, "https://a/404/", redirectedURL("https://a/404/", "https://a/company/X/"))
}
