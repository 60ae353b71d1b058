package fundamental

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/fundash/pkg/models"
	"github.com/seenimoa/fundash/pkg/utils"
)

// titleSplit separates a short title from trailing date or summary text.
var titleSplit = regexp.MustCompile(`\s+-\s+`)

// ExtractAnnouncements returns up to maxItems entries of the page's
// announcements section. The section is the parent of the first h2/h3
// mentioning "announcement", else the first <ul> whose class mentions it.
// No section yields an empty list. Relative links are resolved against
// baseURL.
func ExtractAnnouncements(html string, maxItems int, baseURL string) []models.Announcement {
	out := []models.Announcement{}
	if maxItems <= 0 {
		return out
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out
	}

	root := announcementsRoot(doc)
	if root == nil {
		return out
	}

	root.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		a := li.Find("a").First()
		if a.Length() == 0 {
			return true
		}
		out = append(out, announcementFromItem(li, a, baseURL))
		return len(out) < maxItems
	})
	return out
}

func announcementsRoot(doc *goquery.Document) *goquery.Selection {
	var root *goquery.Selection
	doc.Find("h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(h.Text()), "announcement") {
			root = h.Parent()
			return false
		}
		return true
	})
	if root != nil {
		return root
	}
	doc.Find("ul").EachWithBreak(func(_ int, ul *goquery.Selection) bool {
		cls, _ := ul.Attr("class")
		if strings.Contains(strings.ToLower(cls), "announcement") {
			root = ul
			return false
		}
		return true
	})
	return root
}

func announcementFromItem(li, a *goquery.Selection, baseURL string) models.Announcement {
	linkText := spacedText(a)

	title, rest := linkText, ""
	if parts := titleSplit.Split(linkText, 2); len(parts) == 2 {
		title, rest = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}

	fullText := spacedText(li)
	after := strings.TrimSpace(strings.Replace(fullText, linkText, "", -1))
	after = utils.CollapseSpace(after)

	var detail []string
	for _, p := range []string{rest, after} {
		if p != "" {
			detail = append(detail, p)
		}
	}

	href, _ := a.Attr("href")
	return models.Announcement{
		Title:  title,
		Detail: strings.Join(detail, " - "),
		URL:    resolveLink(strings.TrimSpace(href), baseURL),
	}
}

// resolveLink makes href absolute against baseURL. Empty hrefs stay empty.
func resolveLink(href, baseURL string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" {
		return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
	}
	return base.ResolveReference(ref).String()
}

// spacedText joins the text nodes under sel with single spaces, so adjacent
// inline elements do not run together.
func spacedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(s *goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				parts = append(parts, c.Text())
				return
			}
			walk(c)
		})
	}
	walk(sel)
	return utils.CollapseSpace(strings.Join(parts, " "))
}
