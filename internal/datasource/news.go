package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/pkg/models"
	"github.com/seenimoa/fundash/pkg/utils"
)

const newsFeedURL = "https://news.google.com/rss/search?q=%s&hl=en-IN&gl=IN&ceid=IN:en"

// News turns an RSS search feed into announcement items. It backs the
// announcements section when the company page has none.
type News struct {
	feedURL string // %s is replaced with the escaped query
	fetcher *Fetcher
	parser  *gofeed.Parser
	logger  arbor.ILogger
}

// NewNews creates a news feed source. An empty feedURL uses Google News.
func NewNews(f *Fetcher, feedURL string, logger arbor.ILogger) *News {
	if feedURL == "" {
		feedURL = newsFeedURL
	}
	return &News{
		feedURL: feedURL,
		fetcher: f,
		parser:  gofeed.NewParser(),
		logger:  logging.OrDefault(logger),
	}
}

// Name returns the data source name.
func (n *News) Name() string { return "News RSS" }

// Announcements returns up to limit recent feed items about company as
// announcements: title, published date as detail, and link. Failures yield
// an empty list.
func (n *News) Announcements(ctx context.Context, company string, limit int) []models.Announcement {
	company = strings.TrimSpace(company)
	if company == "" || limit <= 0 {
		return nil
	}

	items, err := n.fetch(ctx, company)
	if err != nil {
		n.logger.Debug().Str("company", company).Err(err).Msg("news feed unavailable")
		return nil
	}

	out := make([]models.Announcement, 0, limit)
	for _, item := range items {
		if len(out) == limit {
			break
		}
		title := utils.CollapseSpace(item.Title)
		if title == "" {
			continue
		}
		a := models.Announcement{Title: title, URL: item.Link}
		if item.PublishedParsed != nil {
			a.Detail = utils.FormatDateIST(*item.PublishedParsed)
		} else {
			a.Detail = strings.TrimSpace(item.Published)
		}
		out = append(out, a)
	}
	return out
}

func (n *News) fetch(ctx context.Context, company string) ([]*gofeed.Item, error) {
	u := fmt.Sprintf(n.feedURL, url.QueryEscape(company))
	resp, err := n.fetcher.Get(ctx, u, map[string]string{"Accept": "application/rss+xml, application/xml, text/xml"})
	if err != nil {
		return nil, err
	}
	feed, err := n.parser.ParseString(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse RSS: %w", err)
	}
	return feed.Items, nil
}
