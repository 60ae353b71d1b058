package datasource

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/pkg/models"
)

const googleFinanceBaseURL = "https://www.google.com/finance"

// googleExchanges are tried in order: NSE first, then BSE.
var googleExchanges = []string{"NSE", "BOM"}

// googleLabels maps the quote page's stat labels to metrics. Previous close
// is never read as the current price.
var googleLabels = map[string]models.MetricName{
	"market cap": models.MetricMarketCap,
	"p/e ratio":  models.MetricPE,
}

// GoogleFinance scrapes the Google Finance quote page.
type GoogleFinance struct {
	baseURL string
	fetcher *Fetcher
	logger  arbor.ILogger
}

// NewGoogleFinance creates a Google Finance quote scraper.
func NewGoogleFinance(f *Fetcher, baseURL string, logger arbor.ILogger) *GoogleFinance {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = googleFinanceBaseURL
	}
	return &GoogleFinance{baseURL: base, fetcher: f, logger: logging.OrDefault(logger)}
}

// Name returns the data source name.
func (g *GoogleFinance) Name() string { return "Google Finance" }

// Quote returns whatever quote fields the page for symbol exposes, trying
// the NSE listing before the BSE one. It returns nil when neither page
// yields anything.
func (g *GoogleFinance) Quote(ctx context.Context, symbol string) (models.QuoteSnapshot, error) {
	chain := NewChain[models.QuoteSnapshot]()
	for _, ex := range googleExchanges {
		u := fmt.Sprintf("%s/quote/%s:%s", g.baseURL, symbol, ex)
		chain.Then(ex, func(ctx context.Context) (models.QuoteSnapshot, error) {
			resp, err := g.fetcher.Get(ctx, u, map[string]string{"Accept": "text/html"})
			if err != nil {
				return nil, err
			}
			q := parseGoogleQuote(resp.Body)
			if len(q) == 0 {
				return nil, fmt.Errorf("no quote fields at %s", u)
			}
			return q, nil
		})
	}

	q, ex, err := chain.Run(ctx)
	if err != nil {
		g.logger.Debug().Str("symbol", symbol).Err(err).Msg("google finance: no quote")
		return nil, err
	}
	g.logger.Debug().Str("symbol", symbol).Str("exchange", ex).Int("fields", len(q)).Msg("google finance: quote")
	return q, nil
}

// parseGoogleQuote extracts quote fields by locating label text and reading
// the adjacent value element.
func parseGoogleQuote(html string) models.QuoteSnapshot {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	q := models.QuoteSnapshot{}

	if price, ok := doc.Find("[data-last-price]").First().Attr("data-last-price"); ok && strings.TrimSpace(price) != "" {
		q[models.MetricCurrentPrice] = strings.TrimSpace(price)
	} else if price := strings.TrimSpace(doc.Find(".YMlKec.fxKbKc").First().Text()); price != "" {
		q[models.MetricCurrentPrice] = price
	}

	doc.Find("div, span").Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Length() > 0 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(sel.Text()))
		value := siblingValue(sel)
		if value == "" {
			return
		}
		if label == "year range" {
			if hi, lo, ok := splitRange(value); ok {
				setIfAbsent(q, models.MetricHigh52, hi)
				setIfAbsent(q, models.MetricLow52, lo)
			}
			return
		}
		if m, ok := googleLabels[label]; ok {
			setIfAbsent(q, m, value)
		}
	})
	return q
}

// siblingValue reads the value next to a label: its next sibling, or the
// next sibling of its parent when the label is wrapped.
func siblingValue(label *goquery.Selection) string {
	if v := strings.TrimSpace(label.Next().Text()); v != "" {
		return v
	}
	return strings.TrimSpace(label.Parent().Next().Text())
}

// splitRange splits "₹2,220.30 - ₹3,217.90" into high and low.
func splitRange(s string) (high, low string, ok bool) {
	parts := strings.Split(s, " - ")
	if len(parts) != 2 {
		return "", "", false
	}
	low = strings.TrimSpace(parts[0])
	high = strings.TrimSpace(parts[1])
	if low == "" || high == "" {
		return "", "", false
	}
	return high, low, true
}

func setIfAbsent(q models.QuoteSnapshot, m models.MetricName, v string) {
	if _, ok := q[m]; !ok && v != "" {
		q[m] = v
	}
}
