package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/tidwall/gjson"

	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/pkg/models"
)

const (
	bseAPIURL   = "https://api.bseindia.com/BseIndiaAPI/api/getScripHeaderData/w"
	bseQuoteURL = "https://www.bseindia.com/stock-share-price/x/x/%s/"
)

// bsePaths lists the JSON paths probed for each metric, most specific first.
// The header API has shipped several shapes over the years.
var bsePaths = []struct {
	metric models.MetricName
	paths  []string
}{
	{models.MetricCurrentPrice, []string{"CurrRate.LTP", "Header.LTP", "LTP", "CurrVal"}},
	{models.MetricHigh52, []string{"Header.WeekHigh52", "Header.52WkHigh", "WeekHigh52", "52WkHigh"}},
	{models.MetricLow52, []string{"Header.WeekLow52", "Header.52WkLow", "WeekLow52", "52WkLow"}},
	{models.MetricMarketCap, []string{"Header.MktCapFull", "MktCapFull", "Mktcap"}},
}

// BSE reads quotes for numeric scrip codes from BSE India.
type BSE struct {
	apiURL   string
	quoteURL string // %s is replaced with the scrip code
	fetcher  *Fetcher
	logger   arbor.ILogger
}

// NewBSE creates a BSE quote source. Empty URLs use the public endpoints.
func NewBSE(f *Fetcher, apiURL, quoteURL string, logger arbor.ILogger) *BSE {
	if apiURL == "" {
		apiURL = bseAPIURL
	}
	if quoteURL == "" {
		quoteURL = bseQuoteURL
	}
	return &BSE{apiURL: apiURL, quoteURL: quoteURL, fetcher: f, logger: logging.OrDefault(logger)}
}

// Name returns the data source name.
func (b *BSE) Name() string { return "BSE India" }

// Quote returns price fields for a scrip code from the JSON API, falling
// back to the HTML quote page when the API yields nothing.
func (b *BSE) Quote(ctx context.Context, code string) (models.QuoteSnapshot, error) {
	q, _, err := NewChain[models.QuoteSnapshot]().
		Then("api", func(ctx context.Context) (models.QuoteSnapshot, error) {
			return b.fromAPI(ctx, code)
		}).
		Then("page", func(ctx context.Context) (models.QuoteSnapshot, error) {
			return b.fromPage(ctx, code)
		}).
		Run(ctx)
	if err != nil {
		b.logger.Debug().Str("code", code).Err(err).Msg("bse: no quote")
		return nil, err
	}
	return q, nil
}

func (b *BSE) fromAPI(ctx context.Context, code string) (models.QuoteSnapshot, error) {
	u := b.apiURL + "?" + url.Values{"Debtflag": {""}, "scripcode": {code}, "seriesid": {""}}.Encode()
	resp, err := b.fetcher.Get(ctx, u, map[string]string{
		"Accept":  "application/json",
		"Referer": "https://www.bseindia.com/",
		"Origin":  "https://www.bseindia.com",
	})
	if err != nil {
		return nil, err
	}
	q := parseBSEJSON(resp.Body)
	if len(q) == 0 {
		return nil, fmt.Errorf("bse api: no fields for %s", code)
	}
	return q, nil
}

func (b *BSE) fromPage(ctx context.Context, code string) (models.QuoteSnapshot, error) {
	u := fmt.Sprintf(b.quoteURL, code)
	resp, err := b.fetcher.Get(ctx, u, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse bse page: %w", err)
	}
	price := strings.TrimSpace(doc.Find("#idcrval").First().Text())
	if price == "" {
		return nil, fmt.Errorf("bse page: no price for %s", code)
	}
	return models.QuoteSnapshot{models.MetricCurrentPrice: price}, nil
}

// parseBSEJSON probes the header API response for known fields.
func parseBSEJSON(body string) models.QuoteSnapshot {
	if !gjson.Valid(body) {
		return nil
	}
	q := models.QuoteSnapshot{}
	for _, f := range bsePaths {
		for _, p := range f.paths {
			r := gjson.Get(body, p)
			if !r.Exists() {
				continue
			}
			v := strings.TrimSpace(r.String())
			if v == "" || v == "0" || v == "-" {
				continue
			}
			q[f.metric] = v
			break
		}
	}
	return q
}
