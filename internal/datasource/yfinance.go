package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/tidwall/gjson"

	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/pkg/models"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// yahooMeta maps chart meta fields to metrics.
var yahooMeta = []struct {
	metric models.MetricName
	path   string
}{
	{models.MetricCurrentPrice, "regularMarketPrice"},
	{models.MetricHigh52, "fiftyTwoWeekHigh"},
	{models.MetricLow52, "fiftyTwoWeekLow"},
}

// YFinance reads the last price and 52-week range from the Yahoo Finance
// chart endpoint. It takes the dashboard ticker as is: Yahoo uses the same
// .NS / .BO suffixes.
type YFinance struct {
	baseURL string
	fetcher *Fetcher
	logger  arbor.ILogger
}

// NewYFinance creates a Yahoo Finance quote source. An empty URL uses the
// public chart endpoint.
func NewYFinance(f *Fetcher, chartURL string, logger arbor.ILogger) *YFinance {
	base := strings.TrimRight(chartURL, "/")
	if base == "" {
		base = yahooChartURL
	}
	return &YFinance{baseURL: base, fetcher: f, logger: logging.OrDefault(logger)}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// Quote returns price fields for ticker.
func (y *YFinance) Quote(ctx context.Context, ticker string) (models.QuoteSnapshot, error) {
	u := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(ticker), url.Values{"range": {"1d"}, "interval": {"1d"}}.Encode())
	resp, err := y.fetcher.Get(ctx, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	q := parseYahooChart(resp.Body)
	if len(q) == 0 {
		return nil, fmt.Errorf("yahoo: no quote for %s", ticker)
	}
	return q, nil
}

// parseYahooChart reads the first chart result's meta block.
func parseYahooChart(body string) models.QuoteSnapshot {
	if !gjson.Valid(body) {
		return nil
	}
	if e := gjson.Get(body, "chart.error.code"); e.Exists() && e.String() != "" {
		return nil
	}
	meta := gjson.Get(body, "chart.result.0.meta")
	if !meta.Exists() {
		return nil
	}
	q := models.QuoteSnapshot{}
	for _, f := range yahooMeta {
		v := meta.Get(f.path)
		if v.Type != gjson.Number || v.Float() <= 0 {
			continue
		}
		q[f.metric] = strconv.FormatFloat(v.Float(), 'f', 2, 64)
	}
	return q
}
