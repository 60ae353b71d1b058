package fundamental

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/pkg/models"
	"github.com/seenimoa/fundash/pkg/utils"
)

// Source tags recorded on a MetricsRecord.
const (
	SourcePrimary  = "screener"
	SourceFallback = "fallback"
)

// keyLabels maps the labels of the page's key-metrics list to fields, in
// priority order: when synonyms are both present the earlier one wins.
var keyLabels = []struct {
	label  string
	metric models.MetricName
}{
	{"Market Cap", models.MetricMarketCap},
	{"Current Price", models.MetricCurrentPrice},
	{"Stock P/E", models.MetricPE},
	{"P/E", models.MetricPE},
	{"Book Value", models.MetricBookValue},
	{"Dividend Yield", models.MetricDividendYield},
	{"ROCE", models.MetricROCE},
	{"ROCE 3Yr", models.MetricROCE},
	{"ROE", models.MetricROE},
	{"ROE 3Yr", models.MetricROE},
	{"Face Value", models.MetricFaceValue},
	{"Price to Book value", models.MetricPriceToBook},
	{"Price to book", models.MetricPriceToBook},
}

// highLowLabels carry the combined 52-week "high / low" value.
var highLowLabels = []string{"High / Low", "High/Low"}

func knownLabel(label string) bool {
	for _, k := range keyLabels {
		if k.label == label {
			return true
		}
	}
	for _, h := range highLowLabels {
		if h == label {
			return true
		}
	}
	return false
}

// keyFields are the metrics whose absence triggers the quote fallback.
var keyFields = []models.MetricName{models.MetricMarketCap, models.MetricCurrentPrice}

// QuoteFallback supplies secondary quote data for a ticker.
type QuoteFallback interface {
	Quote(ctx context.Context, ticker string, ids []string) models.QuoteSnapshot
}

// Linker builds links to the primary site's pages.
type Linker interface {
	CompanyURL(id string) string
	BalanceSheetURL(id string) string
}

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	Fallback   QuoteFallback // optional
	Links      Linker        // optional
	MaxEntries int           // memo size; <= 0 means 256
	Logger     arbor.ILogger
}

// Extractor turns a company page into a MetricsRecord. Records are
// memoized per ticker for the life of the process.
type Extractor struct {
	fallback QuoteFallback
	links    Linker
	cache    *lru.Cache[string, models.MetricsRecord]
	logger   arbor.ILogger
}

// NewExtractor creates a metrics extractor.
func NewExtractor(opts ExtractorOptions) (*Extractor, error) {
	size := opts.MaxEntries
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, models.MetricsRecord](size)
	if err != nil {
		return nil, fmt.Errorf("metrics cache: %w", err)
	}
	return &Extractor{
		fallback: opts.Fallback,
		links:    opts.Links,
		cache:    cache,
		logger:   logging.OrDefault(opts.Logger),
	}, nil
}

// Extract parses html into a MetricsRecord for ticker. ids are the
// identifiers the page was fetched with, the successful one first; they
// build the page links and drive the quote fallback. Fields that cannot be
// found or derived are NotAvailable; Extract never fails.
func (e *Extractor) Extract(ctx context.Context, html, ticker string, ids []string) models.MetricsRecord {
	if rec, ok := e.cache.Get(ticker); ok {
		return rec.Clone()
	}

	rec := models.NewMetricsRecord()
	e.setLinks(&rec, ids)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn().Str("ticker", ticker).Err(err).Msg("metrics: unparseable page")
	} else {
		if applyKeyMetrics(doc, rec) > 0 {
			rec.AddSource(SourcePrimary)
		}
		plRule, _ := LocatorFor(models.StatementProfitLoss)
		pl := plRule.Find(tablesFromDoc(doc))
		if pl == nil {
			e.logger.Debug().Str("ticker", ticker).Msg("metrics: profit & loss table not found")
		}
		rec.Set(models.MetricSalesYoY, RowYoY(pl, "Sales"))
		rec.Set(models.MetricProfitYoY, RowYoY(pl, "Net Profit"))
	}

	if len(rec.Missing(keyFields...)) > 0 {
		e.backfill(ctx, &rec, ticker, ids)
	}
	if !rec.Has(models.MetricPriceToBook) {
		rec.Set(models.MetricPriceToBook, PriceToBook(rec.Get(models.MetricCurrentPrice), rec.Get(models.MetricBookValue)))
	}

	if ctx.Err() == nil {
		e.cache.Add(ticker, rec.Clone())
	}
	return rec
}

// QuoteOnly builds a record from the fallback sources alone, for tickers
// whose company page could not be fetched. ok is false when the fallback
// knows nothing about ticker.
func (e *Extractor) QuoteOnly(ctx context.Context, ticker string, ids []string) (models.MetricsRecord, bool) {
	rec := models.NewMetricsRecord()
	if !e.backfill(ctx, &rec, ticker, ids) {
		return rec, false
	}
	rec.Set(models.MetricPriceToBook, PriceToBook(rec.Get(models.MetricCurrentPrice), rec.Get(models.MetricBookValue)))
	return rec, true
}

// Forget drops the memoized record for ticker.
func (e *Extractor) Forget(ticker string) {
	e.cache.Remove(ticker)
}

// backfill fills still-missing fields from the quote fallback without
// touching fields already populated. It reports whether anything was filled.
func (e *Extractor) backfill(ctx context.Context, rec *models.MetricsRecord, ticker string, ids []string) bool {
	if e.fallback == nil {
		return false
	}
	q := e.fallback.Quote(ctx, ticker, ids)
	filled := 0
	for _, m := range models.MetricOrder {
		v, ok := q[m]
		if !ok || v == "" || rec.Has(m) {
			continue
		}
		rec.Set(m, v)
		filled++
	}
	if filled > 0 {
		rec.AddSource(SourceFallback)
		e.logger.Info().Str("ticker", ticker).Int("fields", filled).Msg("metrics: backfilled from fallback sources")
	}
	return filled > 0
}

func (e *Extractor) setLinks(rec *models.MetricsRecord, ids []string) {
	if e.links == nil || len(ids) == 0 || ids[0] == "" {
		return
	}
	rec.CompanyPage = e.links.CompanyURL(ids[0])
	rec.BalanceSheetPage = e.links.BalanceSheetURL(ids[0])
}

// KeyMetrics returns the label → value pairs of every list item shaped as
// <li><span>label</span><span>value</span>…</li> whose label is known.
func KeyMetrics(doc *goquery.Document) map[string]string {
	out := map[string]string{}
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		spans := li.Find("span")
		if spans.Length() < 2 {
			return
		}
		label := utils.CollapseSpace(spans.Eq(0).Text())
		if !knownLabel(label) {
			return
		}
		if _, seen := out[label]; seen {
			return
		}
		out[label] = utils.CollapseSpace(spans.Eq(1).Text())
	})
	return out
}

// applyKeyMetrics copies the key-metrics list into rec and returns the
// number of fields set.
func applyKeyMetrics(doc *goquery.Document, rec models.MetricsRecord) int {
	kv := KeyMetrics(doc)
	n := 0
	for _, k := range keyLabels {
		n += setOnce(rec, k.metric, kv[k.label])
	}
	for _, label := range highLowLabels {
		if hi, lo, ok := SplitHighLow(kv[label]); ok && kv[label] != "" {
			n += setOnce(rec, models.MetricHigh52, hi)
			n += setOnce(rec, models.MetricLow52, lo)
		}
	}
	return n
}

func setOnce(rec models.MetricsRecord, m models.MetricName, v string) int {
	if v == "" || rec.Has(m) {
		return 0
	}
	rec.Set(m, v)
	return 1
}
