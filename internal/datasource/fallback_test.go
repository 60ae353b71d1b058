package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/fundash/pkg/models"
)

const googleQuoteHTML = `<html><body>
<div class="zzDege">Tata Consultancy Services Ltd</div>
<div data-last-price="3450.5"><div class="YMlKec fxKbKc">₹3,450.50</div></div>
<div class="gyFHrc"><span class="mfs7Fc">Previous close</span><div class="P6K39c">₹3,401.00</div></div>
<div class="gyFHrc"><div><span class="mfs7Fc">Year range</span></div><div class="P6K39c">₹3,056.05 - ₹4,592.25</div></div>
<div class="gyFHrc"><span class="mfs7Fc">Market cap</span><div class="P6K39c">12.48T INR</div></div>
<div class="gyFHrc"><span class="mfs7Fc">P/E ratio</span><div class="P6K39c">25.61</div></div>
</body></html>`

func testFetcher() *Fetcher {
	return NewFetcher(FetcherOptions{Timeout: 2 * time.Second})
}

func TestParseGoogleQuote(t *testing.T) {
	q := parseGoogleQuote(googleQuoteHTML)
	assert.Equal(t, "3450.5", q[models.MetricCurrentPrice])
	assert.Equal(t, "12.48T INR", q[models.MetricMarketCap])
	assert.Equal(t, "25.61", q[models.MetricPE])
	assert.Equal(t, "₹4,592.25", q[models.MetricHigh52])
	assert.Equal(t, "₹3,056.05", q[models.MetricLow52])
}

func TestParseGoogleQuoteIgnoresPreviousClose(t *testing.T) {
	q := parseGoogleQuote(`<div><span>Previous close</span><div>₹99.00</div></div>`)
	assert.Empty(t, q)

	q = parseGoogleQuote(`<div><span>Previous close</span><div>₹99.00</div></div>
<div><span>Market cap</span><div>1.2T INR</div></div>`)
	_, hasPrice := q[models.MetricCurrentPrice]
	assert.False(t, hasPrice)
	assert.Equal(t, "1.2T INR", q[models.MetricMarketCap])
}

func TestGoogleFinanceFallsBackToBSEListing(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/quote/RPOWER:BOM" {
			fmt.Fprint(w, googleQuoteHTML)
			return
		}
		fmt.Fprint(w, "<html><body>No results</body></html>")
	}))
	defer srv.Close()

	g := NewGoogleFinance(testFetcher(), srv.URL, nil)
	q, err := g.Quote(context.Background(), "RPOWER")
	require.NoError(t, err)
	assert.NotEmpty(t, q)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/quote/RPOWER:NSE", "/quote/RPOWER:BOM"}, paths)
}

func TestGoogleFinanceNothingFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	q, err := NewGoogleFinance(testFetcher(), srv.URL, nil).Quote(context.Background(), "NONE")
	assert.Error(t, err)
	assert.Nil(t, q)
}

func TestBSEQuoteFromAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "544291", r.URL.Query().Get("scripcode"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"Header":{"PrevClose":"410.00","WeekHigh52":"525.00","WeekLow52":"210.10"},"CurrRate":{"LTP":"418.35"}}`)
	}))
	defer srv.Close()

	b := NewBSE(testFetcher(), srv.URL+"/api", srv.URL+"/page/%s/", nil)
	q, err := b.Quote(context.Background(), "544291")
	require.NoError(t, err)
	assert.Equal(t, models.QuoteSnapshot{
		models.MetricCurrentPrice: "418.35",
		models.MetricHigh52:       "525.00",
		models.MetricLow52:        "210.10",
	}, q)
}

func TestBSEQuoteFallsBackToPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api":
			fmt.Fprint(w, `{"Header":{},"CurrRate":{"LTP":""}}`)
		case "/page/500325/":
			fmt.Fprint(w, `<html><body><strong id="idcrval">2,950.10</strong></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	q, err := NewBSE(testFetcher(), srv.URL+"/api", srv.URL+"/page/%s/", nil).Quote(context.Background(), "500325")
	require.NoError(t, err)
	assert.Equal(t, "2,950.10", q[models.MetricCurrentPrice])
}

func TestParseBSEJSONRejectsGarbage(t *testing.T) {
	assert.Nil(t, parseBSEJSON("<html>not json</html>"))
	assert.Empty(t, parseBSEJSON(`{"Header":{"LTP":"0"}}`))
}

// stubSource is a QuoteSource with canned answers per identifier.
type stubSource struct {
	name    string
	answers map[string]models.QuoteSnapshot
	calls   atomic.Int64
	panics  bool
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Quote(_ context.Context, id string) (models.QuoteSnapshot, error) {
	s.calls.Add(1)
	if s.panics {
		panic("broken scraper")
	}
	if q, ok := s.answers[id]; ok {
		return q, nil
	}
	return nil, errors.New("unknown " + id)
}

func TestFallbackMergesWithoutOverwrite(t *testing.T) {
	google := &stubSource{name: "google", answers: map[string]models.QuoteSnapshot{
		"RELIANCE": {models.MetricCurrentPrice: "2950", models.MetricMarketCap: "20T INR"},
	}}
	bse := &stubSource{name: "bse", answers: map[string]models.QuoteSnapshot{
		"500325": {models.MetricCurrentPrice: "2949", models.MetricHigh52: "3200"},
	}}
	f := NewFallback(google, bse, time.Minute, nil)

	q := f.Quote(context.Background(), "RELIANCE.NS", []string{"RELIANCE", "500325"})
	assert.Equal(t, models.QuoteSnapshot{
		models.MetricCurrentPrice: "2950",
		models.MetricMarketCap:    "20T INR",
		models.MetricHigh52:       "3200",
	}, q)
}

func TestFallbackCachesResults(t *testing.T) {
	google := &stubSource{name: "google", answers: map[string]models.QuoteSnapshot{"TCS": {models.MetricCurrentPrice: "3450"}}}
	f := NewFallback(google, nil, time.Minute, nil)

	q1 := f.Quote(context.Background(), "TCS.NS", []string{"TCS"})
	q1[models.MetricPE] = "mutated"
	q2 := f.Quote(context.Background(), "TCS.NS", []string{"TCS"})

	assert.EqualValues(t, 1, google.calls.Load())
	assert.NotContains(t, q2, models.MetricPE)
}

func TestFallbackSwallowsErrorsAndPanics(t *testing.T) {
	google := &stubSource{name: "google", panics: true}
	bse := &stubSource{name: "bse"}
	f := NewFallback(google, bse, time.Minute, nil)

	assert.Nil(t, f.Quote(context.Background(), "RPOWER.BO", []string{"RPOWER", "532939"}))
	assert.EqualValues(t, 1, google.calls.Load())
	assert.EqualValues(t, 1, bse.calls.Load())

	var nilFallback *Fallback
	assert.Nil(t, nilFallback.Quote(context.Background(), "X", nil))
}

func TestSplitIdentifiers(t *testing.T) {
	symbols, codes := splitIdentifiers("RELIANCE.NS", []string{"500325", "RELIANCE", "500325"})
	assert.Equal(t, []string{"RELIANCE"}, symbols)
	assert.Equal(t, []string{"500325"}, codes)

	symbols, codes = splitIdentifiers("544291.BO", nil)
	assert.Empty(t, symbols)
	assert.Equal(t, []string{"544291"}, codes)
}

func TestFallbackAsksExtraSourcesWithTicker(t *testing.T) {
	google := &stubSource{name: "google", answers: map[string]models.QuoteSnapshot{
		"TCS": {models.MetricMarketCap: "12.48T INR"},
	}}
	yahoo := &stubSource{name: "yahoo", answers: map[string]models.QuoteSnapshot{
		"TCS.NS": {models.MetricCurrentPrice: "3450.50", models.MetricMarketCap: "ignored"},
	}}
	f := NewFallback(google, nil, time.Minute, nil, yahoo)

	q := f.Quote(context.Background(), "TCS.NS", []string{"TCS"})
	assert.Equal(t, "3450.50", q[models.MetricCurrentPrice])
	assert.Equal(t, "12.48T INR", q[models.MetricMarketCap])
	assert.Equal(t, []string{"google", "yahoo"}, f.Names())
}

func TestFallbackSkipsExtraWhenComplete(t *testing.T) {
	google := &stubSource{name: "google", answers: map[string]models.QuoteSnapshot{
		"TCS": {models.MetricCurrentPrice: "1", models.MetricHigh52: "2", models.MetricLow52: "0.5"},
	}}
	yahoo := &stubSource{name: "yahoo"}
	f := NewFallback(google, nil, time.Minute, nil, yahoo)

	f.Quote(context.Background(), "TCS.NS", []string{"TCS"})
	assert.EqualValues(t, 0, yahoo.calls.Load())
}

func TestYFinanceQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chart/500325.BO", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"500325.BO","regularMarketPrice":2950.1,"fiftyTwoWeekHigh":3217.6,"fiftyTwoWeekLow":2220.3}}],"error":null}}`)
	}))
	defer srv.Close()

	q, err := NewYFinance(testFetcher(), srv.URL+"/chart", nil).Quote(context.Background(), "500325.BO")
	require.NoError(t, err)
	assert.Equal(t, models.QuoteSnapshot{
		models.MetricCurrentPrice: "2950.10",
		models.MetricHigh52:       "3217.60",
		models.MetricLow52:        "2220.30",
	}, q)
}

func TestParseYahooChart(t *testing.T) {
	assert.Nil(t, parseYahooChart("not json"))
	assert.Nil(t, parseYahooChart(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	assert.Empty(t, parseYahooChart(`{"chart":{"result":[{"meta":{"regularMarketPrice":0}}]}}`))
}
