package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/pkg/models"
)

const screenerBaseURL = "https://www.screener.in"

// ScreenerOptions configures the Screener page fetcher.
type ScreenerOptions struct {
	BaseURL     string
	SoftFailure SoftFailure
	MaxEntries  int // page cache size; <= 0 means 256
	Logger      arbor.ILogger
}

// fetchOutcome is a memoized fetch: a page or the error that ended it.
type fetchOutcome struct {
	page      *models.Page
	err       error
	cancelled bool
}

// Screener fetches company pages from Screener.in. Results, including
// failures, are memoized per ticker for the life of the process.
type Screener struct {
	baseURL string
	fetcher *Fetcher
	soft    SoftFailure
	cache   *lru.Cache[string, fetchOutcome]
	group   singleflight.Group
	logger  arbor.ILogger
}

// NewScreener creates a Screener.in page fetcher.
func NewScreener(f *Fetcher, opts ScreenerOptions) (*Screener, error) {
	size := opts.MaxEntries
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, fetchOutcome](size)
	if err != nil {
		return nil, fmt.Errorf("screener cache: %w", err)
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = screenerBaseURL
	}
	soft := opts.SoftFailure
	if len(soft.Phrases) == 0 && len(soft.URLMarkers) == 0 {
		soft = DefaultSoftFailure()
	}
	return &Screener{
		baseURL: base,
		fetcher: f,
		soft:    soft,
		cache:   cache,
		logger:  logging.OrDefault(opts.Logger),
	}, nil
}

// Name returns the data source name.
func (s *Screener) Name() string { return "Screener.in" }

// BaseURL returns the site root used to resolve relative links.
func (s *Screener) BaseURL() string { return s.baseURL }

// CompanyURL returns the standalone company page for an identifier.
func (s *Screener) CompanyURL(id string) string {
	return fmt.Sprintf("%s/company/%s/", s.baseURL, url.PathEscape(id))
}

// ConsolidatedURL returns the consolidated company page for an identifier.
func (s *Screener) ConsolidatedURL(id string) string {
	return s.CompanyURL(id) + "consolidated/"
}

// BalanceSheetURL links straight to the balance sheet section.
func (s *Screener) BalanceSheetURL(id string) string {
	return s.ConsolidatedURL(id) + "#balance-sheet"
}

// Fetch returns the first usable page for ticker, trying each identifier in
// order. For every identifier the consolidated page is tried first; a 404
// or a soft "not found" falls through to the standalone page, any other
// failure moves on to the next identifier.
//
// The outcome is memoized by ticker. Concurrent calls for the same ticker
// share one in-flight fetch.
func (s *Screener) Fetch(ctx context.Context, ticker string, ids []string) (*models.Page, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoIdentifier, ticker)
	}
	if o, ok := s.cache.Get(ticker); ok {
		return o.page, o.err
	}

	for {
		v, _, _ := s.group.Do(ticker, func() (any, error) {
			if o, ok := s.cache.Get(ticker); ok {
				return o, nil
			}
			page, err := s.fetchCandidates(ctx, ticker, ids)
			o := fetchOutcome{page: page, err: err}
			// A cancelled caller says nothing about the ticker.
			if ctx.Err() != nil {
				o.cancelled = true
			} else {
				s.cache.Add(ticker, o)
			}
			return o, nil
		})
		o := v.(fetchOutcome)
		// The shared fetch ran under another caller's context. When that
		// caller gave up, fetch again under ours.
		if o.cancelled && ctx.Err() == nil {
			s.logger.Debug().Str("ticker", ticker).Msg("screener: shared fetch cancelled, retrying")
			continue
		}
		return o.page, o.err
	}
}

// Cached reports whether ticker has a memoized outcome.
func (s *Screener) Cached(ticker string) bool {
	return s.cache.Contains(ticker)
}

// Invalidate drops the memoized outcome for ticker.
func (s *Screener) Invalidate(ticker string) {
	s.cache.Remove(ticker)
}

// Purge drops every memoized outcome.
func (s *Screener) Purge() {
	s.cache.Purge()
}

func (s *Screener) fetchCandidates(ctx context.Context, ticker string, ids []string) (*models.Page, error) {
	chain := NewChain[*models.Page]()
	for _, id := range ids {
		chain.Then(id, func(ctx context.Context) (*models.Page, error) {
			page, _, err := s.variants(ticker, id).Run(ctx)
			return page, err
		})
	}

	page, id, err := chain.Run(ctx)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Strs("identifiers", ids).Err(err).Msg("screener: all candidates failed")
		return nil, fmt.Errorf("%w: %s: %w", ErrTickerNotFound, ticker, err)
	}
	s.logger.Info().Str("ticker", ticker).Str("identifier", id).Str("variant", page.Variant).Msg("screener: page fetched")
	return page, nil
}

// variants is the per-identifier chain: consolidated, then standalone.
func (s *Screener) variants(ticker, id string) *Chain[*models.Page] {
	return NewChain[*models.Page]().
		Then(models.VariantConsolidated, func(ctx context.Context) (*models.Page, error) {
			u := s.ConsolidatedURL(id)
			page, err := s.attempt(ctx, ticker, id, u, models.VariantConsolidated)
			if err == nil {
				return page, nil
			}
			if IsStatus(err, 404) || errors.Is(err, ErrSoftNotFound) {
				return nil, err
			}
			// Other statuses and network errors skip the standalone page.
			return nil, Halt(err)
		}).
		Then(models.VariantStandalone, func(ctx context.Context) (*models.Page, error) {
			return s.attempt(ctx, ticker, id, s.CompanyURL(id), models.VariantStandalone)
		})
}

// attempt performs one GET and classifies the response.
func (s *Screener) attempt(ctx context.Context, ticker, id, u, variant string) (*models.Page, error) {
	resp, err := s.fetcher.Get(ctx, u, map[string]string{"Accept": "text/html"})
	if err != nil {
		s.logger.Debug().Str("ticker", ticker).Str("identifier", id).Str("url", u).Err(err).Msg("screener: request failed")
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, &ErrHTTP{StatusCode: resp.StatusCode, Status: fmt.Sprint(resp.StatusCode), URL: u}
	}
	if s.soft.LooksLikeNotFound(resp.Body, redirectedURL(resp.FinalURL, u)) {
		s.logger.Debug().Str("ticker", ticker).Str("identifier", id).Str("url", resp.FinalURL).Msg("screener: soft not-found")
		return nil, fmt.Errorf("%w: %s", ErrSoftNotFound, resp.FinalURL)
	}
	return &models.Page{
		Ticker:     ticker,
		Identifier: id,
		URL:        u,
		Variant:    variant,
		HTML:       resp.Body,
	}, nil
}

// redirectedURL returns final when the request was redirected, "" otherwise.
// Identifiers are often numeric codes, so the requested URL itself may
// contain a marker such as "404".
func redirectedURL(final, requested string) string {
	if final == requested {
		return ""
	}
	return final
}
