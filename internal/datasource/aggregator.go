package datasource

import (
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/fundash/internal/config"
	"github.com/seenimoa/fundash/internal/logging"
)

// Aggregator owns every upstream source built from one configuration: the
// primary company-page scraper, the quote fallback chain and the
// announcements news feed.
type Aggregator struct {
	screener *Screener
	fallback *Fallback // nil when disabled
	news     *News     // nil when disabled
}

// NewAggregator wires the sources from cfg. The primary site and the
// fallback sources get separate fetchers so their rate limits and timeouts
// are independent.
func NewAggregator(cfg *config.Config, logger arbor.ILogger) (*Aggregator, error) {
	logger = logging.OrDefault(logger)

	primary := NewFetcher(FetcherOptions{
		Timeout:    cfg.Screener.Timeout,
		UserAgent:  cfg.Screener.UserAgent,
		RatePerSec: cfg.Screener.RatePerSec,
		Burst:      cfg.Screener.Burst,
		Logger:     logger,
	})

	soft := DefaultSoftFailure()
	if len(cfg.Screener.NotFoundPhrases) > 0 {
		soft.Phrases = cfg.Screener.NotFoundPhrases
	}
	if len(cfg.Screener.NotFoundURLMarkers) > 0 {
		soft.URLMarkers = cfg.Screener.NotFoundURLMarkers
	}

	screener, err := NewScreener(primary, ScreenerOptions{
		BaseURL:     cfg.Screener.BaseURL,
		SoftFailure: soft,
		MaxEntries:  cfg.Cache.MaxEntries,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	a := &Aggregator{screener: screener}

	if cfg.Fallback.Enabled {
		secondary := NewFetcher(FetcherOptions{
			Timeout:   cfg.Fallback.Timeout,
			UserAgent: cfg.Screener.UserAgent,
			Logger:    logger,
		})
		var extra []QuoteSource
		if cfg.Fallback.YahooChartURL != "" {
			extra = append(extra, NewYFinance(secondary, cfg.Fallback.YahooChartURL, logger))
		}
		a.fallback = NewFallback(
			NewGoogleFinance(secondary, cfg.Fallback.GoogleFinanceURL, logger),
			NewBSE(secondary, cfg.Fallback.BSEAPIURL, cfg.Fallback.BSEQuoteURL, logger),
			cfg.Fallback.QuoteTTL,
			logger,
			extra...,
		)
	}

	if cfg.News.Enabled && cfg.News.FeedURL != "" {
		a.news = NewNews(primary, cfg.News.FeedURL, logger)
	}

	logger.Debug().
		Str("screener", cfg.Screener.BaseURL).
		Bool("fallback", a.fallback != nil).
		Bool("news", a.news != nil).
		Msg("datasource: sources ready")
	return a, nil
}

// Screener returns the primary company-page source.
func (a *Aggregator) Screener() *Screener { return a.screener }

// Fallback returns the quote fallback chain, or nil when disabled.
func (a *Aggregator) Fallback() *Fallback { return a.fallback }

// News returns the RSS announcements source, or nil when disabled.
func (a *Aggregator) News() *News { return a.news }

// Sources returns the names of the enabled sources, for status output.
func (a *Aggregator) Sources() []string {
	names := []string{a.screener.Name()}
	if a.fallback != nil {
		names = append(names, a.fallback.Names()...)
	}
	if a.news != nil {
		names = append(names, a.news.Name())
	}
	return names
}
