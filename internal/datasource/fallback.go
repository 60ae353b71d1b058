package datasource

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/pkg/models"
	"github.com/seenimoa/fundash/pkg/utils"
)

// QuoteSource is a best-effort secondary quote provider.
type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, id string) (models.QuoteSnapshot, error)
}

// Fallback combines Google Finance (symbol identifiers) and BSE (numeric
// scrip codes) into one best-effort quote lookup. Extra sources are asked
// last with the full ticker.
type Fallback struct {
	google QuoteSource
	bse    QuoteSource
	extra  []QuoteSource
	cache  *cache.Cache
	logger arbor.ILogger
}

// NewFallback creates the fallback quote lookup. Either source may be nil.
// Results are cached for ttl.
func NewFallback(google, bse QuoteSource, ttl time.Duration, logger arbor.ILogger, extra ...QuoteSource) *Fallback {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Fallback{
		google: google,
		bse:    bse,
		extra:  extra,
		cache:  cache.New(ttl, 2*ttl),
		logger: logging.OrDefault(logger),
	}
}

// Names lists the configured sources in the order they are asked.
func (f *Fallback) Names() []string {
	var out []string
	for _, src := range append([]QuoteSource{f.google, f.bse}, f.extra...) {
		if src != nil {
			out = append(out, src.Name())
		}
	}
	return out
}

// Quote merges what the secondary sources know about ticker. Google is
// asked first with the symbol-shaped identifiers, then BSE with the numeric
// ones, then the extra sources with the ticker itself; earlier answers are
// never overwritten. Errors are logged and
// swallowed: the result is nil when nothing was found.
func (f *Fallback) Quote(ctx context.Context, ticker string, ids []string) models.QuoteSnapshot {
	if f == nil {
		return nil
	}
	if v, ok := f.cache.Get(ticker); ok {
		return copySnapshot(v.(models.QuoteSnapshot))
	}

	symbols, codes := splitIdentifiers(ticker, ids)
	merged := models.QuoteSnapshot{}

	if f.google != nil {
		for _, sym := range symbols {
			if q := f.ask(ctx, f.google, ticker, sym); len(q) > 0 {
				merged.Merge(q)
				break
			}
		}
	}
	if f.bse != nil {
		for _, code := range codes {
			if q := f.ask(ctx, f.bse, ticker, code); len(q) > 0 {
				merged.Merge(q)
				break
			}
		}
	}
	for _, src := range f.extra {
		if merged.Has(models.MetricCurrentPrice, models.MetricHigh52, models.MetricLow52) {
			break
		}
		merged.Merge(f.ask(ctx, src, ticker, ticker))
	}

	if len(merged) == 0 {
		merged = nil
	}
	if ctx.Err() == nil {
		f.cache.SetDefault(ticker, merged)
	}
	f.logger.Debug().Str("ticker", ticker).Int("fields", len(merged)).Msg("fallback quote")
	return copySnapshot(merged)
}

func (f *Fallback) ask(ctx context.Context, src QuoteSource, ticker, id string) (q models.QuoteSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn().Str("ticker", ticker).Str("source", src.Name()).Msgf("fallback source panicked: %v", r)
			q = nil
		}
	}()
	q, err := src.Quote(ctx, id)
	if err != nil {
		f.logger.Debug().Str("ticker", ticker).Str("source", src.Name()).Str("identifier", id).Err(err).Msg("fallback source failed")
		return nil
	}
	return q
}

// splitIdentifiers partitions identifiers into exchange symbols and numeric
// BSE codes. The ticker's own heuristic forms are appended when missing.
func splitIdentifiers(ticker string, ids []string) (symbols, codes []string) {
	seen := map[string]bool{}
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		if utils.IsBSECode(id) {
			codes = append(codes, id)
		} else {
			symbols = append(symbols, id)
		}
	}
	for _, id := range ids {
		add(id)
	}
	base, _ := utils.SplitSuffix(ticker)
	add(base)
	return symbols, codes
}

func copySnapshot(q models.QuoteSnapshot) models.QuoteSnapshot {
	if q == nil {
		return nil
	}
	out := make(models.QuoteSnapshot, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}
