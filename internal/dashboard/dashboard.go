// Package dashboard runs a refresh: for each selected ticker it resolves
// identifiers, fetches the company page, extracts metrics, statement tables
// and announcements, and assembles the comparison result.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/seenimoa/fundash/internal/analysis/fundamental"
	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/pkg/models"
	"github.com/seenimoa/fundash/pkg/utils"
)

// User-facing messages.
const (
	NoSelectionMessage = "Please select at least one stock."
	EmptyTableMessage  = "No data available."
	UnavailableNote    = "Note: Some stocks may not be available on Screener.in (e.g., new listings, special series like RE). Try selecting other stocks."
)

// ShareBaseURL prefixes the pre-filled WhatsApp share text.
const ShareBaseURL = "https://wa.me/?text="

// Resolver maps a ticker to identifier candidates.
type Resolver interface {
	Resolve(ticker string) []string
}

// PageFetcher fetches a company page by trying identifiers in order.
type PageFetcher interface {
	Fetch(ctx context.Context, ticker string, ids []string) (*models.Page, error)
}

// MetricsExtractor turns a page, or the fallback sources alone, into metrics.
type MetricsExtractor interface {
	Extract(ctx context.Context, html, ticker string, ids []string) models.MetricsRecord
	QuoteOnly(ctx context.Context, ticker string, ids []string) (models.MetricsRecord, bool)
}

// NewsSource supplies announcements when the page has none.
type NewsSource interface {
	Announcements(ctx context.Context, company string, limit int) []models.Announcement
}

// Namer returns display names for tickers.
type Namer interface {
	Name(ticker string) string
}

// Deps are the collaborators of a Service. News and Names are optional.
type Deps struct {
	Resolver Resolver
	Fetcher  PageFetcher
	Metrics  MetricsExtractor
	News     NewsSource
	Names    Namer
}

// Options holds presentation limits.
type Options struct {
	MaxAnnouncements int    // default 5
	MaxTableColumns  int    // default 10, label column included
	MaxTickers       int    // <= 0 means unlimited
	BaseURL          string // resolves relative announcement links
	Logger           arbor.ILogger
}

// Service runs dashboard refreshes. It is safe for concurrent use; each
// refresh itself is strictly sequential.
type Service struct {
	deps   Deps
	opts   Options
	logger arbor.ILogger

	mu        sync.RWMutex
	observers []Observer
}

// New creates a Service.
func New(deps Deps, opts Options) (*Service, error) {
	if deps.Resolver == nil || deps.Fetcher == nil || deps.Metrics == nil {
		return nil, errors.New("dashboard: resolver, fetcher and metrics are required")
	}
	if opts.MaxAnnouncements <= 0 {
		opts.MaxAnnouncements = 5
	}
	if opts.MaxTableColumns <= 0 {
		opts.MaxTableColumns = 10
	}
	return &Service{deps: deps, opts: opts, logger: logging.OrDefault(opts.Logger)}, nil
}

// StockMetrics is one row of the comparison.
type StockMetrics struct {
	Ticker     string               `json:"ticker"`
	Name       string               `json:"name"`
	Identifier string               `json:"identifier,omitempty"`
	Variant    string               `json:"variant,omitempty"`
	Metrics    models.MetricsRecord `json:"metrics"`
	Partial    bool                 `json:"partial,omitempty"` // quote-only row, the company page was unavailable
}

// StatementSection is one statement table of a stock. Table is nil when
// the page had no matching table; Empty then carries the placeholder text.
type StatementSection struct {
	Kind  models.StatementKind   `json:"kind"`
	Title string                 `json:"title"`
	Table *models.StatementTable `json:"table"`
	Empty string                 `json:"empty,omitempty"`
}

// SharedAnnouncement is an announcement plus its share link.
type SharedAnnouncement struct {
	models.Announcement
	ShareURL string `json:"share_url"`
}

// Section holds the per-stock detail blocks.
type Section struct {
	Ticker        string               `json:"ticker"`
	Name          string               `json:"name"`
	Statements    []StatementSection   `json:"statements"`
	Announcements []SharedAnnouncement `json:"announcements"`
}

// Statement returns the section of kind, or nil.
func (s *Section) Statement(kind models.StatementKind) *StatementSection {
	for i := range s.Statements {
		if s.Statements[i].Kind == kind {
			return &s.Statements[i]
		}
	}
	return nil
}

// Result is the outcome of one refresh.
type Result struct {
	ID          string         `json:"id"`
	Tickers     []string       `json:"tickers"`
	Rows        []StockMetrics `json:"rows"`
	Sections    []Section      `json:"sections"`
	Unavailable []string       `json:"unavailable"`
	Note        string         `json:"note,omitempty"`
	Message     string         `json:"message,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Matrix is a rendered table: a header row plus data rows.
type Matrix struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Comparison lays the rows out metric by metric: one row per MetricName in
// display order, one column per stock.
func (r *Result) Comparison() Matrix {
	m := Matrix{Header: make([]string, 0, len(r.Rows)+1)}
	m.Header = append(m.Header, "Metric")
	for _, row := range r.Rows {
		m.Header = append(m.Header, row.Name)
	}
	for _, name := range models.MetricOrder {
		line := make([]string, 0, len(r.Rows)+1)
		line = append(line, string(name))
		for _, row := range r.Rows {
			line = append(line, row.Metrics.Get(name))
		}
		m.Rows = append(m.Rows, line)
	}
	return m
}

// ShareLink builds the WhatsApp link for an announcement: the company name,
// title, detail and URL on separate lines, query-escaped.
func ShareLink(name string, a models.Announcement) string {
	text := strings.Join([]string{name, a.Title, a.Detail, a.URL}, "\n")
	return ShareBaseURL + url.QueryEscape(text)
}

// Refresh builds the dashboard for tickers. Tickers are processed one at a
// time in order; a failure affects only its own ticker, which is then
// listed in Unavailable. Refresh never fails.
func (s *Service) Refresh(ctx context.Context, tickers []string) *Result {
	start := time.Now()
	res := &Result{
		ID:          uuid.NewString(),
		Tickers:     s.selection(tickers),
		Rows:        []StockMetrics{},
		Sections:    []Section{},
		Unavailable: []string{},
		GeneratedAt: utils.NowIST(),
	}
	if len(res.Tickers) == 0 {
		res.Message = NoSelectionMessage
		return res
	}

	total := len(res.Tickers)
	s.emit(Event{RefreshID: res.ID, Stage: StageStarted, Total: total})

	for i, ticker := range res.Tickers {
		if err := ctx.Err(); err != nil {
			s.logger.Warn().Str("ticker", ticker).Err(err).Msg("dashboard: refresh cancelled")
			res.Unavailable = append(res.Unavailable, res.Tickers[i:]...)
			break
		}
		s.refreshOne(ctx, res, ticker, i, total)
	}

	if len(res.Unavailable) > 0 {
		res.Note = UnavailableNote
	}
	s.emit(Event{RefreshID: res.ID, Stage: StageCompleted, Total: total, Message: fmt.Sprintf("%d of %d available", len(res.Sections), total)})
	s.logger.Info().
		Str("refresh", res.ID).
		Int("tickers", total).
		Int("unavailable", len(res.Unavailable)).
		Str("elapsed", time.Since(start).String()).
		Msg("dashboard: refresh complete")
	return res
}

// selection trims, de-duplicates and caps the requested tickers.
func (s *Service) selection(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if s.opts.MaxTickers > 0 && len(out) > s.opts.MaxTickers {
		s.logger.Warn().Int("requested", len(out)).Int("max", s.opts.MaxTickers).Msg("dashboard: selection truncated")
		out = out[:s.opts.MaxTickers]
	}
	return out
}

func (s *Service) refreshOne(ctx context.Context, res *Result, ticker string, index, total int) {
	ev := Event{RefreshID: res.ID, Ticker: ticker, Index: index, Total: total}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("ticker", ticker).Str("panic", fmt.Sprint(r)).Msg("dashboard: ticker step panicked")
			res.Unavailable = append(res.Unavailable, ticker)
			ev.Stage, ev.Message = StageUnavailable, "internal error"
			s.emit(ev)
		}
	}()

	name := s.name(ticker)
	ids := s.deps.Resolver.Resolve(ticker)
	if len(ids) == 0 {
		s.logger.Warn().Str("ticker", ticker).Msg("dashboard: no identifiers")
		res.Unavailable = append(res.Unavailable, ticker)
		ev.Stage, ev.Message = StageUnavailable, "no identifiers"
		s.emit(ev)
		return
	}
	ev.Stage = StageResolved
	s.emit(ev)

	page, err := s.deps.Fetcher.Fetch(ctx, ticker, ids)
	if err != nil {
		res.Unavailable = append(res.Unavailable, ticker)
		ev.Stage, ev.Message = StageUnavailable, err.Error()
		if rec, ok := s.deps.Metrics.QuoteOnly(ctx, ticker, ids); ok {
			res.Rows = append(res.Rows, StockMetrics{Ticker: ticker, Name: name, Metrics: rec, Partial: true})
			ev.Message += " (quote data only)"
		}
		s.emit(ev)
		return
	}
	ev.Stage = StageFetched
	s.emit(ev)

	rec := s.deps.Metrics.Extract(ctx, page.HTML, ticker, successFirst(page.Identifier, ids))
	res.Rows = append(res.Rows, StockMetrics{
		Ticker:     ticker,
		Name:       name,
		Identifier: page.Identifier,
		Variant:    page.Variant,
		Metrics:    rec,
	})
	res.Sections = append(res.Sections, Section{
		Ticker:        ticker,
		Name:          name,
		Statements:    s.statements(ticker, page.HTML),
		Announcements: s.announcements(ctx, ticker, name, page.HTML),
	})

	ev.Stage = StageDone
	s.emit(ev)
}

func (s *Service) statements(ticker, html string) []StatementSection {
	tables, err := fundamental.ParseTables(html)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("dashboard: tables unparseable")
	}
	found := fundamental.Statements(tables)

	out := make([]StatementSection, 0, len(models.StatementKinds))
	for _, kind := range models.StatementKinds {
		sec := StatementSection{Kind: kind, Title: kind.Title()}
		if st := found[kind]; st != nil {
			sec.Table = fundamental.TruncateStatement(st, s.opts.MaxTableColumns)
		} else {
			sec.Empty = EmptyTableMessage
			s.logger.Debug().Str("ticker", ticker).Str("table", string(kind)).Msg("dashboard: table not found")
		}
		out = append(out, sec)
	}
	return out
}

func (s *Service) announcements(ctx context.Context, ticker, name, html string) []SharedAnnouncement {
	items := fundamental.ExtractAnnouncements(html, s.opts.MaxAnnouncements, s.opts.BaseURL)
	if len(items) == 0 && s.deps.News != nil {
		items = s.deps.News.Announcements(ctx, name, s.opts.MaxAnnouncements)
		if len(items) > 0 {
			s.logger.Debug().Str("ticker", ticker).Int("items", len(items)).Msg("dashboard: announcements from news feed")
		}
	}
	if len(items) > s.opts.MaxAnnouncements {
		items = items[:s.opts.MaxAnnouncements]
	}
	out := make([]SharedAnnouncement, 0, len(items))
	for _, a := range items {
		out = append(out, SharedAnnouncement{Announcement: a, ShareURL: ShareLink(name, a)})
	}
	return out
}

func (s *Service) name(ticker string) string {
	if s.deps.Names == nil {
		return ticker
	}
	if n := s.deps.Names.Name(ticker); n != "" {
		return n
	}
	return ticker
}

// successFirst moves the identifier that produced the page to the front.
func successFirst(winner string, ids []string) []string {
	out := make([]string, 0, len(ids))
	if winner != "" {
		out = append(out, winner)
	}
	for _, id := range ids {
		if id != winner {
			out = append(out, id)
		}
	}
	return out
}
