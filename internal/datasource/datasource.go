// Package datasource fetches company pages and quotes from the external
// sites fundash scrapes: Screener.in as the primary source, Google Finance
// and BSE as best-effort fallbacks, and an RSS news feed.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/seenimoa/fundash/internal/logging"
)

// --- Sentinel errors ---

// ErrTickerNotFound is returned when every candidate URL for a ticker failed.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrNoIdentifier is returned when a ticker resolved to no identifiers.
// No network request is made in that case.
var ErrNoIdentifier = errors.New("no identifier for ticker")

// ErrSoftNotFound marks a 200 response whose content says the page is missing.
var ErrSoftNotFound = errors.New("page reports not found")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.URL)
}

// IsStatus reports whether err carries an HTTP error with the given status.
func IsStatus(err error, code int) bool {
	var he *ErrHTTP
	return errors.As(err, &he) && he.StatusCode == code
}

// --- Shared HTTP fetcher ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       string
	FinalURL   string // after redirects
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Timeout    time.Duration
	UserAgent  string
	RatePerSec float64
	Burst      int
	Client     *http.Client
	Logger     arbor.ILogger
}

// Fetcher performs rate-limited GET requests with browser-like headers.
type Fetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewFetcher creates a Fetcher. Zero options fall back to a 15s timeout,
// DefaultUserAgent and no rate limit.
func NewFetcher(opts FetcherOptions) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		client:    client,
		userAgent: ua,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logging.OrDefault(opts.Logger),
	}
}

// Get performs a single GET. Status codes >= 400 return the response
// together with an *ErrHTTP. Network errors and timeouts return a nil
// response. There are no retries.
func (f *Fetcher) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Set default headers.
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")

	// Override/add custom headers.
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", url, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		FinalURL:   resp.Request.URL.String(),
	}
	f.logger.Debug().Str("url", url).Int("status", resp.StatusCode).Str("elapsed", time.Since(start).String()).Msg("GET")

	if resp.StatusCode >= 400 {
		return out, &ErrHTTP{StatusCode: resp.StatusCode, Status: resp.Status, URL: url}
	}
	return out, nil
}
