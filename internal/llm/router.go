package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/fundash/internal/config"
	"github.com/seenimoa/fundash/internal/logging"
)

// Router sends requests to the primary provider and falls back to the
// other registered providers in order.
type Router struct {
	mu         sync.RWMutex
	providers  map[string]LLMProvider
	primary    string
	fallbacks  []string
	maxRetries int
	retryDelay time.Duration
	logger     arbor.ILogger
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithFallbacks sets the fallback provider chain.
func WithFallbacks(providers ...string) RouterOption {
	return func(r *Router) { r.fallbacks = providers }
}

// WithMaxRetries sets the maximum number of retry attempts per provider.
func WithMaxRetries(n int) RouterOption {
	return func(r *Router) { r.maxRetries = n }
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) RouterOption {
	return func(r *Router) { r.retryDelay = d }
}

// WithLogger sets the router's logger.
func WithLogger(l arbor.ILogger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter creates a new LLM router with the given primary provider.
func NewRouter(primary string, opts ...RouterOption) *Router {
	r := &Router{
		providers:  make(map[string]LLMProvider),
		primary:    primary,
		maxRetries: 1,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDefault(r.logger)
	return r
}

// RegisterProvider adds a provider to the router.
func (r *Router) RegisterProvider(provider LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a registered provider by name.
func (r *Router) GetProvider(name string) (LLMProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Primary returns the primary provider.
func (r *Router) Primary() (LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[r.primary]
	if !ok {
		return nil, fmt.Errorf("%w: primary provider %q not registered", ErrNoProviders, r.primary)
	}
	return p, nil
}

// Chat routes a chat request through the provider chain with fallback.
func (r *Router) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	var lastErr error
	tried := 0
	for _, name := range r.providerChain() {
		provider, ok := r.GetProvider(name)
		if !ok {
			continue
		}
		tried++

		resp, err := r.chatWithRetry(ctx, provider, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		r.logger.Warn().Str("provider", name).Err(err).Msg("llm: provider failed, trying next")

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if tried == 0 {
		return nil, ErrNoProviders
	}
	return nil, fmt.Errorf("llm: all providers failed: %w", lastErr)
}

// HealthCheck pings all registered providers concurrently.
func (r *Router) HealthCheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	providers := make(map[string]LLMProvider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(providers))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for name, provider := range providers {
		g.Go(func() error {
			pingCtx, cancel := context.WithTimeout(gctx, 10*time.Second)
			defer cancel()
			err := provider.Ping(pingCtx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
			// never cancel the siblings
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Name returns the name of the primary provider (satisfies LLMProvider).
func (r *Router) Name() string {
	return "router/" + r.primary
}

// Ping checks the primary provider's health (satisfies LLMProvider).
func (r *Router) Ping(ctx context.Context) error {
	p, err := r.Primary()
	if err != nil {
		return err
	}
	return p.Ping(ctx)
}

// ProviderNames returns the names of all registered providers, sorted.
func (r *Router) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Router) providerChain() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := []string{r.primary}
	for _, fb := range r.fallbacks {
		if fb != r.primary {
			chain = append(chain, fb)
		}
	}
	return chain
}

func (r *Router) chatWithRetry(ctx context.Context, provider LLMProvider, messages []Message, opts *ChatOptions) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.retryDelay * time.Duration(attempt)):
			}
		}
		resp, err := provider.Chat(ctx, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if isNonRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func isNonRetryable(err error) bool {
	return errors.Is(err, ErrNoAPIKey) ||
		errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, ErrContextLength) ||
		errors.Is(err, context.Canceled)
}

// NewRouterFromConfig creates a Router with a provider for every configured
// key. The configured primary comes first; the others follow as fallbacks
// in groq, anthropic, gemini order.
func NewRouterFromConfig(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (*Router, error) {
	logger = logging.OrDefault(logger)
	router := NewRouter(cfg.LLM.Primary,
		WithMaxRetries(1),
		WithRetryDelay(time.Second),
		WithLogger(logger),
	)

	var fallbacks []string
	register := func(p LLMProvider, err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("llm: provider not registered")
			return
		}
		router.RegisterProvider(p)
		if p.Name() != cfg.LLM.Primary {
			fallbacks = append(fallbacks, p.Name())
		}
	}

	if cfg.LLM.GroqKey != "" {
		register(NewGroqProvider(cfg.LLM.GroqKey,
			WithGroqBaseURL(cfg.LLM.GroqURL),
			WithGroqModel(cfg.LLM.Model),
			WithGroqHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}),
		))
	}
	if cfg.LLM.AnthropicKey != "" {
		register(NewAnthropicProvider(cfg.LLM.AnthropicKey,
			WithAnthropicModel(cfg.LLM.Model),
			WithAnthropicMaxTokens(cfg.LLM.MaxTokens),
			WithAnthropicHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}),
		))
	}
	if cfg.LLM.GeminiKey != "" {
		register(NewGeminiProvider(ctx, cfg.LLM.GeminiKey,
			WithGeminiModel(cfg.LLM.Model),
		))
	}

	if len(router.ProviderNames()) == 0 {
		return nil, ErrNoProviders
	}
	router.fallbacks = fallbacks
	return router, nil
}
