// Package app wires the dashboard's components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/fundash/internal/agent"
	"github.com/seenimoa/fundash/internal/analysis/fundamental"
	"github.com/seenimoa/fundash/internal/config"
	"github.com/seenimoa/fundash/internal/dashboard"
	"github.com/seenimoa/fundash/internal/datasource"
	"github.com/seenimoa/fundash/internal/llm"
	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/internal/masterlist"
	"github.com/seenimoa/fundash/internal/resolver"
)

// App holds all application components.
type App struct {
	Config    *config.Config
	Logger    arbor.ILogger
	List      *masterlist.List
	Resolver  *resolver.Resolver
	Sources   *datasource.Aggregator
	Extractor *fundamental.Extractor
	Dashboard *dashboard.Service
	LLM       *llm.Router // nil when no chat provider is configured
	Sessions  *agent.Sessions
}

// New builds every component from cfg. A missing master list or missing
// chat keys are logged and tolerated; the dashboard still works.
func New(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (*App, error) {
	logger = logging.OrDefault(logger)
	a := &App{Config: cfg, Logger: logger}

	a.List = loadList(cfg.MasterList.Path, logger)
	a.Resolver = resolver.New(resolver.NewRegistry(cfg.OverrideMap(), a.List.Identifiers()))

	sources, err := datasource.NewAggregator(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("data sources: %w", err)
	}
	a.Sources = sources

	opts := fundamental.ExtractorOptions{
		Links:      sources.Screener(),
		MaxEntries: cfg.Cache.MaxEntries,
		Logger:     logger,
	}
	if fb := sources.Fallback(); fb != nil {
		opts.Fallback = fb
	}
	a.Extractor, err = fundamental.NewExtractor(opts)
	if err != nil {
		return nil, fmt.Errorf("metrics extractor: %w", err)
	}

	deps := dashboard.Deps{
		Resolver: a.Resolver,
		Fetcher:  sources.Screener(),
		Metrics:  a.Extractor,
		Names:    a.List,
	}
	if news := sources.News(); news != nil {
		deps.News = news
	}
	a.Dashboard, err = dashboard.New(deps, dashboard.Options{
		MaxAnnouncements: cfg.Dashboard.MaxAnnouncements,
		MaxTableColumns:  cfg.Dashboard.MaxTableColumns,
		MaxTickers:       cfg.Dashboard.MaxTickers,
		BaseURL:          cfg.Screener.BaseURL,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	router, err := llm.NewRouterFromConfig(ctx, cfg, logger)
	switch {
	case errors.Is(err, llm.ErrNoProviders):
		logger.Warn().Msg("app: no chat provider key configured, chat is disabled")
	case err != nil:
		return nil, fmt.Errorf("llm: %w", err)
	default:
		a.LLM = router
	}
	a.Sessions = agent.NewSessions(0, a.NewChatbot)

	logger.Info().
		Int("stocks", a.List.Len()).
		Strs("sources", sources.Sources()).
		Bool("chat", a.LLM != nil).
		Msg("app: initialised")
	return a, nil
}

// NewChatbot returns a chatbot on the configured provider chain.
func (a *App) NewChatbot() *agent.Chatbot {
	var provider llm.LLMProvider
	if a.LLM != nil {
		provider = a.LLM
	}
	return agent.NewChatbot(provider, agent.ChatbotOptions{
		Model:        a.Config.LLM.Model,
		Temperature:  a.Config.LLM.Temperature,
		MaxTokens:    a.Config.LLM.MaxTokens,
		TopP:         a.Config.LLM.TopP,
		HistoryLimit: a.Config.LLM.HistoryLimit,
		Timeout:      a.Config.LLM.Timeout,
		Logger:       a.Logger,
	})
}

// DefaultTickers is the initial selection: the first two master-list rows.
func (a *App) DefaultTickers() []string {
	return a.List.Defaults(2)
}

func loadList(path string, logger arbor.ILogger) *masterlist.List {
	if path == "" {
		return masterlist.New(nil, nil)
	}
	if _, err := os.Stat(path); err != nil {
		logger.Warn().Str("path", path).Msg("app: master list not found, selector will be empty")
		return masterlist.New(nil, nil)
	}
	list, err := masterlist.Load(path, logger)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("app: master list unreadable")
		return masterlist.New(nil, nil)
	}
	return list
}
