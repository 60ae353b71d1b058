// Package config handles configuration loading for fundash.
// It supports YAML config files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Screener   ScreenerConfig   `mapstructure:"screener"   yaml:"screener"`
	Fallback   FallbackConfig   `mapstructure:"fallback"   yaml:"fallback"`
	News       NewsConfig       `mapstructure:"news"       yaml:"news"`
	Cache      CacheConfig      `mapstructure:"cache"      yaml:"cache"`
	Resolver   ResolverConfig   `mapstructure:"resolver"   yaml:"resolver"`
	MasterList MasterListConfig `mapstructure:"masterlist" yaml:"masterlist"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"  yaml:"dashboard"`
	LLM        LLMConfig        `mapstructure:"llm"        yaml:"llm"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// ScreenerConfig holds settings for the primary fundamentals site.
type ScreenerConfig struct {
	BaseURL            string        `mapstructure:"base_url"              yaml:"base_url"              validate:"required,url"`
	Timeout            time.Duration `mapstructure:"timeout"               yaml:"timeout"               validate:"gt=0"`
	UserAgent          string        `mapstructure:"user_agent"            yaml:"user_agent"            validate:"required"`
	RatePerSec         float64       `mapstructure:"rate_per_sec"          yaml:"rate_per_sec"          validate:"gt=0"`
	Burst              int           `mapstructure:"burst"                 yaml:"burst"                 validate:"gte=1"`
	NotFoundPhrases    []string      `mapstructure:"not_found_phrases"     yaml:"not_found_phrases"`
	NotFoundURLMarkers []string      `mapstructure:"not_found_url_markers" yaml:"not_found_url_markers"`
}

// FallbackConfig holds the secondary quote sources.
type FallbackConfig struct {
	Enabled          bool          `mapstructure:"enabled"            yaml:"enabled"`
	GoogleFinanceURL string        `mapstructure:"google_finance_url" yaml:"google_finance_url" validate:"omitempty,url"`
	BSEAPIURL        string        `mapstructure:"bse_api_url"        yaml:"bse_api_url"        validate:"omitempty,url"`
	BSEQuoteURL      string        `mapstructure:"bse_quote_url"      yaml:"bse_quote_url"`     // %s is replaced with the scrip code
	YahooChartURL    string        `mapstructure:"yahoo_chart_url"    yaml:"yahoo_chart_url"    validate:"omitempty,url"` // empty disables Yahoo
	QuoteTTL         time.Duration `mapstructure:"quote_ttl"          yaml:"quote_ttl"          validate:"gt=0"`
	Timeout          time.Duration `mapstructure:"timeout"            yaml:"timeout"            validate:"gt=0"`
}

// NewsConfig holds the RSS announcements fallback.
type NewsConfig struct {
	Enabled bool   `mapstructure:"enabled"  yaml:"enabled"`
	FeedURL string `mapstructure:"feed_url" yaml:"feed_url"` // %s is replaced with the escaped query
}

// CacheConfig bounds the in-process page and metrics caches.
type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries" yaml:"max_entries" validate:"gte=1"`
}

// Override pins a ticker to an explicit identifier list.
type Override struct {
	Ticker      string   `mapstructure:"ticker"      yaml:"ticker"      validate:"required"`
	Identifiers []string `mapstructure:"identifiers" yaml:"identifiers" validate:"required,min=1"`
}

// ResolverConfig holds manual identifier overrides.
type ResolverConfig struct {
	Overrides []Override `mapstructure:"overrides" yaml:"overrides" validate:"dive"`
}

// MasterListConfig points at the ticker/name CSV.
type MasterListConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DashboardConfig holds presentation limits.
type DashboardConfig struct {
	MaxAnnouncements int `mapstructure:"max_announcements" yaml:"max_announcements" validate:"gte=1"`
	MaxTableColumns  int `mapstructure:"max_table_columns" yaml:"max_table_columns" validate:"gte=2"`
	MaxTickers       int `mapstructure:"max_tickers"       yaml:"max_tickers"       validate:"gte=1"`
}

// LLMConfig holds chat provider configuration.
type LLMConfig struct {
	Primary      string        `mapstructure:"primary"       yaml:"primary"       validate:"oneof=groq anthropic gemini"`
	GroqKey      string        `mapstructure:"groq_key"      yaml:"groq_key"`
	GroqURL      string        `mapstructure:"groq_url"      yaml:"groq_url"      validate:"omitempty,url"`
	AnthropicKey string        `mapstructure:"anthropic_key" yaml:"anthropic_key"`
	GeminiKey    string        `mapstructure:"gemini_key"    yaml:"gemini_key"`
	Model        string        `mapstructure:"model"         yaml:"model"`
	Temperature  float64       `mapstructure:"temperature"   yaml:"temperature"   validate:"gte=0,lte=2"`
	MaxTokens    int           `mapstructure:"max_tokens"    yaml:"max_tokens"    validate:"gte=1"`
	TopP         float64       `mapstructure:"top_p"         yaml:"top_p"         validate:"gte=0,lte=1"`
	HistoryLimit int           `mapstructure:"history_limit" yaml:"history_limit" validate:"gte=0"`
	Timeout      time.Duration `mapstructure:"timeout"       yaml:"timeout"       validate:"gt=0"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         validate:"gte=1,lte=65535"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string   `mapstructure:"level"  yaml:"level"  validate:"oneof=trace debug info warn error"`
	Format string   `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	Output []string `mapstructure:"output" yaml:"output"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.fundash/config.yaml (home directory)
//  3. /etc/fundash/config.yaml (system)
//
// A .env file in the working directory is loaded first when present.
// Environment variables override config file values.
// Format: FUNDASH_<SECTION>_<KEY>, e.g., FUNDASH_LLM_GROQ_KEY
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".fundash"))
	v.AddConfigPath("/etc/fundash")
	bindEnv(v)

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

// Validate checks the value constraints declared on the config structs.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// OverrideMap returns the resolver overrides keyed by ticker.
func (c *Config) OverrideMap() map[string][]string {
	out := make(map[string][]string, len(c.Resolver.Overrides))
	for _, o := range c.Resolver.Overrides {
		out[o.Ticker] = append([]string(nil), o.Identifiers...)
	}
	return out
}

// Addr returns the host:port the API server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("FUNDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadDotEnv populates the environment from ./.env. Existing variables win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	_ = godotenv.Load()
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Screener defaults
	v.SetDefault("screener.base_url", "https://www.screener.in")
	v.SetDefault("screener.timeout", 15*time.Second)
	v.SetDefault("screener.user_agent", DefaultUserAgent)
	v.SetDefault("screener.rate_per_sec", 2.0)
	v.SetDefault("screener.burst", 2)
	v.SetDefault("screener.not_found_phrases", []string{"page not found", "does not exist"})
	v.SetDefault("screener.not_found_url_markers", []string{"404", "not-found"})

	// Fallback sources
	v.SetDefault("fallback.enabled", true)
	v.SetDefault("fallback.google_finance_url", "https://www.google.com/finance")
	v.SetDefault("fallback.bse_api_url", "https://api.bseindia.com/BseIndiaAPI/api/getScripHeaderData/w")
	v.SetDefault("fallback.bse_quote_url", "https://www.bseindia.com/stock-share-price/x/x/%s/")
	v.SetDefault("fallback.yahoo_chart_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("fallback.quote_ttl", 10*time.Minute)
	v.SetDefault("fallback.timeout", 10*time.Second)

	// News feed
	v.SetDefault("news.enabled", false)
	v.SetDefault("news.feed_url", "https://news.google.com/rss/search?q=%s&hl=en-IN&gl=IN&ceid=IN:en")

	v.SetDefault("cache.max_entries", 256)

	v.SetDefault("resolver.overrides", []map[string]any{
		{"ticker": "RAJESH.BO", "identifiers": []string{"544291"}},
	})

	v.SetDefault("masterlist.path", "stocks.csv")

	// Dashboard defaults
	v.SetDefault("dashboard.max_announcements", 5)
	v.SetDefault("dashboard.max_table_columns", 10)
	v.SetDefault("dashboard.max_tickers", 10)

	// LLM defaults
	v.SetDefault("llm.primary", "groq")
	v.SetDefault("llm.groq_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.top_p", 0.9)
	v.SetDefault("llm.history_limit", 10)
	v.SetDefault("llm.timeout", 60*time.Second)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8050)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", []string{"console"})
}

// DefaultUserAgent is a desktop browser string; the fundamentals site
// rejects obvious bot agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// GROQ_API_KEY is honoured for compatibility with the Groq SDK convention.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" && cfg.LLM.GroqKey == "" {
		cfg.LLM.GroqKey = key
	}
	if key := os.Getenv("FUNDASH_LLM_GROQ_KEY"); key != "" {
		cfg.LLM.GroqKey = key
	}
	if key := os.Getenv("FUNDASH_LLM_ANTHROPIC_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv("FUNDASH_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
