package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, e := range []string{"GROQ_API_KEY", "FUNDASH_LLM_GROQ_KEY", "FUNDASH_LLM_ANTHROPIC_KEY", "FUNDASH_LLM_GEMINI_KEY"} {
		t.Setenv(e, "")
	}
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.screener.in", cfg.Screener.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Screener.Timeout)
	assert.Equal(t, DefaultUserAgent, cfg.Screener.UserAgent)
	assert.Equal(t, []string{"page not found", "does not exist"}, cfg.Screener.NotFoundPhrases)
	assert.Equal(t, []string{"404", "not-found"}, cfg.Screener.NotFoundURLMarkers)

	assert.True(t, cfg.Fallback.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Fallback.QuoteTTL)
	assert.False(t, cfg.News.Enabled)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)

	assert.Equal(t, 5, cfg.Dashboard.MaxAnnouncements)
	assert.Equal(t, 10, cfg.Dashboard.MaxTableColumns)

	assert.Equal(t, "groq", cfg.LLM.Primary)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.9, cfg.LLM.TopP, 1e-9)
	assert.Equal(t, 10, cfg.LLM.HistoryLimit)

	assert.Equal(t, 8050, cfg.API.Port)
	assert.Equal(t, "0.0.0.0:8050", cfg.Addr())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestDefaultOverrides(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	overrides := cfg.OverrideMap()
	assert.Equal(t, []string{"544291"}, overrides["RAJESH.BO"])
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	clearKeyEnv(t)

	cfgPath := filepath.Join(t.TempDir(), "fundash.yaml")
	content := []byte(`
screener:
  base_url: "http://127.0.0.1:9999"
  timeout: 5s
  not_found_phrases: ["no such company"]
resolver:
  overrides:
    - ticker: "ACME.NS"
      identifiers: ["ACME", "500001"]
cache:
  max_entries: 8
llm:
  primary: "anthropic"
  anthropic_key: "sk-ant-from-file-123"
  temperature: 0.2
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))

	cfg, err := LoadFromFile(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999", cfg.Screener.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Screener.Timeout)
	assert.Equal(t, []string{"no such company"}, cfg.Screener.NotFoundPhrases)
	assert.Equal(t, []string{"ACME", "500001"}, cfg.OverrideMap()["ACME.NS"])
	assert.Equal(t, 8, cfg.Cache.MaxEntries)
	assert.Equal(t, "anthropic", cfg.LLM.Primary)
	assert.Equal(t, "sk-ant-from-file-123", cfg.LLM.AnthropicKey)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromFileRejectsInvalidValues(t *testing.T) {
	clearKeyEnv(t)

	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("llm:\n  primary: \"openai\"\ncache:\n  max_entries: 0\n"), 0644))

	_, err := LoadFromFile(cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("FUNDASH_LLM_GROQ_KEY", "gsk-test-groq-key-123456")
	t.Setenv("FUNDASH_LLM_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("FUNDASH_LLM_GEMINI_KEY", "gemini-key-789")

	cfg := &Config{}
	overrideFromEnv(cfg)

	assert.Equal(t, "gsk-test-groq-key-123456", cfg.LLM.GroqKey)
	assert.Equal(t, "sk-ant-test", cfg.LLM.AnthropicKey)
	assert.Equal(t, "gemini-key-789", cfg.LLM.GeminiKey)
}

func TestOverrideFromEnvGroqConvention(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk-plain-env")

	cfg := &Config{}
	overrideFromEnv(cfg)
	assert.Equal(t, "gsk-plain-env", cfg.LLM.GroqKey)

	// The prefixed variable wins.
	t.Setenv("FUNDASH_LLM_GROQ_KEY", "gsk-prefixed")
	overrideFromEnv(cfg)
	assert.Equal(t, "gsk-prefixed", cfg.LLM.GroqKey)
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{LLM: LLMConfig{GroqKey: "from-config"}}
	overrideFromEnv(cfg)

	assert.Equal(t, "from-config", cfg.LLM.GroqKey)
}

// ── maskKey / CheckAPIKeys ──

func TestMaskKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
		{"123456789", "123...789"},
		{"gsk_abcdef1234567890xyz", "gsk...xyz"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, maskKey(tc.input), "maskKey(%q)", tc.input)
	}
}

func TestCheckAPIKeysAllEmpty(t *testing.T) {
	clearKeyEnv(t)

	statuses := CheckAPIKeys(&Config{})
	require.Len(t, statuses, 3)
	for _, s := range statuses {
		assert.False(t, s.IsSet, s.Name)
		assert.Equal(t, KeySourceNone, s.Source, s.Name)
	}
}

func TestCheckAPIKeysSources(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{LLM: LLMConfig{GroqKey: "gsk-config-very-long-value", AnthropicKey: "sk-ant-env-value-long"}}
	t.Setenv("FUNDASH_LLM_ANTHROPIC_KEY", "sk-ant-env-value-long")

	byName := map[string]KeyStatus{}
	for _, s := range CheckAPIKeys(cfg) {
		byName[s.Name] = s
	}

	groq := byName["Groq API Key"]
	assert.True(t, groq.IsSet)
	assert.Equal(t, KeySourceConfig, groq.Source)
	assert.Equal(t, "gsk...lue", groq.Masked)

	assert.Equal(t, KeySourceEnv, byName["Anthropic API Key"].Source)
	assert.Equal(t, KeySourceNone, byName["Gemini API Key"].Source)
}

func TestCheckKeyFallbackEnvName(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk-from-plain-env")

	s := checkKey("Groq", "gsk-from-plain-env", "FUNDASH_LLM_GROQ_KEY", "GROQ_API_KEY")
	assert.Equal(t, KeySourceEnv, s.Source)
}
