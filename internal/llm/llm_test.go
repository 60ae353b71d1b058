package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/fundash/internal/config"
)

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, Message{Role: RoleSystem, Content: "sys"}, SystemMessage("sys"))
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, UserMessage("hi"))
	assert.Equal(t, Message{Role: RoleAssistant, Content: "yo"}, AssistantMessage("yo"))
}

func TestSplitSystem(t *testing.T) {
	system, turns := splitSystem([]Message{
		SystemMessage("a"),
		UserMessage("q1"),
		SystemMessage("b"),
		AssistantMessage("a1"),
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{UserMessage("q1"), AssistantMessage("a1")}, turns)
}

func TestResponseString(t *testing.T) {
	r := &Response{Provider: "groq", Model: "llama", Content: strings.Repeat("x", 200), Usage: Usage{TotalTokens: 50}, Latency: 100 * time.Millisecond}
	s := r.String()
	assert.Contains(t, s, "groq/llama")
	assert.Contains(t, s, "50 tokens")
	assert.Contains(t, s, "...")
}

// ── Groq ──

func TestNewGroqProvider_NoKey(t *testing.T) {
	_, err := NewGroqProvider("")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestGroqChat(t *testing.T) {
	var (
		mu   sync.Mutex
		got  completionRequest
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1",
			"model": "llama-3.3-70b-versatile",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "TCS looks fairly valued."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	p, err := NewGroqProvider("gsk-test", WithGroqBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(),
		[]Message{SystemMessage("be brief"), UserMessage("How is TCS?")},
		&ChatOptions{Temperature: 0.7, MaxTokens: 1024, TopP: 0.9})
	require.NoError(t, err)

	assert.Equal(t, "TCS looks fairly valued.", resp.Content)
	assert.Equal(t, FinishStop, resp.FinishReason)
	assert.Equal(t, ProviderGroq, resp.Provider)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer gsk-test", auth)
	assert.Equal(t, DefaultGroqModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 1e-9)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 1024, *got.MaxTokens)
	require.NotNil(t, got.TopP)
	assert.InDelta(t, 0.9, *got.TopP, 1e-9)
}

func TestGroqChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key","code":"invalid_api_key"}}`, ErrNoAPIKey},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, ErrRateLimit},
		{"bad model", http.StatusNotFound, `{"error":{"message":"no such model","code":"model_not_found"}}`, ErrInvalidModel},
		{"empty", http.StatusOK, `{"choices":[]}`, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, err := NewGroqProvider("k", WithGroqBaseURL(srv.URL))
			require.NoError(t, err)
			_, err = p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGroqPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	good, _ := NewGroqProvider("good", WithGroqBaseURL(srv.URL))
	assert.NoError(t, good.Ping(context.Background()))

	bad, _ := NewGroqProvider("bad", WithGroqBaseURL(srv.URL))
	assert.ErrorIs(t, bad.Ping(context.Background()), ErrNoAPIKey)
}

// ── Anthropic / Gemini conversion ──

func TestConvertToAnthropicMessages(t *testing.T) {
	system, msgs := convertToAnthropicMessages([]Message{
		SystemMessage("analyst"),
		UserMessage("q"),
		AssistantMessage("a"),
		UserMessage("q2"),
	})
	assert.Equal(t, "analyst", system)
	require.Len(t, msgs, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
}

func TestAnthropicBuildParams(t *testing.T) {
	p, err := NewAnthropicProvider("k", WithAnthropicModel("llama-3.3-70b-versatile"), WithAnthropicMaxTokens(512))
	require.NoError(t, err)

	params := p.buildParams([]Message{SystemMessage("s"), UserMessage("u")}, &ChatOptions{Temperature: 1.5})
	assert.Equal(t, anthropic.Model(DefaultAnthropicModel), params.Model, "non-Claude model ignored")
	assert.Equal(t, int64(512), params.MaxTokens)
	require.Len(t, params.System, 1)
	assert.Equal(t, "s", params.System[0].Text)
	assert.Len(t, params.Messages, 1)
}

func TestNewAnthropicProvider_NoKey(t *testing.T) {
	_, err := NewAnthropicProvider("")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestConvertToGeminiContents(t *testing.T) {
	system, contents := convertToGeminiContents([]Message{
		SystemMessage("analyst"),
		UserMessage("q"),
		AssistantMessage("a"),
	})
	assert.Equal(t, "analyst", system)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "a", contents[1].Parts[0].Text)
}

func TestGeminiConfig(t *testing.T) {
	cfg := geminiConfig("sys", &ChatOptions{Temperature: 0.5, TopP: 0.9, MaxTokens: 100})
	require.NotNil(t, cfg.SystemInstruction)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.5, *cfg.Temperature, 1e-6)
	require.NotNil(t, cfg.TopP)

	assert.Nil(t, geminiConfig("", nil).SystemInstruction)
}

func TestNewGeminiProvider_NoKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

// ── Router ──

type stubProvider struct {
	name    string
	mu      sync.Mutex
	calls   int
	err     error
	reply   string
	pingErr error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Chat(_ context.Context, _ []Message, _ *ChatOptions) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Content: s.reply, Provider: s.name}, nil
}

func (s *stubProvider) Ping(context.Context) error { return s.pingErr }

func (s *stubProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRouter_PrimarySucceeds(t *testing.T) {
	groq := &stubProvider{name: ProviderGroq, reply: "from groq"}
	claude := &stubProvider{name: ProviderAnthropic, reply: "from claude"}

	r := NewRouter(ProviderGroq, WithFallbacks(ProviderAnthropic), WithRetryDelay(time.Millisecond))
	r.RegisterProvider(groq)
	r.RegisterProvider(claude)

	resp, err := r.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "from groq", resp.Content)
	assert.Zero(t, claude.Calls())
}

func TestRouter_FallsBack(t *testing.T) {
	groq := &stubProvider{name: ProviderGroq, err: ErrRateLimit}
	claude := &stubProvider{name: ProviderAnthropic, reply: "from claude"}

	r := NewRouter(ProviderGroq, WithFallbacks(ProviderAnthropic), WithMaxRetries(1), WithRetryDelay(time.Millisecond))
	r.RegisterProvider(groq)
	r.RegisterProvider(claude)

	resp, err := r.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "from claude", resp.Content)
	assert.Equal(t, 2, groq.Calls(), "retryable error retried once")
}

func TestRouter_NonRetryableSkipsRetry(t *testing.T) {
	groq := &stubProvider{name: ProviderGroq, err: ErrNoAPIKey}
	r := NewRouter(ProviderGroq, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	r.RegisterProvider(groq)

	_, err := r.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Equal(t, 1, groq.Calls())
}

func TestRouter_NoProviders(t *testing.T) {
	r := NewRouter(ProviderGroq)
	_, err := r.Chat(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoProviders)

	_, err = r.Primary()
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestRouter_HealthCheck(t *testing.T) {
	down := errors.New("down")
	r := NewRouter(ProviderGroq)
	r.RegisterProvider(&stubProvider{name: ProviderGroq})
	r.RegisterProvider(&stubProvider{name: ProviderGemini, pingErr: down})

	res := r.HealthCheck(context.Background())
	require.Len(t, res, 2)
	assert.NoError(t, res[ProviderGroq])
	assert.ErrorIs(t, res[ProviderGemini], down)
	assert.Equal(t, []string{ProviderGemini, ProviderGroq}, r.ProviderNames())
}

func TestNewRouterFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Primary = ProviderGroq
	cfg.LLM.Timeout = time.Second

	_, err := NewRouterFromConfig(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ErrNoProviders)

	cfg.LLM.GroqKey = "gsk"
	cfg.LLM.AnthropicKey = "sk-ant"
	r, err := NewRouterFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ProviderAnthropic, ProviderGroq}, r.ProviderNames())
	assert.Equal(t, []string{ProviderGroq, ProviderAnthropic}, r.providerChain())
}
