package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when the configured model is not a Claude model.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicProvider implements LLMProvider on the Anthropic Messages API.
type AnthropicProvider struct {
	messages  anthropic.MessageService
	models    anthropic.ModelService
	model     string
	maxTokens int
}

// AnthropicOption configures the Anthropic provider.
type AnthropicOption func(*anthropicSettings)

type anthropicSettings struct {
	model     string
	maxTokens int
	baseURL   string
	client    *http.Client
}

// WithAnthropicModel sets the default model. Non-Claude names are ignored.
func WithAnthropicModel(model string) AnthropicOption {
	return func(s *anthropicSettings) {
		if strings.HasPrefix(model, "claude") {
			s.model = model
		}
	}
}

// WithAnthropicMaxTokens sets the default completion budget.
func WithAnthropicMaxTokens(n int) AnthropicOption {
	return func(s *anthropicSettings) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithAnthropicBaseURL points the client at another host.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(s *anthropicSettings) { s.baseURL = url }
}

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(s *anthropicSettings) { s.client = client }
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	s := anthropicSettings{
		model:     DefaultAnthropicModel,
		maxTokens: 1024,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(&s)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(s.client),
	}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	client := anthropic.NewClient(reqOpts...)

	return &AnthropicProvider{
		messages:  client.Messages,
		models:    client.Models,
		model:     s.model,
		maxTokens: s.maxTokens,
	}, nil
}

func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Ping verifies the API key by listing models.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	if _, err := p.models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	return nil
}

// Chat sends the conversation through the Messages API.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	params := p.buildParams(messages, opts)

	resp, err := p.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}

	in, out := int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens)
	return &Response{
		Content:      text.String(),
		FinishReason: mapFinishReason(string(resp.StopReason)),
		Model:        string(resp.Model),
		Provider:     ProviderAnthropic,
		Latency:      time.Since(start),
		Usage:        Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}, nil
}

func (p *AnthropicProvider) buildParams(messages []Message, opts *ChatOptions) anthropic.MessageNewParams {
	system, turns := convertToAnthropicMessages(messages)

	model, maxTokens := p.model, p.maxTokens
	if opts != nil {
		if strings.HasPrefix(opts.Model, "claude") {
			model = opts.Model
		}
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  turns,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if opts != nil {
		if opts.Temperature > 0 {
			// the Messages API caps temperature at 1
			params.Temperature = anthropic.Float(min(opts.Temperature, 1))
		}
		if opts.TopP > 0 {
			params.TopP = anthropic.Float(opts.TopP)
		}
	}
	return params
}

func convertToAnthropicMessages(messages []Message) (string, []anthropic.MessageParam) {
	system, turns := splitSystem(messages)
	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	return system, out
}
