package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when the configured model is not a Gemini model.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements LLMProvider on the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// GeminiOption configures the Gemini provider.
type GeminiOption func(*geminiSettings)

type geminiSettings struct {
	model   string
	baseURL string
}

// WithGeminiModel sets the default model. Non-Gemini names are ignored.
func WithGeminiModel(model string) GeminiOption {
	return func(s *geminiSettings) {
		if strings.HasPrefix(model, "gemini") {
			s.model = model
		}
	}
}

// WithGeminiBaseURL points the client at another host.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(s *geminiSettings) { s.baseURL = url }
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	s := geminiSettings{model: DefaultGeminiModel}
	for _, opt := range opts {
		opt(&s)
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &GeminiProvider{client: client, model: s.model}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

// Ping verifies the API key by listing models.
func (p *GeminiProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	return nil
}

// Chat sends the conversation through GenerateContent.
func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model := p.model
	if opts != nil && strings.HasPrefix(opts.Model, "gemini") {
		model = opts.Model
	}

	system, contents := convertToGeminiContents(messages)
	resp, err := p.client.Models.GenerateContent(ctx, model, contents, geminiConfig(system, opts))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	var text strings.Builder
	var finish string
	if resp != nil {
		for _, c := range resp.Candidates {
			if c == nil || c.Content == nil {
				continue
			}
			for _, part := range c.Content.Parts {
				if part != nil && part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				finish = string(c.FinishReason)
				break
			}
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	return &Response{
		Content:      text.String(),
		FinishReason: mapFinishReason(finish),
		Model:        model,
		Provider:     ProviderGemini,
		Latency:      time.Since(start),
	}, nil
}

func geminiConfig(system string, opts *ChatOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts != nil {
		if opts.Temperature > 0 {
			cfg.Temperature = genai.Ptr(float32(opts.Temperature))
		}
		if opts.TopP > 0 {
			cfg.TopP = genai.Ptr(float32(opts.TopP))
		}
		if opts.MaxTokens > 0 {
			cfg.MaxOutputTokens = int32(opts.MaxTokens)
		}
	}
	return cfg
}

func convertToGeminiContents(messages []Message) (string, []*genai.Content) {
	system, turns := splitSystem(messages)
	out := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}
	return system, out
}
