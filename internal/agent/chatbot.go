// Package agent implements the stock-analysis chat assistant: a system
// prompt carrying the selected stocks' metrics, a bounded conversation
// history, and uuid-keyed sessions for the HTTP API.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/fundash/internal/dashboard"
	"github.com/seenimoa/fundash/internal/llm"
	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/pkg/models"
)

// ChatbotOptions configures a Chatbot. Zero values take the defaults of
// the hosted Groq deployment.
type ChatbotOptions struct {
	Model        string
	Temperature  float64 // default 0.7
	MaxTokens    int     // default 1024
	TopP         float64 // default 0.9
	HistoryLimit int     // messages sent per request; default 10
	Timeout      time.Duration
	Logger       arbor.ILogger
}

// Chatbot answers questions about the selected stocks.
type Chatbot struct {
	provider     llm.LLMProvider
	opts         llm.ChatOptions
	historyLimit int
	timeout      time.Duration
	logger       arbor.ILogger

	mu      sync.Mutex
	history []models.ChatMessage
}

// NewChatbot creates a chatbot backed by provider.
func NewChatbot(provider llm.LLMProvider, o ChatbotOptions) *Chatbot {
	if o.Temperature <= 0 {
		o.Temperature = 0.7
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	if o.TopP <= 0 {
		o.TopP = 0.9
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 10
	}
	return &Chatbot{
		provider: provider,
		opts: llm.ChatOptions{
			Model:       o.Model,
			Temperature: o.Temperature,
			MaxTokens:   o.MaxTokens,
			TopP:        o.TopP,
		},
		historyLimit: o.HistoryLimit,
		timeout:      o.Timeout,
		logger:       logging.OrDefault(o.Logger),
	}
}

// GenerateResponse answers userMessage. The user turn is recorded before the
// call; the assistant turn only on success. Failures are returned as an
// apology text rather than an error.
func (c *Chatbot) GenerateResponse(ctx context.Context, userMessage string, stocks []StockContext) string {
	c.mu.Lock()
	c.history = append(c.history, models.ChatMessage{Role: models.ChatRoleUser, Content: userMessage, At: time.Now()})
	messages := c.requestMessages(stocks)
	c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	answer, err := c.complete(ctx, messages)
	if err != nil {
		c.logger.Error().Err(err).Msg("chat: generating response failed")
		return fmt.Sprintf("Sorry, I encountered an error: %v. Please try again.", err)
	}

	c.mu.Lock()
	c.history = append(c.history, models.ChatMessage{Role: models.ChatRoleAssistant, Content: answer, At: time.Now()})
	c.mu.Unlock()
	return answer
}

func (c *Chatbot) complete(ctx context.Context, messages []llm.Message) (string, error) {
	if c.provider == nil {
		return "", llm.ErrNoProviders
	}
	opts := c.opts
	resp, err := c.provider.Chat(ctx, messages, &opts)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Content == "" {
		return "", llm.ErrEmptyResponse
	}
	c.logger.Debug().
		Str("provider", resp.Provider).
		Str("model", resp.Model).
		Int("tokens", resp.Usage.TotalTokens).
		Str("latency", resp.Latency.String()).
		Msg("chat: response generated")
	return resp.Content, nil
}

// requestMessages is the system prompt plus the trailing history window.
// Callers hold c.mu.
func (c *Chatbot) requestMessages(stocks []StockContext) []llm.Message {
	recent := c.history
	if len(recent) > c.historyLimit {
		recent = recent[len(recent)-c.historyLimit:]
	}
	out := make([]llm.Message, 0, len(recent)+1)
	out = append(out, llm.SystemMessage(systemPromptWith(stocks)))
	for _, m := range recent {
		role := llm.RoleUser
		if m.Role == models.ChatRoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.NewMessage(role, m.Content))
	}
	return out
}

// ClearHistory forgets the conversation.
func (c *Chatbot) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// History returns a copy of the conversation so far.
func (c *Chatbot) History() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.history...)
}

// StocksFromResult turns a dashboard refresh into chat context.
func StocksFromResult(res *dashboard.Result) []StockContext {
	if res == nil {
		return nil
	}
	out := make([]StockContext, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, StockContext{Name: r.Name, Symbol: r.Ticker, Metrics: r.Metrics})
	}
	return out
}
