// Package anthropic serves TEXT_SMALL and TEXT_LARGE calls through the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rcliao/agentcore/internal/llm"
	"github.com/rcliao/agentcore/internal/model"
)

const defaultMaxTokens = 1024

// messageCreator is the subset of the SDK's MessageService the handler uses.
type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Handler calls one Claude model.
type Handler struct {
	messages    messageCreator
	model       string
	maxTokens   int
	temperature *float64
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxTokens sets the default completion budget.
func WithMaxTokens(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxTokens = n
		}
	}
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(h *Handler) {
		h.temperature = &t
	}
}

// New creates a handler for modelName using an API key.
func New(apiKey, modelName string, opts ...Option) *Handler {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newHandler(&client.Messages, modelName, opts...)
}

func newHandler(m messageCreator, modelName string, opts ...Option) *Handler {
	h := &Handler{messages: m, model: modelName, maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle implements llm.HandlerFunc.
func (h *Handler) Handle(ctx context.Context, p llm.Params) (*llm.Response, error) {
	prompt := p.Prompt
	if prompt == "" {
		prompt = p.Text
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", model.ErrInvalidInput)
	}

	maxTokens := h.maxTokens
	if p.MaxTokens > 0 {
		maxTokens = p.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(h.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}
	if t := p.Temperature; t != nil {
		params.Temperature = anthropic.Float(*t)
	} else if h.temperature != nil {
		params.Temperature = anthropic.Float(*h.temperature)
	}
	if len(p.Stop) > 0 {
		params.StopSequences = p.Stop
	}

	resp, err := h.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: claude API error: %v", model.ErrModel, err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return nil, fmt.Errorf("%w: claude returned no text content", model.ErrModel)
	}
	return &llm.Response{Text: b.String()}, nil
}

// Register wires small and large handlers into r, plus OBJECT_SMALL derived
// from the small model.
func Register(r *llm.Router, small, large *Handler) {
	if small != nil {
		r.Register(llm.TextSmall, small.Handle)
		r.Register(llm.ObjectSmall, llm.ObjectHandler(small.Handle))
	}
	if large != nil {
		r.Register(llm.TextLarge, large.Handle)
	}
}
