package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/agentcore/internal/model"
)

type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingHandler adapts an embedder to TEXT_EMBEDDING calls.
func EmbeddingHandler(e embedder) HandlerFunc {
	return func(ctx context.Context, p Params) (*Response, error) {
		text := p.Text
		if text == "" {
			text = p.Prompt
		}
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return &Response{Embedding: vec}, nil
	}
}

// ObjectHandler derives OBJECT_SMALL from a text handler by parsing the
// first JSON object in its reply.
func ObjectHandler(text HandlerFunc) HandlerFunc {
	return func(ctx context.Context, p Params) (*Response, error) {
		resp, err := text(ctx, p)
		if err != nil {
			return nil, err
		}
		obj, err := ParseJSONObject(resp.Text)
		if err != nil {
			return nil, err
		}
		return &Response{Text: resp.Text, Object: obj}, nil
	}
}

// ParseJSONObject extracts a JSON object from model output, tolerating
// markdown code fences and surrounding prose.
func ParseJSONObject(raw string) (map[string]any, error) {
	s := StripCodeFence(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in reply", model.ErrResponseParse)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrResponseParse, err)
	}
	return obj, nil
}

// StripCodeFence removes a surrounding ```lang ... ``` fence if present.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
