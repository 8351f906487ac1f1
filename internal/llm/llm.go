// Package llm defines the model-invocation capability consumed by the core.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rcliao/agentcore/internal/model"
)

// ModelType selects which kind of model a call is routed to.
type ModelType string

const (
	TextSmall     ModelType = "TEXT_SMALL"
	TextLarge     ModelType = "TEXT_LARGE"
	TextEmbedding ModelType = "TEXT_EMBEDDING"
	Image         ModelType = "IMAGE"
	ObjectSmall   ModelType = "OBJECT_SMALL"
)

// Params is the input of a single model call. Prompt is used by text and
// object models, Text by embedding models.
type Params struct {
	Prompt      string
	Text        string
	System      string
	MaxTokens   int
	Temperature *float64
	Stop        []string
}

// Response carries whichever output the model type produces.
type Response struct {
	Text      string
	Embedding []float32
	ImageURL  string
	Object    map[string]any
}

// Invoker calls a model.
type Invoker interface {
	Invoke(ctx context.Context, t ModelType, p Params) (*Response, error)
}

// HandlerFunc serves one model type.
type HandlerFunc func(ctx context.Context, p Params) (*Response, error)

// Router dispatches invocations to the handler registered for each model type.
type Router struct {
	mu       sync.RWMutex
	handlers map[ModelType]HandlerFunc
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[ModelType]HandlerFunc)}
}

// Register sets the handler for t, replacing any previous one.
func (r *Router) Register(t ModelType, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// Has reports whether a handler is registered for t.
func (r *Router) Has(t ModelType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[t]
	return ok
}

// Invoke implements Invoker. Failures are wrapped with model.ErrModel.
func (r *Router) Invoke(ctx context.Context, t ModelType, p Params) (*Response, error) {
	r.mu.RLock()
	h, ok := r.handlers[t]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no handler for %s", model.ErrModel, t)
	}

	resp, err := h(ctx, p)
	if err != nil {
		if errors.Is(err, model.ErrModel) || errors.Is(err, model.ErrResponseParse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", model.ErrModel, t, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: %s returned no response", model.ErrModel, t)
	}
	return resp, nil
}

// Text invokes a text model and returns its reply.
func Text(ctx context.Context, inv Invoker, t ModelType, p Params) (string, error) {
	resp, err := inv.Invoke(ctx, t, p)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
