package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/rcliao/agentcore/internal/llm"
	"github.com/rcliao/agentcore/internal/model"
)

const (
	// DefaultCacheSize is used when a cache is created without a positive bound.
	DefaultCacheSize = 1000

	// DefaultCallTimeout bounds a shared model call once every waiter is gone.
	DefaultCallTimeout = time.Minute
)

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Entries   int    `json:"entries"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Disabled  bool   `json:"disabled"`
}

// Cache is a bounded text -> vector cache in front of a TEXT_EMBEDDING model.
//
// Eviction is least-recently-used. Concurrent misses for the same text share
// one model call, which runs detached from any single caller's context so a
// cancelled caller does not fail the others. A miss that completes after
// Clear or Disable is returned to its caller but not stored.
type Cache struct {
	invoker     llm.Invoker
	capacity    int
	dims        int
	callTimeout time.Duration
	logger      *slog.Logger

	group singleflight.Group

	mu        sync.Mutex
	entries   *lru.Cache[string, Vector]
	gen       uint64
	disabled  bool
	hits      uint64
	misses    uint64
	evictions uint64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCapacity bounds the number of cached vectors.
func WithCapacity(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithDimensions rejects vectors whose length is not n.
func WithDimensions(n int) CacheOption {
	return func(c *Cache) {
		c.dims = n
	}
}

// WithCallTimeout bounds each shared model call. Zero disables the bound.
func WithCallTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.callTimeout = d
	}
}

// WithLogger sets the cache logger.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache creates a cache over inv.
func NewCache(inv llm.Invoker, opts ...CacheOption) *Cache {
	c := &Cache{
		invoker:     inv,
		capacity:    DefaultCacheSize,
		callTimeout: DefaultCallTimeout,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = c.newLRU()
	return c
}

// newLRU builds an empty entry set. The eviction callback runs inside Add,
// which is only called with c.mu held.
func (c *Cache) newLRU() *lru.Cache[string, Vector] {
	l, err := lru.NewWithEvict(c.capacity, func(string, Vector) {
		c.evictions++
		c.logger.Debug("embedding cache eviction", "evictions", c.evictions)
	})
	if err != nil {
		// only a non-positive size fails and capacity is always positive
		panic(err)
	}
	return l
}

// Embed returns the embedding of text, calling the model only on a miss.
// The returned slice is owned by the caller.
func (c *Cache) Embed(ctx context.Context, text string) (Vector, error) {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return c.invoke(ctx, text)
	}
	if vec, ok := c.entries.Get(text); ok {
		c.hits++
		c.mu.Unlock()
		return clone(vec), nil
	}
	gen := c.gen
	c.mu.Unlock()

	key := strconv.FormatUint(gen, 10) + ":" + text
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		if c.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, c.callTimeout)
			defer cancel()
		}
		vec, err := c.invoke(callCtx, text)
		if err != nil {
			return nil, err
		}
		c.store(text, vec, gen)
		return vec, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.(Vector)), nil
	}
}

// Similarity returns the cosine similarity of the embeddings of a and b.
func (c *Cache) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := c.Embed(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := c.Embed(ctx, b)
	if err != nil {
		return 0, err
	}
	return CosineSimilarity(va, vb), nil
}

// Dims returns the configured dimension, 0 when unchecked.
func (c *Cache) Dims() int { return c.dims }

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Disable clears the cache and forwards every later call to the model
// until Enable is called.
func (c *Cache) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.disabled = true
}

// Enable turns caching back on.
func (c *Cache) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = false
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Stats returns the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:   c.entries.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Disabled:  c.disabled,
	}
}

// reset swaps in a fresh entry set; Purge would report every entry as evicted.
func (c *Cache) reset() {
	c.entries = c.newLRU()
	c.gen++
}

func (c *Cache) invoke(ctx context.Context, text string) (Vector, error) {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	c.logger.Debug("embedding cache miss", "chars", len(text))

	resp, err := c.invoker.Invoke(ctx, llm.TextEmbedding, llm.Params{Text: text})
	if err != nil {
		if !errors.Is(err, model.ErrModel) {
			err = fmt.Errorf("%w: %v", model.ErrModel, err)
		}
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", model.ErrModel)
	}
	if c.dims > 0 && len(resp.Embedding) != c.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", model.ErrDimensionMismatch, len(resp.Embedding), c.dims)
	}
	return clone(resp.Embedding), nil
}

func (c *Cache) store(text string, vec Vector, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled || gen != c.gen {
		return
	}
	c.entries.Add(text, vec)
}

func clone(v Vector) Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}
