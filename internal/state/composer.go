package state

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/agentcore/internal/model"
)

// Composer resolves provider names and merges their fragments into a State.
// It holds no per-turn data, so one Composer serves concurrent turns.
type Composer struct {
	mu        sync.RWMutex
	providers map[string]Provider

	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the composer logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProviderTimeout bounds each provider call. Zero means no bound beyond
// the caller's context.
func WithProviderTimeout(d time.Duration) Option {
	return func(c *Composer) {
		c.timeout = d
	}
}

// NewComposer creates an empty Composer.
func NewComposer(opts ...Option) *Composer {
	c := &Composer{
		providers: map[string]Provider{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds p. Names must be unique.
func (c *Composer) Register(p Provider) error {
	d := p.Describe()
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return fmt.Errorf("%w: provider name is required", model.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.providers[name]; ok {
		return fmt.Errorf("%w: provider %s already registered", model.ErrInvalidInput, name)
	}
	c.providers[name] = p
	return nil
}

// Unregister removes the provider called name and reports whether it was
// registered.
func (c *Composer) Unregister(name string) bool {
	name = strings.TrimSpace(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.providers[name]; !ok {
		return false
	}
	delete(c.providers, name)
	return true
}

// Descriptors lists registered providers by position, then name.
func (c *Composer) Descriptors() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Descriptor, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p.Describe())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type composeConfig struct {
	base  *State
	cache *FragmentCache
}

// ComposeOption configures one ComposeState call.
type ComposeOption func(*composeConfig)

// WithBase hands providers a previously composed state.
func WithBase(s *State) ComposeOption {
	return func(cc *composeConfig) {
		cc.base = s
	}
}

// UseCache memoizes static provider fragments in fc.
func UseCache(fc *FragmentCache) ComposeOption {
	return func(cc *composeConfig) {
		cc.cache = fc
	}
}

// ComposeState runs the named providers for msg in ascending position and
// merges their fragments. An empty names list selects every non-private
// provider. Unknown names are skipped. A provider that fails or times out is
// recorded in the State and contributes nothing; cancellation of ctx aborts
// the whole composition.
func (c *Composer) ComposeState(ctx context.Context, msg *model.Message, names []string, opts ...ComposeOption) (*State, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: message is required", model.ErrInvalidInput)
	}
	var cc composeConfig
	for _, opt := range opts {
		opt(&cc)
	}

	selected := c.resolve(names)
	requested := make([]string, len(selected))
	for i, p := range selected {
		requested[i] = p.Describe().Name
	}
	setKey := requestKey(requested)

	st := &State{
		values: map[string]any{},
		data:   map[string]map[string]any{},
		errs:   map[string]error{},
	}
	var sections []string

	for _, p := range selected {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("compose state: %w", err)
		}
		d := p.Describe()

		frag, cached := Fragment{}, false
		if cc.cache != nil && !d.Dynamic {
			frag, cached = cc.cache.get(msg.ID, setKey, d.Name)
		}
		if !cached {
			var err error
			frag, err = c.run(ctx, p, msg, cc.base)
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("compose state: %w", ctx.Err())
				}
				c.logger.Warn("provider failed", "provider", d.Name, "error", err)
				st.errs[d.Name] = err
				continue
			}
			if cc.cache != nil && !d.Dynamic {
				cc.cache.put(msg.ID, setKey, d.Name, frag)
			}
		}

		maps.Copy(st.values, frag.Values)
		st.data[d.Name] = maps.Clone(orEmpty(frag.Data))
		st.providers = append(st.providers, d.Name)
		if text := strings.TrimSpace(frag.Text); text != "" {
			sections = append(sections, section(d.Heading, text))
		}
	}

	st.text = strings.Join(sections, sectionSep)
	return st, nil
}

// resolve maps requested names to providers, drops unknown names and
// duplicates, and orders the result by position. Equal positions keep
// request order; an empty request keeps name order.
func (c *Composer) resolve(names []string) []Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Provider
	if len(names) == 0 {
		all := make([]string, 0, len(c.providers))
		for name, p := range c.providers {
			if !p.Describe().Private {
				all = append(all, name)
			}
		}
		sort.Strings(all)
		for _, name := range all {
			out = append(out, c.providers[name])
		}
	} else {
		seen := map[string]bool{}
		for _, name := range names {
			name = strings.TrimSpace(name)
			if seen[name] {
				continue
			}
			seen[name] = true
			p, ok := c.providers[name]
			if !ok {
				c.logger.Debug("skipping unknown provider", "provider", name)
				continue
			}
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Describe().Position < out[j].Describe().Position
	})
	return out
}

// run calls p.Get under the provider deadline. Providers that ignore their
// context are abandoned when the deadline passes.
func (c *Composer) run(ctx context.Context, p Provider, msg *model.Message, base *State) (Fragment, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	type result struct {
		frag Fragment
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		frag, err := p.Get(ctx, msg, base)
		done <- result{frag: frag, err: err}
	}()

	select {
	case r := <-done:
		return r.frag, r.err
	case <-ctx.Done():
		return Fragment{}, ctx.Err()
	}
}
