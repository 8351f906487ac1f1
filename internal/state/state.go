// Package state composes the per-turn context (State) from registered
// providers.
package state

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/rcliao/agentcore/internal/model"
)

// Descriptor describes a provider.
type Descriptor struct {
	Name        string
	Description string
	// Heading prefixes the provider's text section. Empty means no heading.
	Heading string
	// Position orders providers within a composition, ascending.
	Position int
	// Dynamic providers are never memoized.
	Dynamic bool
	// Private providers only run when requested by name.
	Private bool
}

// Fragment is what one provider contributes to a State.
type Fragment struct {
	Text   string
	Values map[string]any
	Data   map[string]any
}

// Provider produces a context fragment for a message. base is the state the
// caller composed before this pass, or nil; it never contains output of
// providers from the same pass.
type Provider interface {
	Describe() Descriptor
	Get(ctx context.Context, msg *model.Message, base *State) (Fragment, error)
}

// Func adapts a function to Provider.
type Func struct {
	Descriptor
	Fn func(ctx context.Context, msg *model.Message, base *State) (Fragment, error)
}

// Describe implements Provider.
func (f Func) Describe() Descriptor { return f.Descriptor }

// Get implements Provider.
func (f Func) Get(ctx context.Context, msg *model.Message, base *State) (Fragment, error) {
	return f.Fn(ctx, msg, base)
}

// State is the read-only context assembled for one turn. Accessors return
// copies; a State is never mutated after composition.
type State struct {
	text      string
	values    map[string]any
	data      map[string]map[string]any
	providers []string
	errs      map[string]error
}

// NewState builds a State directly. Used by callers that dispatch without
// composing and by tests.
func NewState(text string, values map[string]any) *State {
	return &State{
		text:   text,
		values: maps.Clone(orEmpty(values)),
		data:   map[string]map[string]any{},
		errs:   map[string]error{},
	}
}

// Text returns the rendered context.
func (s *State) Text() string { return s.text }

// Value returns one merged value.
func (s *State) Value(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Values returns a copy of the merged values.
func (s *State) Values() map[string]any { return maps.Clone(s.values) }

// Data returns a copy of the structured data a provider returned.
func (s *State) Data(provider string) (map[string]any, bool) {
	d, ok := s.data[provider]
	return maps.Clone(d), ok
}

// Providers lists the providers whose fragments were merged, in order.
func (s *State) Providers() []string {
	return append([]string(nil), s.providers...)
}

// Err returns the error recorded for a provider that failed.
func (s *State) Err(provider string) error { return s.errs[provider] }

// Errors returns every recorded provider error.
func (s *State) Errors() map[string]error { return maps.Clone(s.errs) }

// With derives a new State with values merged over the current ones and text
// appended as an extra section.
func (s *State) With(values map[string]any, text string) *State {
	next := &State{
		text:      s.text,
		values:    maps.Clone(orEmpty(s.values)),
		data:      maps.Clone(s.data),
		providers: s.Providers(),
		errs:      maps.Clone(s.errs),
	}
	maps.Copy(next.values, values)
	if text = strings.TrimSpace(text); text != "" {
		if next.text != "" {
			next.text += sectionSep
		}
		next.text += text
	}
	return next
}

const sectionSep = "\n\n"

func section(heading, text string) string {
	if heading == "" {
		return text
	}
	return "# " + heading + "\n" + text
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// requestKey is the canonical form of a requested provider set.
func requestKey(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
