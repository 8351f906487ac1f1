// Package capability registers actions and evaluators by name and alias and
// dispatches them against a composed state.
package capability

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rcliao/agentcore/internal/model"
	"github.com/rcliao/agentcore/internal/state"
)

var (
	// ErrDuplicateName means a name or alias is already registered.
	ErrDuplicateName = fmt.Errorf("%w: duplicate capability name", model.ErrInvalidInput)

	// ErrHandlerPanic means a handler panicked; the panic value is in the message.
	ErrHandlerPanic = errors.New("capability handler panicked")
)

// ValidateFunc reports whether a capability applies to msg. It must not call
// models or write anything.
type ValidateFunc func(ctx context.Context, msg *model.Message, st *state.State) bool

// HandlerFunc performs the capability. A returned error becomes a failed
// Result.
type HandlerFunc func(ctx context.Context, msg *model.Message, st *state.State, opts Options) (*Result, error)

// Options are caller-supplied handler arguments.
type Options map[string]any

// Result is the outcome of one handler run.
type Result struct {
	Success bool           `json:"success"`
	Text    string         `json:"text,omitempty"`
	Values  map[string]any `json:"values,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Err     error          `json:"-"`
}

// Descriptor is the part shared by actions and evaluators.
type Descriptor struct {
	Name        string
	Similes     []string
	Description string
	Validate    ValidateFunc
	Handler     HandlerFunc
}

// Base returns d. Actions and evaluators inherit it through embedding.
func (d *Descriptor) Base() *Descriptor { return d }

// Action performs an effect in response to a message.
type Action struct {
	Descriptor
	Examples []string
}

// Evaluator assesses a turn after actions ran.
type Evaluator struct {
	Descriptor
	// AlwaysRun skips validation.
	AlwaysRun bool
}

// Capability is implemented by *Action and *Evaluator.
type Capability interface {
	Base() *Descriptor
}

// Normalize returns the canonical form of a capability name: trimmed,
// upper-cased, with dashes and spaces replaced by underscores.
func Normalize(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	return strings.NewReplacer("-", "_", " ", "_").Replace(name)
}

// Registry maps canonical names and aliases to capabilities. Collisions are
// rejected at registration so resolution is never ambiguous.
type Registry[T Capability] struct {
	mu      sync.RWMutex
	byName  map[string]T
	aliases map[string]string
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry[T Capability]() *Registry[T] {
	return &Registry[T]{
		byName:  map[string]T{},
		aliases: map[string]string{},
	}
}

// Register adds c under its normalized name and similes.
func (r *Registry[T]) Register(c T) error {
	d := c.Base()
	name := Normalize(d.Name)
	if name == "" {
		return fmt.Errorf("%w: capability name is required", model.ErrInvalidInput)
	}
	if d.Handler == nil {
		return fmt.Errorf("%w: capability %s has no handler", model.ErrInvalidInput, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	var similes []string
	seen := map[string]bool{name: true}
	for _, s := range d.Similes {
		alias := Normalize(s)
		if alias == "" || seen[alias] {
			continue
		}
		if r.taken(alias) {
			return fmt.Errorf("%w: alias %s of %s", ErrDuplicateName, alias, name)
		}
		seen[alias] = true
		similes = append(similes, alias)
	}

	r.byName[name] = c
	for _, alias := range similes {
		r.aliases[alias] = name
	}
	r.order = append(r.order, name)
	return nil
}

// Unregister removes the capability whose canonical name is name, along with
// its aliases, and reports whether it was registered.
func (r *Registry[T]) Unregister(name string) bool {
	key := Normalize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[key]; !ok {
		return false
	}
	delete(r.byName, key)
	for alias, canonical := range r.aliases {
		if canonical == key {
			delete(r.aliases, alias)
		}
	}
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == key })
	return true
}

func (r *Registry[T]) taken(key string) bool {
	if _, ok := r.byName[key]; ok {
		return true
	}
	_, ok := r.aliases[key]
	return ok
}

// Resolve looks name up as a canonical name first, then as an alias.
func (r *Registry[T]) Resolve(name string) (T, bool) {
	key := Normalize(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.byName[key]; ok {
		return c, true
	}
	if canonical, ok := r.aliases[key]; ok {
		return r.byName[canonical], true
	}
	var zero T
	return zero, false
}

// All returns capabilities in registration order.
func (r *Registry[T]) All() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, len(r.order))
	for i, name := range r.order {
		out[i] = r.byName[name]
	}
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
