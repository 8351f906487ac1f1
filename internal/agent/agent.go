// Package agent is the composition root: it owns the memory service, the
// composer and the dispatcher of one agent and runs message turns through
// them.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rcliao/agentcore/internal/capability"
	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/embedding"
	"github.com/rcliao/agentcore/internal/llm"
	"github.com/rcliao/agentcore/internal/memory"
	"github.com/rcliao/agentcore/internal/model"
	"github.com/rcliao/agentcore/internal/plugin"
	"github.com/rcliao/agentcore/internal/state"
)

// Options configures a Runtime.
type Options struct {
	AgentID string
	Store   collab.Store
	Models  llm.Invoker

	// Cache embeds memory content and queries. Nil disables similarity
	// search.
	Cache      *embedding.Cache
	Dimensions int

	ProviderTimeout time.Duration
	HandlerTimeout  time.Duration
	TurnTimeout     time.Duration

	Logger *slog.Logger
}

// Runtime runs message turns for one agent. Turns may run concurrently; each
// gets its own State.
type Runtime struct {
	agentID    string
	store      collab.Store
	models     llm.Invoker
	cache      *embedding.Cache
	memory     *memory.Service
	composer   *state.Composer
	dispatcher *capability.Dispatcher

	turnTimeout time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	plugins []string

	stopOnce sync.Once
	stopErr  error
}

// New creates a Runtime. Store and AgentID are required.
func New(opts Options) (*Runtime, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store is required", model.ErrInvalidInput)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	memOpts := []memory.Option{memory.WithLogger(logger), memory.WithDimensions(opts.Dimensions)}
	if opts.Cache != nil {
		memOpts = append(memOpts, memory.WithEmbedder(opts.Cache))
	}
	mem, err := memory.New(opts.Store, opts.AgentID, memOpts...)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		agentID: opts.AgentID,
		store:   opts.Store,
		models:  opts.Models,
		cache:   opts.Cache,
		memory:  mem,
		composer: state.NewComposer(
			state.WithLogger(logger),
			state.WithProviderTimeout(opts.ProviderTimeout),
		),
		dispatcher: capability.NewDispatcher(
			capability.WithLogger(logger),
			capability.WithHandlerTimeout(opts.HandlerTimeout),
		),
		turnTimeout: opts.TurnTimeout,
		logger:      logger,
	}, nil
}

// AgentID returns the agent this runtime serves.
func (r *Runtime) AgentID() string { return r.agentID }

// Memory returns the memory service.
func (r *Runtime) Memory() *memory.Service { return r.memory }

// Composer returns the provider composer.
func (r *Runtime) Composer() *state.Composer { return r.composer }

// Dispatcher returns the capability dispatcher.
func (r *Runtime) Dispatcher() *capability.Dispatcher { return r.dispatcher }

// Store returns the persistent collaborator.
func (r *Runtime) Store() collab.Store { return r.store }

// Models returns the model-invocation capability.
func (r *Runtime) Models() llm.Invoker { return r.models }

// Cache returns the embedding cache, or nil.
func (r *Runtime) Cache() *embedding.Cache { return r.cache }

// Plugins lists registered plugin names in registration order.
func (r *Runtime) Plugins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.plugins...)
}

// RegisterPlugin runs the plugin's migration if its schema changed, then
// registers its providers, actions and evaluators. Registration is all or
// nothing: on a name collision every part of p registered so far is removed.
func (r *Runtime) RegisterPlugin(ctx context.Context, p *plugin.Plugin) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if len(p.Schema) > 0 {
		apply := p.Migrate
		if apply == nil {
			apply = func(context.Context) error { return nil }
		}
		applied, err := collab.Migrate(ctx, r.store, p.Name, p.Schema, apply)
		if err != nil {
			return fmt.Errorf("migrate plugin %s: %w", p.Name, err)
		}
		if applied {
			r.logger.Info("applied plugin migration", "plugin", p.Name, "hash", collab.Hash(p.Schema))
		}
	}

	if err := r.register(p); err != nil {
		return fmt.Errorf("plugin %s: %w", p.Name, err)
	}

	r.mu.Lock()
	r.plugins = append(r.plugins, p.Name)
	r.mu.Unlock()
	r.logger.Debug("registered plugin", "plugin", p.Name,
		"providers", len(p.Providers), "actions", len(p.Actions), "evaluators", len(p.Evaluators))
	return nil
}

func (r *Runtime) register(p *plugin.Plugin) (err error) {
	var undo []func()
	defer func() {
		if err != nil {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
		}
	}()

	for _, prov := range p.Providers {
		if err := r.composer.Register(prov); err != nil {
			return err
		}
		name := prov.Describe().Name
		undo = append(undo, func() { r.composer.Unregister(name) })
	}
	for _, a := range p.Actions {
		if err := r.dispatcher.Actions.Register(a); err != nil {
			return err
		}
		undo = append(undo, func() { r.dispatcher.Actions.Unregister(a.Name) })
	}
	for _, e := range p.Evaluators {
		if err := r.dispatcher.Evaluators.Register(e); err != nil {
			return err
		}
		undo = append(undo, func() { r.dispatcher.Evaluators.Unregister(e.Name) })
	}
	return nil
}

// TurnOptions selects what one turn runs.
type TurnOptions struct {
	// Providers to compose; empty means every non-private provider.
	Providers []string
	// Actions to dispatch, in order.
	Actions []string
	// SkipEvaluators disables the evaluation phase.
	SkipEvaluators bool
	// Base is handed to providers as the prior state.
	Base *state.State
	// Cache memoizes static provider fragments across compositions.
	Cache *state.FragmentCache
	// Options are passed to every handler.
	Options capability.Options
}

// TurnResult is everything a turn produced.
type TurnResult struct {
	Message     model.Message
	State       *state.State
	Actions     []capability.Invocation
	Evaluations []capability.Invocation
}

// ProcessMessage appends msg to its room log, composes the turn state, runs
// the requested actions and then the evaluators. The whole turn is bounded
// by the turn timeout.
func (r *Runtime) ProcessMessage(ctx context.Context, msg model.Message, opts TurnOptions) (*TurnResult, error) {
	if r.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.turnTimeout)
		defer cancel()
	}
	if msg.AgentID == "" {
		msg.AgentID = r.agentID
	}

	stored, err := r.memory.AppendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	logger := r.logger.With("room", stored.RoomID, "message", stored.ID)

	st, err := r.Compose(ctx, stored, opts.Providers, opts.Base, opts.Cache)
	if err != nil {
		return nil, err
	}
	res := &TurnResult{Message: *stored, State: st}

	res.Actions, res.State, err = r.dispatcher.ProcessActions(ctx, opts.Actions, stored, st, opts.Options)
	if err != nil {
		return res, err
	}

	if !opts.SkipEvaluators {
		res.Evaluations, err = r.dispatcher.Evaluate(ctx, stored, res.State, opts.Options)
		if err != nil {
			return res, err
		}
	}

	logger.Debug("processed message", "providers", len(res.State.Providers()),
		"actions", len(res.Actions), "evaluations", len(res.Evaluations))
	return res, nil
}

// Compose builds a State for msg without appending it to the log.
func (r *Runtime) Compose(ctx context.Context, msg *model.Message, providers []string, base *state.State, cache *state.FragmentCache) (*state.State, error) {
	var opts []state.ComposeOption
	if base != nil {
		opts = append(opts, state.WithBase(base))
	}
	if cache != nil {
		opts = append(opts, state.UseCache(cache))
	}
	return r.composer.ComposeState(ctx, msg, providers, opts...)
}

// Stop clears the embedding cache and closes the store. Later calls return
// the first result.
func (r *Runtime) Stop() error {
	r.stopOnce.Do(func() {
		if r.cache != nil {
			r.cache.Clear()
		}
		if err := r.store.Close(); err != nil {
			r.stopErr = fmt.Errorf("close store: %w", err)
		}
	})
	return r.stopErr
}
