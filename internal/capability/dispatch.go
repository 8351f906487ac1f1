package capability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rcliao/agentcore/internal/model"
	"github.com/rcliao/agentcore/internal/state"
)

// Status is the state of one capability invocation.
type Status int

const (
	Unvalidated Status = iota
	Validated
	Rejected
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Unvalidated:
		return "unvalidated"
	case Validated:
		return "validated"
	case Rejected:
		return "rejected"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Invocation records one dispatch. Result is nil unless the handler ran.
type Invocation struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Result   *Result       `json:"result,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Dispatcher validates and runs actions and evaluators. There is no retry;
// callers decide what to do with a failed Result.
type Dispatcher struct {
	Actions    *Registry[*Action]
	Evaluators *Registry[*Evaluator]

	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithHandlerTimeout bounds each handler run, including handlers that ignore
// their context.
func WithHandlerTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = t
	}
}

// NewDispatcher creates a Dispatcher with empty registries.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		Actions:    NewRegistry[*Action](),
		Evaluators: NewRegistry[*Evaluator](),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchAction resolves name and runs the action if its validation passes.
// A rejected or failed invocation is not an error; errors are reserved for
// unknown names and missing arguments.
func (d *Dispatcher) DispatchAction(ctx context.Context, name string, msg *model.Message, st *state.State, opts Options) (Invocation, error) {
	a, ok := d.Actions.Resolve(name)
	if !ok {
		return Invocation{Name: name}, fmt.Errorf("%w: action %s", model.ErrNotFound, name)
	}
	if err := checkArgs(msg, st); err != nil {
		return Invocation{Name: a.Name}, err
	}
	return d.invoke(ctx, a.Base(), false, msg, st, opts), nil
}

// ProcessActions dispatches names in order. Values of each successful result
// are merged into the state handed to the next action. Unknown names are
// skipped. The final state and the ledger of every invocation are returned.
func (d *Dispatcher) ProcessActions(ctx context.Context, names []string, msg *model.Message, st *state.State, opts Options) ([]Invocation, *state.State, error) {
	if err := checkArgs(msg, st); err != nil {
		return nil, st, err
	}
	ledger := []Invocation{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return ledger, st, err
		}
		inv, err := d.DispatchAction(ctx, name, msg, st, opts)
		if err != nil {
			d.logger.Debug("skipping action", "action", name, "error", err)
			continue
		}
		ledger = append(ledger, inv)
		if inv.Status == Succeeded && len(inv.Result.Values) > 0 {
			st = st.With(inv.Result.Values, "")
		}
	}
	return ledger, st, nil
}

// Evaluate runs every evaluator whose validation passes, or that is marked
// AlwaysRun, in registration order.
func (d *Dispatcher) Evaluate(ctx context.Context, msg *model.Message, st *state.State, opts Options) ([]Invocation, error) {
	if err := checkArgs(msg, st); err != nil {
		return nil, err
	}
	ledger := []Invocation{}
	for _, e := range d.Evaluators.All() {
		if err := ctx.Err(); err != nil {
			return ledger, err
		}
		ledger = append(ledger, d.invoke(ctx, e.Base(), e.AlwaysRun, msg, st, opts))
	}
	return ledger, nil
}

func checkArgs(msg *model.Message, st *state.State) error {
	if msg == nil {
		return fmt.Errorf("%w: message is required", model.ErrInvalidInput)
	}
	if st == nil {
		return model.ErrStateRequired
	}
	return nil
}

func (d *Dispatcher) invoke(ctx context.Context, c *Descriptor, skipValidate bool, msg *model.Message, st *state.State, opts Options) (inv Invocation) {
	inv = Invocation{Name: Normalize(c.Name), Status: Unvalidated}
	start := time.Now()
	defer func() { inv.Duration = time.Since(start) }()

	if !skipValidate && !d.validate(ctx, c, msg, st) {
		inv.Status = Rejected
		d.logger.Debug("capability rejected", "capability", inv.Name, "room", msg.RoomID)
		return inv
	}
	inv.Status = Validated

	res, err := d.handle(ctx, c, msg, st, opts)
	switch {
	case err != nil:
		res = &Result{Success: false, Text: err.Error(), Err: err}
	case res == nil:
		res = &Result{Success: true}
	}
	inv.Result = res
	if res.Success {
		inv.Status = Succeeded
	} else {
		inv.Status = Failed
		d.logger.Warn("capability failed", "capability", inv.Name, "error", res.Err, "text", res.Text)
	}
	return inv
}

// validate treats a nil ValidateFunc as always applicable and a panicking
// one as not applicable.
func (d *Dispatcher) validate(ctx context.Context, c *Descriptor, msg *model.Message, st *state.State) (ok bool) {
	if c.Validate == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("capability validation panicked", "capability", c.Name, "panic", r)
			ok = false
		}
	}()
	return c.Validate(ctx, msg, st)
}

func (d *Dispatcher) handle(ctx context.Context, c *Descriptor, msg *model.Message, st *state.State, opts Options) (*Result, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrHandlerPanic, r)}
			}
		}()
		res, err := c.Handler(ctx, msg, st, opts)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
