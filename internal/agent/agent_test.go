package agent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rcliao/agentcore/internal/capability"
	"github.com/rcliao/agentcore/internal/collab/inmemory"
	"github.com/rcliao/agentcore/internal/config"
	"github.com/rcliao/agentcore/internal/llm"
	"github.com/rcliao/agentcore/internal/model"
	"github.com/rcliao/agentcore/internal/plugin"
	"github.com/rcliao/agentcore/internal/plugin/recall"
	"github.com/rcliao/agentcore/internal/state"
)

// extractionModel replies to TEXT_SMALL with the memories listed in the
// latest user message after "Remember that".
type extractionModel struct {
	mu    sync.Mutex
	calls int
}

func (m *extractionModel) Invoke(ctx context.Context, t llm.ModelType, p llm.Params) (*llm.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if t != llm.TextSmall {
		return nil, model.ErrModel
	}
	_, fact, ok := strings.Cut(p.Prompt, "Remember that ")
	if !ok {
		return &llm.Response{Text: "<memories></memories>"}, nil
	}
	fact, _, _ = strings.Cut(fact, "\n")
	return &llm.Response{Text: "<memories><memory><category>semantic</category><content>" +
		fact + "</content><confidence>0.85</confidence></memory></memories>"}, nil
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(Options{AgentID: "agent-1", Store: inmemory.New(), Models: &extractionModel{}})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	rc := recall.New(rt.Memory(), rt.Models(), config.MemoryConfig{})
	if err := rt.RegisterPlugin(context.Background(), rc.Plugin()); err != nil {
		t.Fatalf("register recall: %v", err)
	}
	t.Cleanup(func() { rt.Stop() })
	return rt
}

func TestRememberThenRecall(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	first, err := rt.ProcessMessage(ctx, model.Message{
		EntityID: "user-1",
		RoomID:   "room-1",
		Text:     "Remember that users prefer concise answers",
	}, TurnOptions{})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	var extraction *capability.Invocation
	for i := range first.Evaluations {
		if first.Evaluations[i].Name == recall.ExtractionEvaluator {
			extraction = &first.Evaluations[i]
		}
	}
	if extraction == nil || extraction.Status != capability.Succeeded {
		t.Fatalf("extraction did not succeed: %+v", first.Evaluations)
	}

	mems, err := rt.Memory().GetLongTermMemories(ctx, "user-1", 5)
	if err != nil {
		t.Fatalf("get memories: %v", err)
	}
	if len(mems) != 1 || mems[0].Category != model.CategorySemantic ||
		mems[0].Content != "users prefer concise answers" || mems[0].Confidence < 0.5 {
		t.Fatalf("unexpected memories %+v", mems)
	}

	second, err := rt.ProcessMessage(ctx, model.Message{
		EntityID: "user-1",
		RoomID:   "room-1",
		Text:     "How should you answer me?",
	}, TurnOptions{SkipEvaluators: true})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	text := second.State.Text()
	heading := strings.Index(text, "# "+recall.LongTermHeading)
	content := strings.Index(text, "users prefer concise answers")
	if heading < 0 || content < heading {
		t.Errorf("memory not rendered under its heading:\n%s", text)
	}
	if !strings.Contains(text, "user-1: How should you answer me?") {
		t.Errorf("recent messages missing:\n%s", text)
	}
}

func TestProcessMessageRunsActions(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	err := rt.RegisterPlugin(ctx, &plugin.Plugin{
		Name: "echo",
		Actions: []*capability.Action{{Descriptor: capability.Descriptor{
			Name:    "reply",
			Similes: []string{"respond"},
			Handler: func(ctx context.Context, msg *model.Message, st *state.State, opts capability.Options) (*capability.Result, error) {
				return &capability.Result{Success: true, Text: msg.Text, Values: map[string]any{"replied": true}}, nil
			},
		}}},
	})
	if err != nil {
		t.Fatalf("register echo: %v", err)
	}

	res, err := rt.ProcessMessage(ctx, model.Message{EntityID: "user-1", RoomID: "room-1", Text: "ping"},
		TurnOptions{Actions: []string{"respond"}, SkipEvaluators: true})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if len(res.Actions) != 1 || res.Actions[0].Status != capability.Succeeded || res.Actions[0].Result.Text != "ping" {
		t.Errorf("actions = %+v", res.Actions)
	}
	if v, _ := res.State.Value("replied"); v != true {
		t.Error("action values not threaded into the turn state")
	}
	if res.Message.ID == "" || res.Message.AgentID != "agent-1" {
		t.Errorf("stored message = %+v", res.Message)
	}
}

func TestRegisterPluginCollisions(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	err := rt.RegisterPlugin(ctx, &plugin.Plugin{
		Name: "copycat",
		Evaluators: []*capability.Evaluator{{Descriptor: capability.Descriptor{
			Name: "remember facts",
			Handler: func(ctx context.Context, msg *model.Message, st *state.State, opts capability.Options) (*capability.Result, error) {
				return nil, nil
			},
		}}},
	})
	if !errors.Is(err, capability.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName for an alias collision, got %v", err)
	}

	if err := rt.RegisterPlugin(ctx, &plugin.Plugin{}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("unnamed plugin: %v", err)
	}
}

func TestRegisterPluginIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	stray := state.Func{
		Descriptor: state.Descriptor{Name: "STRAY", Position: 1},
		Fn: func(ctx context.Context, msg *model.Message, base *state.State) (state.Fragment, error) {
			return state.Fragment{Text: "stray provider ran"}, nil
		},
	}
	noop := func(ctx context.Context, msg *model.Message, st *state.State, opts capability.Options) (*capability.Result, error) {
		return nil, nil
	}
	half := func(evaluator string) *plugin.Plugin {
		return &plugin.Plugin{
			Name:       "half",
			Providers:  []state.Provider{stray},
			Actions:    []*capability.Action{{Descriptor: capability.Descriptor{Name: "wave", Similes: []string{"greet"}, Handler: noop}}},
			Evaluators: []*capability.Evaluator{{Descriptor: capability.Descriptor{Name: evaluator, Handler: noop}}},
		}
	}

	err := rt.RegisterPlugin(ctx, half("REMEMBER_FACTS"))
	if !errors.Is(err, capability.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if got := rt.Plugins(); len(got) != 1 || got[0] != recall.Name {
		t.Errorf("plugins = %v", got)
	}
	for _, name := range []string{"wave", "greet"} {
		if _, ok := rt.Dispatcher().Actions.Resolve(name); ok {
			t.Errorf("action %s left registered", name)
		}
	}
	st, err := rt.Compose(ctx, &model.Message{ID: "m1", EntityID: "user-1", RoomID: "room-1", Text: "hi"}, nil, nil, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if strings.Contains(st.Text(), "stray provider ran") {
		t.Errorf("provider of a failed plugin still composes:\n%s", st.Text())
	}

	if err := rt.RegisterPlugin(ctx, half("TRACK_MOOD")); err != nil {
		t.Fatalf("corrected plugin: %v", err)
	}
	if _, ok := rt.Dispatcher().Actions.Resolve("greet"); !ok {
		t.Error("corrected plugin's action not registered")
	}
}

func TestRegisterPluginMigratesOnce(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	runs := 0
	p := func() *plugin.Plugin {
		return &plugin.Plugin{
			Name:    "schema",
			Schema:  []byte("v1"),
			Migrate: func(context.Context) error { runs++; return nil },
		}
	}

	for i := 0; i < 2; i++ {
		rt, err := New(Options{AgentID: "agent-1", Store: store})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if err := rt.RegisterPlugin(ctx, p()); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if runs != 1 {
		t.Errorf("migration ran %d times, want 1", runs)
	}
	if m, err := store.GetLastMigration(ctx, "schema"); err != nil || m.Hash == "" {
		t.Errorf("migration not recorded: %+v %v", m, err)
	}
}

func TestFromConfigSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewDefaultConfig()
	cfg.Agent.ID = "agent-cfg"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "agentcore.db")

	rt, err := FromConfig(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	if rt.Cache() != nil || rt.Memory().CanSearch() {
		t.Error("embeddings enabled without a provider")
	}
	if got := rt.Plugins(); len(got) != 1 || got[0] != recall.Name {
		t.Errorf("plugins = %v", got)
	}
	if err := rt.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := rt.Stop(); err != nil {
		t.Errorf("second stop: %v", err)
	}

	cfg.Storage.Provider = "cassandra"
	if _, err := FromConfig(ctx, cfg, nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("unknown storage: %v", err)
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(Options{AgentID: "a"}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
