package embedding

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rcliao/agentcore/internal/llm"
	"github.com/rcliao/agentcore/internal/model"
)

// countingInvoker returns a deterministic vector per text and counts calls.
type countingInvoker struct {
	calls atomic.Int64
	vecs  map[string]Vector
	err   error
	delay time.Duration
}

func (c *countingInvoker) Invoke(ctx context.Context, t llm.ModelType, p llm.Params) (*llm.Response, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return nil, c.err
	}
	if v, ok := c.vecs[p.Text]; ok {
		return &llm.Response{Embedding: v}, nil
	}
	return &llm.Response{Embedding: Vector{float32(len(p.Text)), 1, 0}}, nil
}

func TestCacheHitSkipsModel(t *testing.T) {
	ctx := context.Background()
	inv := &countingInvoker{}
	c := NewCache(inv)

	first, err := c.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := c.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("vectors differ: %v vs %v", first, second)
	}
	if got := inv.calls.Load(); got != 1 {
		t.Errorf("model calls = %d, want 1", got)
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewCache(&countingInvoker{})

	v, _ := c.Embed(ctx, "abc")
	v[0] = 999
	again, _ := c.Embed(ctx, "abc")
	if again[0] == 999 {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestCacheModelErrorNotCached(t *testing.T) {
	ctx := context.Background()
	inv := &countingInvoker{err: errors.New("boom")}
	c := NewCache(inv)

	if _, err := c.Embed(ctx, "x"); !errors.Is(err, model.ErrModel) {
		t.Fatalf("expected ErrModel, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("failed call was cached")
	}

	inv.err = nil
	if _, err := c.Embed(ctx, "x"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if got := inv.calls.Load(); got != 2 {
		t.Errorf("model calls = %d, want 2", got)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	inv := &countingInvoker{}
	c := NewCache(inv, WithCapacity(2))

	c.Embed(ctx, "a")
	c.Embed(ctx, "bb")
	c.Embed(ctx, "a") // a is now most recent
	c.Embed(ctx, "ccc")

	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	if st := c.Stats(); st.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", st.Evictions)
	}

	before := inv.calls.Load()
	c.Embed(ctx, "a")
	if inv.calls.Load() != before {
		t.Error("expected a to survive eviction")
	}
	c.Embed(ctx, "bb")
	if inv.calls.Load() != before+1 {
		t.Error("expected bb to have been evicted")
	}
}

func TestCacheClearAndDisable(t *testing.T) {
	ctx := context.Background()
	inv := &countingInvoker{}
	c := NewCache(inv)

	c.Embed(ctx, "x")
	c.Clear()
	if c.Len() != 0 {
		t.Fatal("clear left entries behind")
	}
	if st := c.Stats(); st.Evictions != 0 {
		t.Errorf("clear counted %d evictions", st.Evictions)
	}
	c.Embed(ctx, "x")
	if got := inv.calls.Load(); got != 2 {
		t.Errorf("model calls after clear = %d, want 2", got)
	}

	c.Disable()
	c.Embed(ctx, "x")
	c.Embed(ctx, "x")
	if got := inv.calls.Load(); got != 4 {
		t.Errorf("disabled cache should forward every call, calls = %d", got)
	}
	if c.Len() != 0 {
		t.Error("disabled cache stored entries")
	}

	c.Enable()
	c.Embed(ctx, "x")
	c.Embed(ctx, "x")
	if got := inv.calls.Load(); got != 5 {
		t.Errorf("calls after enable = %d, want 5", got)
	}
}

func TestCacheConcurrentMissesShareCall(t *testing.T) {
	ctx := context.Background()
	inv := &countingInvoker{delay: 50 * time.Millisecond}
	c := NewCache(inv)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Embed(ctx, "same text"); err != nil {
				t.Errorf("embed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := inv.calls.Load(); got != 1 {
		t.Errorf("model calls = %d, want 1", got)
	}
}

// gatedInvoker blocks every call until release is closed or the call's
// context ends.
type gatedInvoker struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int64
}

func (g *gatedInvoker) Invoke(ctx context.Context, t llm.ModelType, p llm.Params) (*llm.Response, error) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return &llm.Response{Embedding: Vector{1, 2, 3}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCacheCancelledCallerDoesNotFailOthers(t *testing.T) {
	inv := &gatedInvoker{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCache(inv)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Embed(ctxA, "shared text")
		errA <- err
	}()
	<-inv.started

	type result struct {
		vec Vector
		err error
	}
	resB := make(chan result, 1)
	go func() {
		vec, err := c.Embed(context.Background(), "shared text")
		resB <- result{vec, err}
	}()

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(inv.release)
	select {
	case r := <-resB:
		if r.err != nil {
			t.Fatalf("live caller err = %v", r.err)
		}
		if !reflect.DeepEqual(r.vec, Vector{1, 2, 3}) {
			t.Errorf("live caller vec = %v", r.vec)
		}
	case <-time.After(time.Second):
		t.Fatal("live caller did not return")
	}

	// the shared call finished after its first caller left and was still cached
	if _, err := c.Embed(context.Background(), "shared text"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if st := c.Stats(); st.Entries != 1 || st.Hits != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCacheSharedCallTimeout(t *testing.T) {
	inv := &gatedInvoker{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCache(inv, WithCallTimeout(20*time.Millisecond))

	_, err := c.Embed(context.Background(), "slow")
	if !errors.Is(err, model.ErrModel) {
		t.Errorf("err = %v, want ErrModel", err)
	}
	if c.Len() != 0 {
		t.Error("failed call was cached")
	}
}

func TestCacheDimensionMismatch(t *testing.T) {
	c := NewCache(&countingInvoker{}, WithDimensions(4))
	if _, err := c.Embed(context.Background(), "x"); !errors.Is(err, model.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if c.Len() != 0 {
		t.Error("mismatched vector was cached")
	}
}

func TestCacheSimilarity(t *testing.T) {
	ctx := context.Background()
	inv := &countingInvoker{vecs: map[string]Vector{
		"zero-a": {0, 0, 0},
		"zero-b": {0, 0, 0},
		"east":   {1, 0, 0},
		"east2":  {2, 0, 0},
	}}
	c := NewCache(inv)

	sim, err := c.Similarity(ctx, "zero-a", "zero-b")
	if err != nil {
		t.Fatalf("similarity: %v", err)
	}
	if sim != 0 {
		t.Errorf("zero-magnitude similarity = %v, want exactly 0", sim)
	}

	sim, _ = c.Similarity(ctx, "east", "east2")
	if sim < 0.999 {
		t.Errorf("parallel similarity = %v, want 1", sim)
	}
}

func TestCacheSimilarityPropagatesError(t *testing.T) {
	c := NewCache(&countingInvoker{err: errors.New("down")})
	if _, err := c.Similarity(context.Background(), "a", "b"); !errors.Is(err, model.ErrModel) {
		t.Errorf("expected ErrModel, got %v", err)
	}
}
