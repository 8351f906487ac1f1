package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/rcliao/agentcore/internal/model"
)

func TestSessionSummaryReplace(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	if _, err := s.GetCurrentSessionSummary(ctx, "room-1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before any summary, got %v", err)
	}

	first, err := s.StoreSessionSummary(ctx, model.SessionSummary{RoomID: "room-1", EntityID: "user-1", Summary: "talked about tea", MessageCount: 10, LastMessageOffset: 10})
	if err != nil {
		t.Fatalf("store first: %v", err)
	}
	second, err := s.StoreSessionSummary(ctx, model.SessionSummary{RoomID: "room-1", EntityID: "user-1", Summary: "talked about tea and coffee", MessageCount: 20, LastMessageOffset: 20, Topics: []string{"tea", "coffee"}})
	if err != nil {
		t.Fatalf("store second: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("summaries share an id")
	}
	if _, err := s.StoreSessionSummary(ctx, model.SessionSummary{RoomID: "room-2", Summary: "other room", MessageCount: 3}); err != nil {
		t.Fatalf("store other room: %v", err)
	}

	got, err := s.GetCurrentSessionSummary(ctx, "room-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != second.ID || got.LastMessageOffset != 20 || len(got.Topics) != 2 {
		t.Errorf("unexpected current summary %+v", got)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.SessionSummaries != 2 {
		t.Errorf("expected one summary per room, stats = %+v", st)
	}
}

func TestStoreSessionSummaryValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	if _, err := s.StoreSessionSummary(ctx, model.SessionSummary{Summary: "x"}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("missing room: %v", err)
	}
	if _, err := s.StoreSessionSummary(ctx, model.SessionSummary{RoomID: "r", Summary: " "}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("blank summary: %v", err)
	}
	if _, err := s.StoreSessionSummary(ctx, model.SessionSummary{RoomID: "r", Summary: "x", LastMessageOffset: -1}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("negative offset: %v", err)
	}
}

func TestMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	for _, text := range []string{"one", "two", "three", "four"} {
		if _, err := s.AppendMessage(ctx, model.Message{RoomID: "room-1", EntityID: "user-1", Text: text}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	s.AppendMessage(ctx, model.Message{RoomID: "room-2", EntityID: "user-1", Text: "elsewhere"})

	n, err := s.CountMessages(ctx, "room-1")
	if err != nil || n != 4 {
		t.Fatalf("count = %d, %v; want 4", n, err)
	}

	recent, _ := s.RecentMessages(ctx, "room-1", 2)
	if len(recent) != 2 || recent[0].Text != "three" || recent[1].Text != "four" {
		t.Errorf("recent = %+v", recent)
	}

	since, _ := s.MessagesSince(ctx, "room-1", 1)
	if len(since) != 3 || since[0].Text != "two" {
		t.Errorf("since = %+v", since)
	}
	past, _ := s.MessagesSince(ctx, "room-1", 10)
	if past == nil || len(past) != 0 {
		t.Errorf("expected empty slice past the end, got %#v", past)
	}

	if _, err := s.AppendMessage(ctx, model.Message{Text: "no room"}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExportImportStats(t *testing.T) {
	ctx := context.Background()
	src := newTestService(t)

	old := mustStore(t, src, fact("user-1", "uses emacs", 0.6))
	src.SupersedeLongTermMemory(ctx, old.ID, fact("user-1", "uses vim", 0.7))
	mustStore(t, src, fact("user-2", "prefers tabs", 0.5))

	exp, err := src.ExportAll(ctx, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exp.Memories) != 3 {
		t.Fatalf("expected 3 exported memories, got %d", len(exp.Memories))
	}

	dst := newTestService(t)
	n, err := dst.Import(ctx, exp.Memories)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 3 {
		t.Errorf("imported %d, want 3", n)
	}
	if n, _ := dst.Import(ctx, exp.Memories); n != 0 {
		t.Errorf("re-import stored %d duplicates", n)
	}

	st, err := dst.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.LongTermMemories != 2 || st.SupersededMemories != 1 || st.Entities != 2 {
		t.Errorf("unexpected stats %+v", st)
	}

	one, _ := src.ExportAll(ctx, "user-2")
	if len(one.Memories) != 1 || one.Memories[0].Content != "prefers tabs" {
		t.Errorf("entity export = %+v", one.Memories)
	}
}
