// Package collabtest holds the behavior checks every collab.Store backend
// must pass.
package collabtest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/model"
)

// Run exercises a fresh store returned by open.
func Run(t *testing.T, open func(t *testing.T) collab.Store) {
	t.Run("SetGet", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		if err := s.Set(ctx, "notes", "a", json.RawMessage(`{"room_id":"r1","n":1}`)); err != nil {
			t.Fatalf("set: %v", err)
		}
		doc, err := s.Get(ctx, "notes", "a")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal(doc.Data, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got["room_id"] != "r1" || got["n"] != float64(1) {
			t.Errorf("unexpected document %s", doc.Data)
		}

		if err := s.Set(ctx, "notes", "a", json.RawMessage(`{"room_id":"r2"}`)); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		doc, _ = s.Get(ctx, "notes", "a")
		json.Unmarshal(doc.Data, &got)
		if got["room_id"] != "r2" {
			t.Errorf("overwrite not applied: %s", doc.Data)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		if _, err := s.Get(ctx, "notes", "missing"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("get: expected ErrNotFound, got %v", err)
		}
		if err := s.Delete(ctx, "notes", "missing"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		if err := s.Set(ctx, "", "a", json.RawMessage(`{}`)); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("empty collection: %v", err)
		}
		if err := s.Set(ctx, "notes", "", json.RawMessage(`{}`)); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("empty id: %v", err)
		}
		if err := s.Set(ctx, "notes", "a", json.RawMessage(`{nope`)); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("bad json: %v", err)
		}
		if _, err := s.GetWhere(ctx, "notes", collab.Filter{"a'b": "x"}); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("bad filter field: %v", err)
		}
	})

	t.Run("WhereCountDelete", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		docs := map[string]string{
			"03": `{"room_id":"r1","agent_id":"x"}`,
			"01": `{"room_id":"r1","agent_id":"y"}`,
			"02": `{"room_id":"r2","agent_id":"x"}`,
			"04": `{"room_id":7}`,
		}
		for id, data := range docs {
			if err := s.Set(ctx, "msgs", id, json.RawMessage(data)); err != nil {
				t.Fatalf("set %s: %v", id, err)
			}
		}
		s.Set(ctx, "other", "01", json.RawMessage(`{"room_id":"r1"}`))

		all, err := s.GetAll(ctx, "msgs")
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		if len(all) != 4 || all[0].ID != "01" || all[3].ID != "04" {
			t.Errorf("expected 4 docs ordered by id, got %v", ids(all))
		}

		r1, err := s.GetWhere(ctx, "msgs", collab.Filter{"room_id": "r1"})
		if err != nil {
			t.Fatalf("get where: %v", err)
		}
		if got := ids(r1); len(got) != 2 || got[0] != "01" || got[1] != "03" {
			t.Errorf("room r1 = %v, want [01 03]", got)
		}

		both, _ := s.GetWhere(ctx, "msgs", collab.Filter{"room_id": "r1", "agent_id": "x"})
		if got := ids(both); len(got) != 1 || got[0] != "03" {
			t.Errorf("room r1 agent x = %v, want [03]", got)
		}

		numeric, _ := s.GetWhere(ctx, "msgs", collab.Filter{"room_id": "7"})
		if len(numeric) != 0 {
			t.Errorf("non-string field matched: %v", ids(numeric))
		}

		n, err := s.Count(ctx, "msgs", nil)
		if err != nil || n != 4 {
			t.Errorf("count = %d, %v; want 4", n, err)
		}
		n, _ = s.Count(ctx, "msgs", collab.Filter{"agent_id": "x"})
		if n != 2 {
			t.Errorf("count agent x = %d, want 2", n)
		}

		if err := s.Delete(ctx, "msgs", "01"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		n, _ = s.Count(ctx, "msgs", nil)
		if n != 3 {
			t.Errorf("count after delete = %d, want 3", n)
		}
		if _, err := s.Get(ctx, "other", "01"); err != nil {
			t.Errorf("delete crossed collections: %v", err)
		}
	})

	t.Run("EmptyCollection", func(t *testing.T) {
		s := open(t)
		docs, err := s.GetAll(context.Background(), "nothing")
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		if docs == nil || len(docs) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", docs)
		}
	})

	t.Run("Migrations", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)

		if _, err := s.GetLastMigration(ctx, "recall"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		applied := 0
		apply := func(context.Context) error { applied++; return nil }
		for i := 0; i < 2; i++ {
			if _, err := collab.Migrate(ctx, s, "recall", []byte("v1"), apply); err != nil {
				t.Fatalf("migrate: %v", err)
			}
		}
		if applied != 1 {
			t.Errorf("same schema applied %d times, want 1", applied)
		}

		ran, err := collab.Migrate(ctx, s, "recall", []byte("v2"), apply)
		if err != nil || !ran || applied != 2 {
			t.Errorf("changed schema: ran=%v applied=%d err=%v", ran, applied, err)
		}

		last, err := s.GetLastMigration(ctx, "recall")
		if err != nil {
			t.Fatalf("last migration: %v", err)
		}
		if last.Hash != collab.Hash([]byte("v2")) || last.Plugin != "recall" {
			t.Errorf("unexpected migration %+v", last)
		}
		if time.Since(last.AppliedAt) > time.Minute {
			t.Errorf("applied_at not recorded: %v", last.AppliedAt)
		}
	})
}

func ids(docs []collab.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
