package collab

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rcliao/agentcore/internal/model"
)

type fakeTracker struct {
	last     *Migration
	readErr  error
	recorded int
}

func (f *fakeTracker) GetLastMigration(ctx context.Context, plugin string) (*Migration, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if f.last == nil {
		return nil, model.ErrNotFound
	}
	return f.last, nil
}

func (f *fakeTracker) RecordMigration(ctx context.Context, plugin, hash string, at time.Time) error {
	f.recorded++
	f.last = &Migration{Plugin: plugin, Hash: hash, AppliedAt: at}
	return nil
}

func TestMigrateApplyFailureNotRecorded(t *testing.T) {
	tr := &fakeTracker{}
	_, err := Migrate(context.Background(), tr, "p", []byte("s"), func(context.Context) error {
		return errors.New("ddl failed")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if tr.recorded != 0 {
		t.Error("failed migration was recorded")
	}
}

func TestMigrateReadError(t *testing.T) {
	tr := &fakeTracker{readErr: errors.New("db down")}
	if _, err := Migrate(context.Background(), tr, "p", []byte("s"), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestMigrateRequiresPlugin(t *testing.T) {
	if _, err := Migrate(context.Background(), &fakeTracker{}, "", nil, nil); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		data string
		f    Filter
		want bool
	}{
		{"empty filter", `{"a":"b"}`, nil, true},
		{"match", `{"a":"b","c":"d"}`, Filter{"a": "b", "c": "d"}, true},
		{"mismatch", `{"a":"b"}`, Filter{"a": "x"}, false},
		{"missing", `{}`, Filter{"a": "b"}, false},
		{"non-string", `{"a":1}`, Filter{"a": "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(json.RawMessage(tt.data), tt.f)
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	type rec struct {
		Name string `json:"name"`
	}
	docs := []Document{{ID: "1", Data: json.RawMessage(`{"name":"a"}`)}, {ID: "2", Data: json.RawMessage(`{"name":"b"}`)}}
	got, err := Decode[rec](docs)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[1].Name != "b" {
		t.Errorf("unexpected %+v", got)
	}

	if _, err := Decode[rec]([]Document{{ID: "x", Data: json.RawMessage(`[`)}}); err == nil {
		t.Error("expected decode error")
	}
}
