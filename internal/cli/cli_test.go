package cli

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/agentcore/internal/capability"
)

func TestDecodeImport(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"export object", `{"agent_id":"a","memories":[{"id":"m1"},{"id":"m2"}]}`, 2},
		{"bare array", ` [{"id":"m1"}]`, 1},
		{"empty export", `{"agent_id":"a"}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mems, err := decodeImport([]byte(tt.data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(mems) != tt.want {
				t.Errorf("got %d memories, want %d", len(mems), tt.want)
			}
		})
	}

	if _, err := decodeImport([]byte("not json")); err == nil {
		t.Error("expected an error for invalid json")
	}
}

func TestDescribeInvocations(t *testing.T) {
	out := describeInvocations([]capability.Invocation{
		{Name: "A", Status: capability.Succeeded, Result: &capability.Result{Success: true, Text: "done"}, Duration: time.Millisecond},
		{Name: "B", Status: capability.Failed, Result: &capability.Result{Err: errors.New("boom")}},
		{Name: "C", Status: capability.Rejected},
	})
	if len(out) != 3 {
		t.Fatalf("got %d invocations", len(out))
	}
	if out[0].Text != "done" || out[0].Status != capability.Succeeded.String() || out[0].Duration != "1ms" {
		t.Errorf("first = %+v", out[0])
	}
	if out[1].Error != "boom" {
		t.Errorf("second = %+v", out[1])
	}
	if out[2].Status != capability.Rejected.String() || out[2].Text != "" {
		t.Errorf("third = %+v", out[2])
	}
}

func TestLoadConfigUsesConfigDir(t *testing.T) {
	dir := t.TempDir()
	configDir = dir
	t.Cleanup(func() { configDir = "" })

	v, cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := v.GetString("config_dir"); got != dir {
		t.Errorf("config_dir = %q", got)
	}
	if want := filepath.Join(dir, "agentcore.db"); cfg.Storage.SQLitePath != want {
		t.Errorf("sqlite path = %q, want %q", cfg.Storage.SQLitePath, want)
	}
}
