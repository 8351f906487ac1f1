package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rcliao/agentcore/internal/logger"
)

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.WithWriter(&buf))
	l.Info("hello", "key", "value")

	out := buf.String()
	for _, want := range []string{"hello", "key", "value"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger.New(logger.WithWriter(&buf), logger.WithDebug(true)).Debug("debug msg")
	if !strings.Contains(buf.String(), "debug msg") {
		t.Errorf("expected debug output, got %q", buf.String())
	}

	buf.Reset()
	logger.New(logger.WithWriter(&buf), logger.WithDebug(false)).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.New(logger.WithWriter(&buf), logger.WithJSON(true)).Info("structured", "count", 42)

	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed["msg"] != "structured" {
		t.Errorf("msg = %v", parsed["msg"])
	}
	if parsed["count"] != float64(42) {
		t.Errorf("count = %v", parsed["count"])
	}
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.New(logger.WithWriter(&buf), logger.WithPretty(true)).Info("pretty output")
	if !strings.Contains(buf.String(), "pretty output") {
		t.Errorf("got %q", buf.String())
	}
}

func TestMultipleWriters(t *testing.T) {
	var b1, b2 bytes.Buffer
	logger.New(logger.WithWriters(&b1, &b2)).Info("multi")
	if !strings.Contains(b1.String(), "multi") || !strings.Contains(b2.String(), "multi") {
		t.Errorf("writers got %q and %q", b1.String(), b2.String())
	}
}

func TestMulti(t *testing.T) {
	var text, js bytes.Buffer
	l := logger.Multi(
		logger.New(logger.WithWriter(&text)),
		logger.New(logger.WithWriter(&js), logger.WithJSON(true), logger.WithDebug(true)),
	)
	l.Debug("only json")
	l.With("component", "cache").Info("both")

	if strings.Contains(text.String(), "only json") {
		t.Error("text handler should filter debug")
	}
	if !strings.Contains(js.String(), "only json") {
		t.Error("json handler should receive debug")
	}
	if !strings.Contains(text.String(), "component=cache") {
		t.Errorf("text handler missing attrs: %q", text.String())
	}
	if !strings.Contains(js.String(), `"component":"cache"`) {
		t.Errorf("json handler missing attrs: %q", js.String())
	}
}

func TestNop(t *testing.T) {
	l := logger.Nop()
	if l.Handler() == nil {
		t.Fatal("nil handler")
	}
	l.Error("ignored")
}
