package inmemory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/collab/collabtest"
)

func TestStore(t *testing.T) {
	collabtest.Run(t, func(t *testing.T) collab.Store { return New() })
}

func TestStoreCopiesBytes(t *testing.T) {
	ctx := context.Background()
	s := New()

	data := json.RawMessage(`{"a":"b"}`)
	s.Set(ctx, "c", "1", data)
	data[2] = 'z'

	doc, _ := s.Get(ctx, "c", "1")
	if string(doc.Data) != `{"a":"b"}` {
		t.Errorf("stored bytes aliased caller slice: %s", doc.Data)
	}
}
