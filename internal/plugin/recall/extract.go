package recall

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/agentcore/internal/capability"
	"github.com/rcliao/agentcore/internal/llm"
	"github.com/rcliao/agentcore/internal/memory"
	"github.com/rcliao/agentcore/internal/model"
	"github.com/rcliao/agentcore/internal/state"
)

const extractionSystem = `You extract durable facts about a user from their message.
Only keep information that will still matter in future conversations.`

const extractionPrompt = `Known facts about this user:
%s

New message from the user:
%s

List new long-term memories worth keeping. Categories:
- semantic: facts and knowledge about the user or their world
- procedural: preferences, habits and how they like things done
- episodic: specific events worth remembering

Do not repeat known facts. Reply with XML only:
<memories>
  <memory>
    <category>semantic</category>
    <content>one self-contained sentence</content>
    <confidence>0.0 to 1.0</confidence>
  </memory>
</memories>
Reply with <memories></memories> when there is nothing new.`

func (r *Recall) validateExtraction(_ context.Context, msg *model.Message, _ *state.State) bool {
	return msg.EntityID != "" && !msg.FromAgent() && strings.TrimSpace(msg.Text) != ""
}

// extract asks the small text model for memories in msg and stores the ones
// at or above the confidence threshold that are not already known.
func (r *Recall) extract(ctx context.Context, msg *model.Message, _ *state.State, _ capability.Options) (*capability.Result, error) {
	known, err := r.mem.PeekLongTermMemories(ctx, memory.ListParams{EntityID: msg.EntityID, Limit: r.cfg.LongTermLimit})
	if err != nil {
		return nil, err
	}

	reply, err := llm.Text(ctx, r.models, llm.TextSmall, llm.Params{
		System: extractionSystem,
		Prompt: fmt.Sprintf(extractionPrompt, bulletList(known), msg.Text),
	})
	if err != nil {
		return nil, err
	}
	candidates, err := parseMemories(reply)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, k := range known {
		seen[normalizeContent(k.Content)] = true
	}

	var stored []model.LongTermMemory
	for _, c := range candidates {
		key := normalizeContent(c.Content)
		if c.Confidence < r.cfg.MinConfidence || seen[key] {
			r.logger.Debug("dropping extracted memory", "entity", msg.EntityID, "confidence", c.Confidence, "duplicate", seen[key])
			continue
		}
		seen[key] = true

		rec, err := r.mem.StoreLongTermMemory(ctx, model.LongTermMemory{
			EntityID:   msg.EntityID,
			Category:   c.Category,
			Content:    c.Content,
			Confidence: c.Confidence,
			Source:     ExtractionEvaluator,
			Metadata:   map[string]any{"room_id": msg.RoomID, "message_id": msg.ID},
		})
		if err != nil {
			return nil, err
		}
		stored = append(stored, *rec)
	}

	r.logger.Debug("extracted long-term memories", "entity", msg.EntityID, "candidates", len(candidates), "stored", len(stored))
	return &capability.Result{
		Success: true,
		Text:    fmt.Sprintf("stored %d of %d extracted memories", len(stored), len(candidates)),
		Values:  map[string]any{"extractedMemoryCount": len(stored)},
		Data:    map[string]any{"memories": stored},
	}, nil
}

func bulletList(mems []model.LongTermMemory) string {
	if len(mems) == 0 {
		return "(none)"
	}
	lines := make([]string, len(mems))
	for i, m := range mems {
		lines[i] = fmt.Sprintf("- [%s] %s", m.Category, m.Content)
	}
	return strings.Join(lines, "\n")
}

func normalizeContent(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
