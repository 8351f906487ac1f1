package recall

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/agentcore/internal/capability"
	"github.com/rcliao/agentcore/internal/chunker"
	"github.com/rcliao/agentcore/internal/llm"
	"github.com/rcliao/agentcore/internal/model"
	"github.com/rcliao/agentcore/internal/state"
)

const summarySystem = `You maintain a short running summary of a conversation.`

const summaryPrompt = `Current summary:
%s

New messages:
%s

Write an updated summary that folds the new messages into the current one.
Keep it under 200 words. Reply with XML only:
<summary>
  <text>the updated summary</text>
  <topics>comma, separated, topics</topics>
</summary>`

// validateSummary passes once the room has at least SummaryThreshold
// messages that the current summary does not cover.
func (r *Recall) validateSummary(ctx context.Context, msg *model.Message, _ *state.State) bool {
	if msg.RoomID == "" {
		return false
	}
	total, err := r.mem.CountMessages(ctx, msg.RoomID)
	if err != nil {
		return false
	}
	covered := 0
	if sum, err := r.mem.GetCurrentSessionSummary(ctx, msg.RoomID); err == nil {
		covered = sum.LastMessageOffset
	}
	return total-covered >= r.cfg.SummaryThreshold
}

// summarize folds the uncovered messages into the room summary one
// transcript window at a time and stores the result.
func (r *Recall) summarize(ctx context.Context, msg *model.Message, _ *state.State, _ capability.Options) (*capability.Result, error) {
	prev, err := r.mem.GetCurrentSessionSummary(ctx, msg.RoomID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	offset, text := 0, "(none)"
	var topics []string
	if prev != nil {
		offset, text, topics = prev.LastMessageOffset, prev.Summary, prev.Topics
	}

	msgs, err := r.mem.MessagesSince(ctx, msg.RoomID, offset)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return &capability.Result{Success: true, Text: "summary is current"}, nil
	}

	windows := chunker.Windows(transcript(msgs), r.windows)
	if len(windows) == 0 {
		return &capability.Result{Success: true, Text: "no text to summarize"}, nil
	}
	for _, w := range windows {
		reply, err := llm.Text(ctx, r.models, llm.TextLarge, llm.Params{
			System: summarySystem,
			Prompt: fmt.Sprintf(summaryPrompt, text, w.Text),
		})
		if err != nil {
			return nil, err
		}
		var newTopics []string
		text, newTopics, err = parseSummary(reply)
		if err != nil {
			return nil, err
		}
		topics = mergeTopics(topics, newTopics)
	}

	sum := model.SessionSummary{
		RoomID:            msg.RoomID,
		EntityID:          msg.EntityID,
		Summary:           text,
		MessageCount:      len(msgs),
		LastMessageOffset: offset + len(msgs),
		StartTime:         msgs[0].CreatedAt,
		EndTime:           msgs[len(msgs)-1].CreatedAt,
		Topics:            topics,
	}
	if prev != nil {
		sum.MessageCount += prev.MessageCount
		sum.StartTime = prev.StartTime
	}
	stored, err := r.mem.StoreSessionSummary(ctx, sum)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("refreshed session summary", "room", msg.RoomID, "new_messages", len(msgs), "windows", len(windows))
	return &capability.Result{
		Success: true,
		Text:    stored.Summary,
		Values:  map[string]any{"conversationSummary": stored.Summary},
		Data:    map[string]any{"summary": *stored},
	}, nil
}

// mergeTopics appends topics not already present, ignoring case.
func mergeTopics(have, add []string) []string {
	seen := map[string]bool{}
	for _, t := range have {
		seen[strings.ToLower(t)] = true
	}
	out := append([]string(nil), have...)
	for _, t := range add {
		if !seen[strings.ToLower(t)] {
			seen[strings.ToLower(t)] = true
			out = append(out, t)
		}
	}
	return out
}
