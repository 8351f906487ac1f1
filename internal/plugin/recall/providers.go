package recall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/agentcore/internal/model"
	"github.com/rcliao/agentcore/internal/state"
)

// categoryOrder fixes the order of category groups in the rendered section.
var categoryOrder = []model.Category{model.CategorySemantic, model.CategoryProcedural, model.CategoryEpisodic}

var categoryTitles = map[model.Category]string{
	model.CategorySemantic:   "Facts",
	model.CategoryProcedural: "Preferences and Habits",
	model.CategoryEpisodic:   "Past Events",
}

// longTermMemories renders the sender's memories grouped by category. With
// similarity enabled the message text selects the memories; otherwise the
// highest-confidence ones are used.
func (r *Recall) longTermMemories(ctx context.Context, msg *model.Message, _ *state.State) (state.Fragment, error) {
	if msg.EntityID == "" || msg.FromAgent() {
		return state.Fragment{}, nil
	}

	var mems []model.LongTermMemory
	if r.cfg.UseSimilarity && r.mem.CanSearch() && strings.TrimSpace(msg.Text) != "" {
		scored, err := r.mem.SearchLongTermMemories(ctx, msg.EntityID, msg.Text, r.cfg.LongTermLimit, r.cfg.MinSimilarity)
		if err != nil {
			return state.Fragment{}, err
		}
		for _, s := range scored {
			mems = append(mems, s.LongTermMemory)
		}
	} else {
		var err error
		mems, err = r.mem.GetLongTermMemories(ctx, msg.EntityID, r.cfg.LongTermLimit)
		if err != nil {
			return state.Fragment{}, err
		}
	}
	if len(mems) == 0 {
		return state.Fragment{
			Values: map[string]any{"longTermMemoryCount": 0},
		}, nil
	}

	packed := pack(mems, r.budget*4)
	return state.Fragment{
		Text:   renderByCategory(packed),
		Values: map[string]any{"longTermMemoryCount": len(packed)},
		Data:   map[string]any{"memories": packed},
	}, nil
}

// pack keeps memories in order until charBudget is spent. The first memory
// that does not fit is cut to an excerpt when at least 100 chars remain.
func pack(mems []model.LongTermMemory, charBudget int) []model.LongTermMemory {
	var out []model.LongTermMemory
	used := 0
	for _, m := range mems {
		if used+len(m.Content) <= charBudget {
			out = append(out, m)
			used += len(m.Content)
			continue
		}
		if remaining := charBudget - used; remaining >= 100 {
			cut := remaining
			for cut > 0 && !utf8.RuneStart(m.Content[cut]) {
				cut--
			}
			m.Content = m.Content[:cut] + "..."
			out = append(out, m)
		}
		break
	}
	return out
}

func renderByCategory(mems []model.LongTermMemory) string {
	groups := map[model.Category][]string{}
	for _, m := range mems {
		groups[m.Category] = append(groups[m.Category], "- "+m.Content)
	}
	var sections []string
	for _, c := range categoryOrder {
		if lines := groups[c]; len(lines) > 0 {
			sections = append(sections, "## "+categoryTitles[c]+"\n"+strings.Join(lines, "\n"))
		}
	}
	return strings.Join(sections, "\n\n")
}

func (r *Recall) conversationSummary(ctx context.Context, msg *model.Message, _ *state.State) (state.Fragment, error) {
	if msg.RoomID == "" {
		return state.Fragment{}, nil
	}
	sum, err := r.mem.GetCurrentSessionSummary(ctx, msg.RoomID)
	if errors.Is(err, model.ErrNotFound) {
		return state.Fragment{}, nil
	}
	if err != nil {
		return state.Fragment{}, err
	}

	text := sum.Summary
	if len(sum.Topics) > 0 {
		text += "\nTopics: " + strings.Join(sum.Topics, ", ")
	}
	return state.Fragment{
		Text:   text,
		Values: map[string]any{"conversationSummary": sum.Summary, "summarizedMessages": sum.MessageCount},
		Data:   map[string]any{"summary": *sum},
	}, nil
}

func (r *Recall) recentMessages(ctx context.Context, msg *model.Message, _ *state.State) (state.Fragment, error) {
	if msg.RoomID == "" {
		return state.Fragment{}, nil
	}
	msgs, err := r.mem.RecentMessages(ctx, msg.RoomID, r.cfg.RecentMessages)
	if err != nil {
		return state.Fragment{}, err
	}
	return state.Fragment{
		Text:   strings.Join(transcript(msgs), "\n"),
		Values: map[string]any{"recentMessageCount": len(msgs)},
		Data:   map[string]any{"messages": msgs},
	}, nil
}

// transcript formats messages one per line as "speaker: text".
func transcript(msgs []model.Message) []string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		speaker := m.EntityID
		if m.FromAgent() {
			speaker = "assistant"
		}
		if speaker == "" {
			speaker = "unknown"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, strings.ReplaceAll(strings.TrimSpace(m.Text), "\n", " ")))
	}
	return lines
}
