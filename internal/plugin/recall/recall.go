// Package recall is the memory plugin: it renders long-term memories, the
// conversation summary and recent messages into the turn context, extracts
// new long-term memories from user messages, and keeps a rolling summary per
// room.
package recall

import (
	"log/slog"

	"github.com/rcliao/agentcore/internal/capability"
	"github.com/rcliao/agentcore/internal/chunker"
	"github.com/rcliao/agentcore/internal/config"
	"github.com/rcliao/agentcore/internal/llm"
	"github.com/rcliao/agentcore/internal/memory"
	"github.com/rcliao/agentcore/internal/plugin"
	"github.com/rcliao/agentcore/internal/state"
)

// Name is the plugin name migrations are recorded under.
const Name = "recall"

// Provider and evaluator names.
const (
	LongTermMemoryProvider      = "LONG_TERM_MEMORY"
	ConversationSummaryProvider = "CONVERSATION_SUMMARY"
	RecentMessagesProvider      = "RECENT_MESSAGES"

	ExtractionEvaluator = "LONG_TERM_MEMORY_EXTRACTION"
	SummaryEvaluator    = "SUMMARIZE_CONVERSATION"
)

// LongTermHeading introduces the long-term memory section of the context.
const LongTermHeading = "What I Know About You"

// DefaultBudget is the token budget of the long-term memory section.
const DefaultBudget = 1000

// schema lists the collections and filter fields the plugin relies on.
var schema = []byte(`recall/1
collection long_term_memories: agent_id entity_id
collection session_summaries: agent_id room_id
collection messages: agent_id room_id
`)

// Recall holds the plugin's dependencies.
type Recall struct {
	mem     *memory.Service
	models  llm.Invoker
	cfg     config.MemoryConfig
	budget  int
	windows chunker.Options
	logger  *slog.Logger
}

// Option configures Recall.
type Option func(*Recall)

// WithLogger sets the plugin logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recall) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithBudget sets the token budget of the long-term memory section.
func WithBudget(tokens int) Option {
	return func(r *Recall) {
		if tokens > 0 {
			r.budget = tokens
		}
	}
}

// WithWindows sets how transcripts are split for summarization.
func WithWindows(opts chunker.Options) Option {
	return func(r *Recall) {
		r.windows = opts
	}
}

// New creates the plugin state. Zero config fields fall back to defaults.
func New(mem *memory.Service, models llm.Invoker, cfg config.MemoryConfig, opts ...Option) *Recall {
	def := config.NewDefaultConfig().Memory
	if cfg.LongTermLimit <= 0 {
		cfg.LongTermLimit = def.LongTermLimit
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.SummaryThreshold <= 0 {
		cfg.SummaryThreshold = def.SummaryThreshold
	}
	if cfg.RecentMessages <= 0 {
		cfg.RecentMessages = def.RecentMessages
	}

	r := &Recall{
		mem:     mem,
		models:  models,
		cfg:     cfg,
		budget:  DefaultBudget,
		windows: chunker.DefaultOptions(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plugin returns the bundle to register with the runtime.
func (r *Recall) Plugin() *plugin.Plugin {
	return &plugin.Plugin{
		Name:        Name,
		Description: "long-term memory, conversation summaries and recent messages",
		Providers: []state.Provider{
			state.Func{
				Descriptor: state.Descriptor{
					Name:        LongTermMemoryProvider,
					Description: "facts learned about the sender",
					Heading:     LongTermHeading,
					Position:    50,
				},
				Fn: r.longTermMemories,
			},
			state.Func{
				Descriptor: state.Descriptor{
					Name:        ConversationSummaryProvider,
					Description: "rolling summary of the room",
					Heading:     "Conversation Summary",
					Position:    95,
					Dynamic:     true,
				},
				Fn: r.conversationSummary,
			},
			state.Func{
				Descriptor: state.Descriptor{
					Name:        RecentMessagesProvider,
					Description: "latest messages in the room",
					Heading:     "Recent Messages",
					Position:    100,
					Dynamic:     true,
				},
				Fn: r.recentMessages,
			},
		},
		Evaluators: []*capability.Evaluator{
			{Descriptor: capability.Descriptor{
				Name:        ExtractionEvaluator,
				Similes:     []string{"EXTRACT_MEMORIES", "REMEMBER_FACTS"},
				Description: "extracts durable facts about the sender",
				Validate:    r.validateExtraction,
				Handler:     r.extract,
			}},
			{Descriptor: capability.Descriptor{
				Name:        SummaryEvaluator,
				Similes:     []string{"SUMMARIZE_ROOM"},
				Description: "refreshes the room summary once enough new messages arrive",
				Validate:    r.validateSummary,
				Handler:     r.summarize,
			}},
		},
		Schema: schema,
	}
}
