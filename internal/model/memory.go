// Package model defines the core memory data types.
package model

import "time"

// Category classifies a long-term memory.
type Category string

const (
	CategoryEpisodic   Category = "episodic"
	CategorySemantic   Category = "semantic"
	CategoryProcedural Category = "procedural"
)

// ValidCategories are the allowed long-term memory categories.
var ValidCategories = map[Category]bool{
	CategoryEpisodic:   true,
	CategorySemantic:   true,
	CategoryProcedural: true,
}

// LongTermMemory is a durable, categorized, confidence-scored fact about an entity.
// Persisted field names are append-only.
type LongTermMemory struct {
	ID             string         `json:"id"`
	AgentID        string         `json:"agent_id"`
	EntityID       string         `json:"entity_id"`
	Category       Category       `json:"category"`
	Content        string         `json:"content"`
	Embedding      []float32      `json:"embedding,omitempty"`
	Confidence     float64        `json:"confidence"`
	Source         string         `json:"source,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	LastAccessedAt *time.Time     `json:"last_accessed_at,omitempty"`
	AccessCount    int            `json:"access_count"`
	Supersedes     string         `json:"supersedes,omitempty"`
	SupersededAt   *time.Time     `json:"superseded_at,omitempty"`
}

// Superseded reports whether a newer record replaced this one.
func (m *LongTermMemory) Superseded() bool { return m.SupersededAt != nil }

// SessionSummary is a replaceable digest of recent conversation in a room.
type SessionSummary struct {
	ID                string         `json:"id"`
	AgentID           string         `json:"agent_id"`
	RoomID            string         `json:"room_id"`
	EntityID          string         `json:"entity_id,omitempty"`
	Summary           string         `json:"summary"`
	MessageCount      int            `json:"message_count"`
	LastMessageOffset int            `json:"last_message_offset"`
	StartTime         time.Time      `json:"start_time"`
	EndTime           time.Time      `json:"end_time"`
	Topics            []string       `json:"topics,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	Embedding         []float32      `json:"embedding,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
