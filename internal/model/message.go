package model

import "time"

// Attachment is a piece of media or a document carried by a message.
type Attachment struct {
	ID          string `json:"id"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Text        string `json:"text,omitempty"`
}

// Message is the immutable input unit of one processing turn.
type Message struct {
	ID          string       `json:"id"`
	AgentID     string       `json:"agent_id"`
	EntityID    string       `json:"entity_id"`
	RoomID      string       `json:"room_id"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// FromAgent reports whether the message was authored by the agent itself.
func (m *Message) FromAgent() bool {
	return m.AgentID != "" && m.EntityID == m.AgentID
}
