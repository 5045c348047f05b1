package models

import (
	"time"
)

// MessageType distinguishes human-authored messages from AI-drafted replies
// an agent chose to send verbatim.
type MessageType string

const (
	MessageHuman MessageType = "human"
	MessageAI    MessageType = "ai"
)

// Message is one unit of conversation on a ticket. Messages are append-only:
// never mutated or deleted outside the integrity cascade.
type Message struct {
	ID          int64       `json:"id" db:"id"`
	TicketID    int64       `json:"ticket_id" db:"ticket_id"`
	AuthorID    int64       `json:"author_id" db:"author_id"`
	Content     string      `json:"content" db:"content"`
	MessageType MessageType `json:"message_type" db:"message_type"`
	IsInternal  bool        `json:"is_internal" db:"is_internal"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// EnrichedMessage attaches the author record to a message. Author is nil when
// the user no longer exists.
type EnrichedMessage struct {
	Message
	Author *User `json:"author,omitempty"`
}
