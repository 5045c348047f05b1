package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TicketStatus represents the lifecycle state of a ticket. Any status is
// reachable from any other via explicit agent action; there is no forced
// monotonic progression.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
)

// ValidStatus reports whether s is one of the known ticket statuses.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// TicketPriority represents the urgency of a ticket
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ticket categories the AI triage call is constrained to.
const (
	CategoryBilling        = "billing"
	CategoryAuthentication = "authentication"
	CategoryTechnical      = "technical"
	CategoryFeatureRequest = "feature_request"
	CategoryUrgent         = "urgent"
	CategoryGeneral        = "general"
)

// AISuggestions is the agent-facing triage bundle attached to a ticket after
// analysis. Advisory only: it never mutates the ticket's own fields, with the
// single exception of the high-priority escalation applied when no knowledge
// exists (see AIQuickResponse.EscalatedToHighPriority).
type AISuggestions struct {
	Category       string   `json:"category,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	SuggestedReply string   `json:"suggestedReply,omitempty"`
	RelevantDocs   []string `json:"relevantDocs,omitempty"`
}

// QuickResponseDoc is one knowledge-base reference shown to the customer.
type QuickResponseDoc struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// AIQuickResponse is the customer-facing bundle. Exactly one of "matched with
// a response" or "escalated with no response" holds once analysis completes.
type AIQuickResponse struct {
	HasKnowledgeBaseMatch   bool               `json:"hasKnowledgeBaseMatch"`
	Response                string             `json:"response,omitempty"`
	RelevantDocs            []QuickResponseDoc `json:"relevantDocs,omitempty"`
	EscalatedToHighPriority bool               `json:"escalatedToHighPriority,omitempty"`
}

// Ticket represents a support ticket
type Ticket struct {
	ID              int64                 `json:"id" db:"id"`
	Title           string                `json:"title" db:"title"`
	Description     string                `json:"description" db:"description"`
	Status          TicketStatus          `json:"status" db:"status"`
	Priority        TicketPriority        `json:"priority" db:"priority"`
	Category        *string               `json:"category,omitempty" db:"category"`
	CustomerID      int64                 `json:"customer_id" db:"customer_id"`
	AssignedAgentID *int64                `json:"assigned_agent_id,omitempty" db:"assigned_agent_id"`
	IsVoiceTicket   bool                  `json:"is_voice_ticket" db:"is_voice_ticket"`
	VoiceTranscript *string               `json:"voice_transcript,omitempty" db:"voice_transcript"`
	AISuggestions   *AISuggestionsField   `json:"ai_suggestions,omitempty" db:"ai_suggestions"`
	AIQuickResponse *AIQuickResponseField `json:"ai_quick_response,omitempty" db:"ai_quick_response"`
	AISummary       *string               `json:"ai_summary,omitempty" db:"ai_summary"`
	CreatedAt       time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at" db:"updated_at"`
}

// AISuggestionsField stores AISuggestions as a JSON column.
type AISuggestionsField AISuggestions

// Value implements driver.Valuer.
func (f AISuggestionsField) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *AISuggestionsField) Scan(src any) error {
	return scanJSON(src, f)
}

// AIQuickResponseField stores AIQuickResponse as a JSON column.
type AIQuickResponseField AIQuickResponse

// Value implements driver.Valuer.
func (f AIQuickResponseField) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *AIQuickResponseField) Scan(src any) error {
	return scanJSON(src, f)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}

// CreateTicketRequest carries the inputs for ticket creation.
type CreateTicketRequest struct {
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	CustomerID      int64          `json:"customer_id"`
	Priority        TicketPriority `json:"priority,omitempty"`
	Category        *string        `json:"category,omitempty"`
	IsVoiceTicket   bool           `json:"is_voice_ticket,omitempty"`
	VoiceTranscript *string        `json:"voice_transcript,omitempty"`
}

// EnrichedTicket is a ticket decorated with the read-side context the
// dashboards need. Customer and AssignedAgent are nil when the reference no
// longer resolves; callers present that as "unknown"/"unassigned".
type EnrichedTicket struct {
	Ticket
	Customer        *User `json:"customer,omitempty"`
	AssignedAgent   *User `json:"assigned_agent,omitempty"`
	MessageCount    int   `json:"message_count"`
	HasConversation bool  `json:"has_conversation"`
	UnreadCount     int   `json:"unread_count"`
}
