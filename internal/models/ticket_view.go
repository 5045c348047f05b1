package models

import (
	"time"
)

// TicketView records when a user last opened a ticket. Upserted on every
// ticket-detail visit, last-write-wins; only input to unread-count reads.
type TicketView struct {
	TicketID     int64     `json:"ticket_id" db:"ticket_id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	LastViewedAt time.Time `json:"last_viewed_at" db:"last_viewed_at"`
}
