package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketCreatedEmail(t *testing.T) {
	msg := TicketCreatedEmail("dana@example.com", TicketCreatedParams{
		CustomerName:      "Dana",
		TicketID:          42,
		TicketTitle:       "Cannot log in",
		TicketDescription: "Password rejected",
	})

	require.Equal(t, []string{"dana@example.com"}, msg.To)
	assert.Equal(t, "Ticket Created: Cannot log in", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Dana,")
	assert.Contains(t, msg.Body, "ticket #42")
	assert.Contains(t, msg.Body, "Password rejected")
	assert.False(t, msg.HTML)
}

func TestTicketCreatedEmailFallbackName(t *testing.T) {
	msg := TicketCreatedEmail("x@example.com", TicketCreatedParams{TicketID: 1, TicketTitle: "T"})
	assert.Contains(t, msg.Body, "Hi Customer,")
}

func TestTicketStatusEmail(t *testing.T) {
	msg := TicketStatusEmail("dana@example.com", TicketStatusParams{
		CustomerName: "Dana",
		TicketID:     42,
		TicketTitle:  "Cannot log in",
		Status:       "in_progress",
		AgentName:    "Alex",
	})

	assert.Equal(t, "Ticket Update: Cannot log in", msg.Subject)
	// Underscored statuses render as words.
	assert.Contains(t, msg.Body, "is now in progress")
	assert.Contains(t, msg.Body, "Handled by: Alex")
}

func TestTicketStatusEmailOmitsEmptyAgent(t *testing.T) {
	msg := TicketStatusEmail("dana@example.com", TicketStatusParams{
		TicketID:    42,
		TicketTitle: "T",
		Status:      "resolved",
	})
	assert.NotContains(t, msg.Body, "Handled by")
}
