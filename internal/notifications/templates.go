package notifications

import (
	"fmt"
	"strings"
)

// TicketCreatedParams fills the "ticket created" template.
type TicketCreatedParams struct {
	CustomerName      string
	TicketID          int64
	TicketTitle       string
	TicketDescription string
}

// TicketStatusParams fills the "ticket updated" template. AgentName is empty
// when the assignment could not be resolved.
type TicketStatusParams struct {
	CustomerName string
	TicketID     int64
	TicketTitle  string
	Status       string
	AgentName    string
}

// TicketCreatedEmail renders the creation notice sent to the customer.
func TicketCreatedEmail(to string, p TicketCreatedParams) EmailMessage {
	name := p.CustomerName
	if name == "" {
		name = "Customer"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Your support ticket #%d has been created.\n\n", p.TicketID)
	fmt.Fprintf(&b, "Subject: %s\n", p.TicketTitle)
	fmt.Fprintf(&b, "Details: %s\n\n", p.TicketDescription)
	b.WriteString("Our team will get back to you shortly. You can reply to this ticket at any time from your dashboard.\n")

	return EmailMessage{
		To:      []string{to},
		Subject: fmt.Sprintf("Ticket Created: %s", p.TicketTitle),
		Body:    b.String(),
	}
}

// TicketStatusEmail renders the status-change notice sent to the customer.
func TicketStatusEmail(to string, p TicketStatusParams) EmailMessage {
	name := p.CustomerName
	if name == "" {
		name = "Customer"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Your support ticket #%d (%s) is now %s.\n", p.TicketID, p.TicketTitle, statusLabel(p.Status))
	if p.AgentName != "" {
		fmt.Fprintf(&b, "Handled by: %s\n", p.AgentName)
	}
	b.WriteString("\nVisit your dashboard for the full conversation.\n")

	return EmailMessage{
		To:      []string{to},
		Subject: fmt.Sprintf("Ticket Update: %s", p.TicketTitle),
		Body:    b.String(),
	}
}

func statusLabel(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}
