package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

func TestCleanupDeletesOrphanedCustomerTickets(t *testing.T) {
	f := newFixture()
	customer := f.addUser("Dana", "dana@example.com", models.RoleCustomer)
	agent := f.addUser("Alex", "alex@example.com", models.RoleAgent)

	id, err := f.ticketSvc.CreateTicket(context.Background(), &models.CreateTicketRequest{
		Title: "Orphan-to-be", Description: "d", CustomerID: customer.ID,
	})
	require.NoError(t, err)
	_, err = f.ticketSvc.AddMessage(context.Background(), id, customer.ID, "hello", models.MessageHuman, false)
	require.NoError(t, err)
	require.NoError(t, f.ticketSvc.MarkTicketAsViewed(context.Background(), id, agent.ID))

	f.users.Delete(context.Background(), customer.ID)

	report, err := f.integritySvc.CleanupInvalidTicketReferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeletedTickets)
	assert.Zero(t, report.UpdatedTickets)

	_, err = f.ticketSvc.GetTicket(context.Background(), id)
	assert.ErrorIs(t, err, ErrTicketNotFound)

	// Cascade removed the conversation and the view rows.
	messages, err := f.messages.ListByTicket(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, messages)
	view, err := f.views.Get(context.Background(), id, agent.ID)
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestCleanupClearsDanglingAgentAssignment(t *testing.T) {
	f := newFixture()
	customer := f.addUser("Dana", "dana@example.com", models.RoleCustomer)
	agent := f.addUser("Alex", "alex@example.com", models.RoleAgent)

	id, err := f.ticketSvc.CreateTicket(context.Background(), &models.CreateTicketRequest{
		Title: "Assigned", Description: "d", CustomerID: customer.ID,
	})
	require.NoError(t, err)

	ticket, err := f.ticketSvc.GetTicket(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedAgentID)
	require.Equal(t, agent.ID, *ticket.AssignedAgentID)

	f.users.Delete(context.Background(), agent.ID)

	report, err := f.integritySvc.CleanupInvalidTicketReferences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.UpdatedTickets)
	assert.Zero(t, report.DeletedTickets)

	ticket, err = f.ticketSvc.GetTicket(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, ticket.AssignedAgentID)
}

func TestCleanupIsIdempotent(t *testing.T) {
	f := newFixture()
	customer := f.addUser("Dana", "dana@example.com", models.RoleCustomer)
	agent := f.addUser("Alex", "alex@example.com", models.RoleAgent)

	_, err := f.ticketSvc.CreateTicket(context.Background(), &models.CreateTicketRequest{
		Title: "Assigned", Description: "d", CustomerID: customer.ID,
	})
	require.NoError(t, err)

	f.users.Delete(context.Background(), agent.ID)

	_, err = f.integritySvc.CleanupInvalidTicketReferences(context.Background())
	require.NoError(t, err)

	report, err := f.integritySvc.CleanupInvalidTicketReferences(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.UpdatedTickets)
	assert.Zero(t, report.DeletedTickets)
}

func TestCheckIntegrityReadOnly(t *testing.T) {
	f := newFixture()
	customer := f.addUser("Dana", "dana@example.com", models.RoleCustomer)
	agent := f.addUser("Alex", "alex@example.com", models.RoleAgent)

	id, err := f.ticketSvc.CreateTicket(context.Background(), &models.CreateTicketRequest{
		Title: "Assigned", Description: "d", CustomerID: customer.ID,
	})
	require.NoError(t, err)

	f.users.Delete(context.Background(), agent.ID)

	issues, err := f.integritySvc.CheckIntegrity(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, id, issues[0].TicketID)
	assert.Equal(t, "invalid agent reference", issues[0].Issue)
	assert.Equal(t, agent.ID, issues[0].Value)

	// Nothing was mutated.
	ticket, err := f.ticketSvc.GetTicket(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, ticket.AssignedAgentID)
}

func TestCheckIntegrityClean(t *testing.T) {
	f := newFixture()
	customer := f.addUser("Dana", "dana@example.com", models.RoleCustomer)

	_, err := f.ticketSvc.CreateTicket(context.Background(), &models.CreateTicketRequest{
		Title: "Fine", Description: "d", CustomerID: customer.ID,
	})
	require.NoError(t, err)

	issues, err := f.integritySvc.CheckIntegrity(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}
