package repository

import (
	"context"
	"sort"
	"sync"

	"time"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

// MemoryTicketRepository implements TicketRepository with in-memory storage.
// This is for development/testing. Production uses the SQL implementation.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[int64]*models.Ticket
	nextID  int64
}

// NewMemoryTicketRepository creates a new in-memory ticket repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets: make(map[int64]*models.Ticket),
		nextID:  1001, // start above seeded fixture ids
	}
}

// Create saves a new ticket to memory.
func (r *MemoryTicketRepository) Create(_ context.Context, ticket *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket.ID = r.nextID
	r.nextID++

	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

// GetByID retrieves a ticket by its id.
func (r *MemoryTicketRepository) GetByID(_ context.Context, id int64) (*models.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	copied := *ticket
	return &copied, nil
}

// Patch applies a partial update atomically under the repository lock.
func (r *MemoryTicketRepository) Patch(_ context.Context, id int64, patch TicketPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}

	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.SetAgent {
		ticket.AssignedAgentID = patch.AssignedAgentID
	}
	if patch.AISuggestions != nil {
		copied := *patch.AISuggestions
		ticket.AISuggestions = &copied
	}
	if patch.AIQuickResponse != nil {
		copied := *patch.AIQuickResponse
		ticket.AIQuickResponse = &copied
	}
	if patch.AISummary != nil {
		summary := *patch.AISummary
		ticket.AISummary = &summary
	}
	ticket.UpdatedAt = patch.UpdatedAt
	return nil
}

// Touch advances a ticket's updated_at timestamp.
func (r *MemoryTicketRepository) Touch(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	ticket.UpdatedAt = at
	return nil
}

// Delete removes a ticket.
func (r *MemoryTicketRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickets, id)
	return nil
}

// ListAll returns every ticket, newest first.
func (r *MemoryTicketRepository) ListAll(_ context.Context) ([]*models.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tickets := make([]*models.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		copied := *t
		tickets = append(tickets, &copied)
	}
	sortNewestFirst(tickets)
	return tickets, nil
}

// ListByCustomer returns a customer's tickets, newest first.
func (r *MemoryTicketRepository) ListByCustomer(_ context.Context, customerID int64) ([]*models.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tickets []*models.Ticket
	for _, t := range r.tickets {
		if t.CustomerID == customerID {
			copied := *t
			tickets = append(tickets, &copied)
		}
	}
	sortNewestFirst(tickets)
	return tickets, nil
}

func sortNewestFirst(tickets []*models.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID > tickets[j].ID
		}
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
}
