package repository

import (
	"context"
	"sync"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

type viewKey struct {
	ticketID int64
	userID   int64
}

// MemoryTicketViewRepository implements TicketViewRepository with in-memory
// storage.
type MemoryTicketViewRepository struct {
	mu    sync.RWMutex
	views map[viewKey]*models.TicketView
}

// NewMemoryTicketViewRepository creates a new in-memory ticket view
// repository.
func NewMemoryTicketViewRepository() *MemoryTicketViewRepository {
	return &MemoryTicketViewRepository{
		views: make(map[viewKey]*models.TicketView),
	}
}

// Upsert records the last-viewed time, last-write-wins.
func (r *MemoryTicketViewRepository) Upsert(_ context.Context, view *models.TicketView) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *view
	r.views[viewKey{view.TicketID, view.UserID}] = &copied
	return nil
}

// Get returns the view row, or nil when the user never opened the ticket.
func (r *MemoryTicketViewRepository) Get(_ context.Context, ticketID, userID int64) (*models.TicketView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view, ok := r.views[viewKey{ticketID, userID}]
	if !ok {
		return nil, nil
	}
	copied := *view
	return &copied, nil
}

// DeleteByTicket removes all view rows of a ticket.
func (r *MemoryTicketViewRepository) DeleteByTicket(_ context.Context, ticketID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.views {
		if key.ticketID == ticketID {
			delete(r.views, key)
		}
	}
	return nil
}
