package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

// MemoryMessageRepository implements MessageRepository with in-memory storage.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[int64]*models.Message
	nextID   int64
}

// NewMemoryMessageRepository creates a new in-memory message repository.
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{
		messages: make(map[int64]*models.Message),
		nextID:   1,
	}
}

// Create appends a message.
func (r *MemoryMessageRepository) Create(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = r.nextID
	r.nextID++
	copied := *msg
	r.messages[msg.ID] = &copied
	return nil
}

// ListByTicket returns a ticket's messages oldest first.
func (r *MemoryMessageRepository) ListByTicket(_ context.Context, ticketID int64) ([]*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var messages []*models.Message
	for _, m := range r.messages {
		if m.TicketID == ticketID {
			copied := *m
			messages = append(messages, &copied)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

// CountSince counts messages on a ticket created after the given time.
func (r *MemoryMessageRepository) CountSince(_ context.Context, ticketID int64, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, m := range r.messages {
		if m.TicketID == ticketID && m.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// DeleteByTicket removes all messages of a ticket.
func (r *MemoryMessageRepository) DeleteByTicket(_ context.Context, ticketID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.messages {
		if m.TicketID == ticketID {
			delete(r.messages, id)
		}
	}
	return nil
}
