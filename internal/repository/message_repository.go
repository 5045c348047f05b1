package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

// SQLMessageRepository handles database operations for ticket messages.
type SQLMessageRepository struct {
	db *sqlx.DB
}

// NewSQLMessageRepository creates a new message repository.
func NewSQLMessageRepository(db *sqlx.DB) *SQLMessageRepository {
	return &SQLMessageRepository{db: db}
}

// Create appends a message and fills in its generated id.
func (r *SQLMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (ticket_id, author_id, content, message_type, is_internal, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.TicketID, msg.AuthorID, msg.Content, msg.MessageType, msg.IsInternal, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	msg.ID, err = res.LastInsertId()
	return err
}

// ListByTicket returns a ticket's messages oldest first.
func (r *SQLMessageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.SelectContext(ctx, &messages,
		`SELECT * FROM messages WHERE ticket_id = ? ORDER BY created_at, id`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for ticket %d: %w", ticketID, err)
	}
	return messages, nil
}

// CountSince counts messages on a ticket created after the given time.
func (r *SQLMessageRepository) CountSince(ctx context.Context, ticketID int64, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages WHERE ticket_id = ? AND created_at > ?`,
		ticketID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages for ticket %d: %w", ticketID, err)
	}
	return count, nil
}

// DeleteByTicket removes all messages of a ticket. Only the integrity
// service's ticket-deletion cascade calls this.
func (r *SQLMessageRepository) DeleteByTicket(ctx context.Context, ticketID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE ticket_id = ?`, ticketID)
	if err != nil {
		return fmt.Errorf("failed to delete messages for ticket %d: %w", ticketID, err)
	}
	return nil
}
