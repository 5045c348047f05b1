package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

// SQLTicketViewRepository handles database operations for last-viewed rows.
type SQLTicketViewRepository struct {
	db *sqlx.DB
}

// NewSQLTicketViewRepository creates a new ticket view repository.
func NewSQLTicketViewRepository(db *sqlx.DB) *SQLTicketViewRepository {
	return &SQLTicketViewRepository{db: db}
}

// Upsert records the last-viewed time for a (ticket, user) pair.
// Last-write-wins; the composite primary key makes the replace atomic.
func (r *SQLTicketViewRepository) Upsert(ctx context.Context, view *models.TicketView) error {
	_, err := r.db.ExecContext(ctx,
		`REPLACE INTO ticket_views (ticket_id, user_id, last_viewed_at) VALUES (?, ?, ?)`,
		view.TicketID, view.UserID, view.LastViewedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert ticket view: %w", err)
	}
	return nil
}

// Get returns the view row for a (ticket, user) pair, or nil when the user
// has never opened the ticket.
func (r *SQLTicketViewRepository) Get(ctx context.Context, ticketID, userID int64) (*models.TicketView, error) {
	var view models.TicketView
	err := r.db.GetContext(ctx, &view,
		`SELECT * FROM ticket_views WHERE ticket_id = ? AND user_id = ?`, ticketID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket view: %w", err)
	}
	return &view, nil
}

// DeleteByTicket removes all view rows of a ticket.
func (r *SQLTicketViewRepository) DeleteByTicket(ctx context.Context, ticketID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ticket_views WHERE ticket_id = ?`, ticketID)
	if err != nil {
		return fmt.Errorf("failed to delete ticket views for ticket %d: %w", ticketID, err)
	}
	return nil
}
