package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

// SQLTicketRepository handles database operations for tickets. Every write is
// a single-row statement; cross-row consistency is the service layer's job.
type SQLTicketRepository struct {
	db *sqlx.DB
}

// NewSQLTicketRepository creates a new ticket repository.
func NewSQLTicketRepository(db *sqlx.DB) *SQLTicketRepository {
	return &SQLTicketRepository{db: db}
}

// Create inserts a ticket and fills in its generated id.
func (r *SQLTicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tickets (title, description, status, priority, category,
			customer_id, assigned_agent_id, is_voice_ticket, voice_transcript,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.Title, ticket.Description, ticket.Status, ticket.Priority,
		ticket.Category, ticket.CustomerID, ticket.AssignedAgentID,
		ticket.IsVoiceTicket, ticket.VoiceTranscript,
		ticket.CreatedAt, ticket.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	ticket.ID, err = res.LastInsertId()
	return err
}

// GetByID retrieves a ticket by id.
func (r *SQLTicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.GetContext(ctx, &ticket, `SELECT * FROM tickets WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket %d: %w", id, err)
	}
	return &ticket, nil
}

// Patch applies a partial update as one atomic single-row write.
func (r *SQLTicketRepository) Patch(ctx context.Context, id int64, patch TicketPatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{patch.UpdatedAt}

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *patch.Priority)
	}
	if patch.SetAgent {
		sets = append(sets, "assigned_agent_id = ?")
		args = append(args, patch.AssignedAgentID)
	}
	if patch.AISuggestions != nil {
		sets = append(sets, "ai_suggestions = ?")
		args = append(args, patch.AISuggestions)
	}
	if patch.AIQuickResponse != nil {
		sets = append(sets, "ai_quick_response = ?")
		args = append(args, patch.AIQuickResponse)
	}
	if patch.AISummary != nil {
		sets = append(sets, "ai_summary = ?")
		args = append(args, *patch.AISummary)
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE tickets SET %s WHERE id = ?`, strings.Join(sets, ", ")),
		args...)
	if err != nil {
		return fmt.Errorf("failed to patch ticket %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// Touch advances a ticket's updated_at timestamp.
func (r *SQLTicketRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET updated_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch ticket %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// Delete removes a ticket row. Message/view cascade is handled by the
// integrity service, not here.
func (r *SQLTicketRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket %d: %w", id, err)
	}
	return nil
}

// ListAll returns every ticket, newest first.
func (r *SQLTicketRepository) ListAll(ctx context.Context) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	err := r.db.SelectContext(ctx, &tickets,
		`SELECT * FROM tickets ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// ListByCustomer returns a customer's tickets, newest first.
func (r *SQLTicketRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	err := r.db.SelectContext(ctx, &tickets,
		`SELECT * FROM tickets WHERE customer_id = ? ORDER BY created_at DESC, id DESC`,
		customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets for customer %d: %w", customerID, err)
	}
	return tickets, nil
}
